package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes raised by the bridge.
const (
	CodeFrameLength = "BRIDGE.FRAME_LENGTH"
	CodeForward     = "BRIDGE.FORWARD_FAILED"
	CodeListening   = "BRIDGE.LISTENING"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Time           time.Time      `json:"time"`
}

// Reporter receives diagnostics as they are raised.
type Reporter interface {
	Report(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}
