// Package transporttest provides a Sender that records frames instead of
// driving hardware.
package transporttest

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

// Recorder keeps every frame it is sent. Err, when set, fails the next
// sends without recording them.
type Recorder struct {
	mu     sync.Mutex
	frames []frame.Packed
	closed bool

	Err error
}

func (r *Recorder) Send(p frame.Packed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.frames = append(r.frames, p)
	log.Debug().Int("frame", len(r.frames)).Hex("head", p[:6]).Msg("recorded")
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []frame.Packed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame.Packed(nil), r.frames...)
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Recorder) String() string { return "recorder" }
