package show

import (
	"context"
	"time"
)

// Mode selects what a clip puts on the matrix.
type Mode string

const (
	Char    Mode = "char"
	Ticker  Mode = "ticker"
	Clock   Mode = "clock"
	Pattern Mode = "pattern"
	Random  Mode = "random"
)

func (m Mode) valid() bool {
	switch m {
	case Char, Ticker, Clock, Pattern, Random:
		return true
	}
	return false
}

// Clip is one segment of a show.
type Clip struct {
	Name string `yaml:"name,omitempty"`
	Mode Mode   `yaml:"mode"`
	// Text for char and ticker clips. Empty means the caller's input.
	Text string `yaml:"text,omitempty"`
	// Repeat plays the clip this many times in a row; zero means once.
	Repeat int `yaml:"repeat,omitempty"`
	// Discrete shows the clock one character at a time.
	Discrete bool `yaml:"discrete,omitempty"`
	// Font and FirstChar override the default font for this clip.
	Font      string        `yaml:"font,omitempty"`
	FirstChar *int          `yaml:"first_char,omitempty"`
	Delay     time.Duration `yaml:"delay,omitempty"`
}

func (c Clip) times() int {
	if c.Repeat <= 0 {
		return 1
	}
	return c.Repeat
}

// Program is a full sequence of clips.
type Program struct {
	Loop  bool   `yaml:"loop,omitempty"`
	Clips []Clip `yaml:"clips"`
}

// PlayerState enumerates player states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
)

// Hooks observe playback. Every hook is optional.
type Hooks struct {
	// OnClip runs before each clip starts.
	OnClip func(index int, c Clip)
}

// PlayFunc plays one repetition of a clip.
type PlayFunc func(ctx context.Context, c Clip) error
