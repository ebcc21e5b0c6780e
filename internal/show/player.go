// Package show plays a program of clips on the matrix, one after another.
package show

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

// ClockCycles is how often Combined shows the time before scrolling its text.
// It is enough readings to scroll " HH:MM " back and forth twice.
const ClockCycles = 6 * 8 * 2

// Font strips shipped with the matrix.
const (
	GreenFont      = "8x8font_green.png"
	GreenFirstChar = 32

	InvertedFont      = "8x8fontINV.png"
	InvertedFirstChar = 0
)

// ShortText is the longest text still drawn with GreenFont by FontFor.
const ShortText = 5

// FontFor picks the strip for text: short text in green, longer text
// inverted.
func FontFor(text string) (path string, firstChar int) {
	if len([]rune(text)) <= ShortText {
		return GreenFont, GreenFirstChar
	}
	return InvertedFont, InvertedFirstChar
}

// Combined alternates the scrolling clock with text, forever. The clock is
// drawn in green and the text inverted.
func Combined(text string) Program {
	green, inverted := GreenFirstChar, InvertedFirstChar
	return Program{
		Loop: true,
		Clips: []Clip{
			{Name: "clock", Mode: Clock, Repeat: ClockCycles, Font: GreenFont, FirstChar: &green},
			{Name: "text", Mode: Ticker, Text: text, Font: InvertedFont, FirstChar: &inverted},
		},
	}
}

// Single wraps one mode as a program. repeat <= 0 loops until cancelled.
func Single(m Mode, repeat int) Program {
	if repeat <= 0 {
		return Program{Loop: true, Clips: []Clip{{Mode: m}}}
	}
	return Program{Clips: []Clip{{Mode: m, Repeat: repeat}}}
}

// LoadFile reads a YAML program.
func LoadFile(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	var p Program
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Program{}, fmt.Errorf("show: %s: %w", path, err)
	}
	return p, p.Validate()
}

// Validate rejects empty programs and unknown modes.
func (p Program) Validate() error {
	if len(p.Clips) == 0 {
		return fmt.Errorf("show: program has no clips: %w", frame.ErrInvalidInput)
	}
	for i, c := range p.Clips {
		if !c.Mode.valid() {
			return fmt.Errorf("show: clip %d: unknown mode %q: %w", i, c.Mode, frame.ErrInvalidInput)
		}
	}
	return nil
}

// Player owns the current Program and hands clips to a PlayFunc.
type Player struct {
	mu    sync.Mutex
	state PlayerState
	idx   int

	prog  Program
	play  PlayFunc
	hooks Hooks
}

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(play PlayFunc, h Hooks) *Player {
	return &Player{state: Idle, play: play, hooks: h}
}

// Load replaces the current program.
func (p *Player) Load(prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Running {
		return errors.New("show: load while running")
	}
	p.prog = prog
	p.idx = 0
	return nil
}

// State reports whether the player is running.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current is the index of the clip playing or last played.
func (p *Player) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Run plays the program to the end, or forever when it loops. It stops at
// the first clip error or when ctx is done.
func (p *Player) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Running {
		p.mu.Unlock()
		return errors.New("show: already running")
	}
	prog := p.prog
	p.state = Running
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.state = Idle
		p.mu.Unlock()
	}()

	for {
		for i, c := range prog.Clips {
			p.mu.Lock()
			p.idx = i
			p.mu.Unlock()
			if p.hooks.OnClip != nil {
				p.hooks.OnClip(i, c)
			}
			log.Debug().Int("clip", i).Str("name", c.Name).Str("mode", string(c.Mode)).Msg("clip")
			for n := 0; n < c.times(); n++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := p.play(ctx, c); err != nil {
					return err
				}
			}
		}
		if !prog.Loop {
			return nil
		}
	}
}
