// Package render drives a Sender with characters and scrolling text.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
	"github.com/coreman2200/rainbowmatrix/internal/glyph"
	"github.com/coreman2200/rainbowmatrix/internal/ticker"
	"github.com/coreman2200/rainbowmatrix/internal/transport"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Renderer sends one frame per call and then waits. It keeps the scroll
// cursor between calls, so a Renderer must not be shared across goroutines.
type Renderer struct {
	Window *glyph.Window
	Sender transport.Sender
	Sleep  SleepFunc

	cursor ticker.Cursor
}

func New(w *glyph.Window, s transport.Sender) *Renderer {
	r := &Renderer{Window: w, Sender: s, Sleep: Sleep}
	r.cursor.Reset()
	return r
}

// SendChar shows the cell for code and waits.
func (r *Renderer) SendChar(ctx context.Context, code rune, wait time.Duration) error {
	p, err := r.Window.PackChar(code)
	if err != nil {
		return err
	}
	return r.send(ctx, p, wait)
}

// SendTickerElement moves the scroll cursor one column across s, shows the
// window at the new position and waits.
func (r *Renderer) SendTickerElement(ctx context.Context, s string, wait time.Duration) error {
	text := []rune(s)
	if len(text) == 0 {
		return fmt.Errorf("render: empty ticker text: %w", frame.ErrInvalidInput)
	}
	pos := r.cursor.Tick(len(text))
	p, err := r.Window.PackString(text, pos)
	if err != nil {
		return err
	}
	return r.send(ctx, p, wait)
}

// SendFullString runs ticker.FullCycle elements of s, then resets the cursor.
// The cursor is reset even when the run stops early.
func (r *Renderer) SendFullString(ctx context.Context, s string, wait time.Duration) error {
	text := []rune(s)
	if len(text) == 0 {
		return fmt.Errorf("render: empty ticker text: %w", frame.ErrInvalidInput)
	}
	defer r.ResetTicker()
	n := ticker.FullCycle(len(text))
	log.Debug().Str("text", s).Int("ticks", n).Msg("scroll")
	for i := 0; i < n; i++ {
		if err := r.SendTickerElement(ctx, s, wait); err != nil {
			return err
		}
	}
	return nil
}

// ResetTicker puts the scroll cursor back at column 0, moving forward.
func (r *Renderer) ResetTicker() {
	r.cursor.Reset()
}

// Position is the scroll cursor's current column.
func (r *Renderer) Position() int {
	return r.cursor.Position()
}

func (r *Renderer) send(ctx context.Context, p frame.Packed, wait time.Duration) error {
	if err := r.Sender.Send(p); err != nil {
		return err
	}
	if r.Sleep == nil || wait <= 0 {
		return ctx.Err()
	}
	return r.Sleep(ctx, wait)
}
