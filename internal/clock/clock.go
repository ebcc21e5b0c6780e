// Package clock shows the wall clock time on the matrix.
package clock

import (
	"context"
	"time"

	"github.com/coreman2200/rainbowmatrix/internal/render"
)

// Delays used by the discrete display.
const (
	DigitWait = 800 * time.Millisecond
	ColonWait = 200 * time.Millisecond
	// StarWait is how long the trailing '*' marks the end of a reading.
	StarWait = 800 * time.Millisecond
)

// TickerWait is the delay between scroll steps in ticker mode.
const TickerWait = 100 * time.Millisecond

type Clock struct {
	R *render.Renderer
	// Ticker scrolls " HH:MM " instead of showing one character at a time.
	Ticker bool
	// Now defaults to time.Now.
	Now func() time.Time
}

func New(r *render.Renderer, ticker bool) *Clock {
	return &Clock{R: r, Ticker: ticker, Now: time.Now}
}

// SendTime shows the current time once.
func (c *Clock) SendTime(ctx context.Context) error {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	if c.Ticker {
		return c.R.SendFullString(ctx, t.Format(" 15:04 "), TickerWait)
	}
	return c.sendDiscrete(ctx, t)
}

func (c *Clock) sendDiscrete(ctx context.Context, t time.Time) error {
	h, m := t.Hour(), t.Minute()
	for _, s := range []struct {
		code rune
		wait time.Duration
	}{
		{digit(h / 10), DigitWait},
		{digit(h % 10), DigitWait},
		{':', ColonWait},
		{digit(m / 10), DigitWait},
		{digit(m % 10), DigitWait},
		{'*', StarWait},
	} {
		if err := c.R.SendChar(ctx, s.code, s.wait); err != nil {
			return err
		}
	}
	return nil
}

func digit(n int) rune { return rune('0' + n) }

// Run shows the time until ctx is done or sending fails.
func (c *Clock) Run(ctx context.Context) error {
	for {
		if err := c.SendTime(ctx); err != nil {
			return err
		}
	}
}
