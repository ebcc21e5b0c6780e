// Package pattern produces fixed test frames for checking matrix wiring
// and color channels without a font.
package pattern

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
	"github.com/coreman2200/rainbowmatrix/internal/render"
	"github.com/coreman2200/rainbowmatrix/internal/transport"
)

type Kind string

const (
	// Colors cycles solid red, green, blue, then the three mixed pairs.
	Colors Kind = "colors"
	// Random shuffles a frame of mixed nibbles every step so LEDs blink.
	Random Kind = "random"
)

// Wait is the delay between pattern frames.
const Wait = 200 * time.Millisecond

type Plan struct {
	Kind Kind
	// Seed drives Random. Zero picks a time based seed.
	Seed int64
}

// Runner walks a Plan one frame at a time.
type Runner struct {
	plan  Plan
	step  int
	rng   *rand.Rand
	mixed frame.Packed
}

// NewRunner fails for an unknown Kind.
func NewRunner(plan Plan) (*Runner, error) {
	r := &Runner{plan: plan}
	switch plan.Kind {
	case Colors:
	case Random:
		seed := plan.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		r.rng = rand.New(rand.NewSource(seed))
		r.mixed = repeat(0x00, 0xf0, 0x0f, 0x77, 0x70, 0x07)
	default:
		return nil, fmt.Errorf("pattern: unknown kind %q: %w", plan.Kind, frame.ErrInvalidInput)
	}
	return r, nil
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Len is the number of frames in one cycle of the plan.
func (r *Runner) Len() int {
	if r.plan.Kind == Colors {
		return len(colorFrames)
	}
	return 1
}

// Step returns the next frame. Plans repeat forever.
func (r *Runner) Step() frame.Packed {
	defer func() { r.step++ }()
	switch r.plan.Kind {
	case Colors:
		return colorFrames[r.step%len(colorFrames)]
	default:
		r.rng.Shuffle(len(r.mixed), func(i, j int) {
			r.mixed[i], r.mixed[j] = r.mixed[j], r.mixed[i]
		})
		return r.mixed
	}
}

// Run sends cycles full cycles of the plan through s, waiting Wait after
// each frame. cycles <= 0 runs until ctx is done.
func (r *Runner) Run(ctx context.Context, s transport.Sender, sleep render.SleepFunc, cycles int) error {
	if sleep == nil {
		sleep = render.Sleep
	}
	for n := 0; cycles <= 0 || n < cycles*r.Len(); n++ {
		if err := s.Send(r.Step()); err != nil {
			return err
		}
		if err := sleep(ctx, Wait); err != nil {
			return err
		}
	}
	return nil
}

var colorFrames = []frame.Packed{
	repeat(0x07, 0xf0, 0x00), // red
	repeat(0x70, 0x00, 0x0f), // green
	repeat(0x00, 0x07, 0xf0), // blue
	repeat(0x77, 0x00, 0x00), // red+green
	repeat(0x07, 0x07, 0x00), // red+blue
	repeat(0x70, 0x07, 0x00), // green+blue
}

// repeat tiles seq over a whole packed frame.
func repeat(seq ...byte) frame.Packed {
	var p frame.Packed
	for i := range p {
		p[i] = seq[i%len(seq)]
	}
	return p
}
