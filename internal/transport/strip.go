package transport

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
	"github.com/coreman2200/rainbowmatrix/internal/layout"
)

// StripOpts selects the SPI port driving an addressable LED strip.
type StripOpts struct {
	// SPI is the spireg port name; empty picks the first port.
	SPI string
	// Serpentine is set when every other row of the strip runs backwards.
	Serpentine bool
	// FreqKHz is the NRZ bit rate. Defaults to 2500.
	FreqKHz int
	// WhiteCap limits each LED to this fraction of full white, in (0, 1).
	// Other values leave colors untouched.
	WhiteCap float64
}

// Strip renders frames on a matrix wired from a single addressable LED
// strip. Frames are expanded back to 8 bits per channel and drawn as one
// 64 pixel line in strip order.
type Strip struct {
	// WhiteCap is applied to every frame drawn. See StripOpts.
	WhiteCap float64

	d      display.Drawer
	l      layout.Layout
	img    *image.NRGBA
	closer io.Closer
	last   lastFrame
}

// NewStrip draws on d using the pixel order of l.
func NewStrip(d display.Drawer, l layout.Layout) *Strip {
	return &Strip{
		d:   d,
		l:   l,
		img: image.NewNRGBA(image.Rect(0, 0, l.Count(), 1)),
	}
}

// OpenStrip opens an nrzled device on SPI. Without an SPI port the frames
// are printed on the console instead.
func OpenStrip(o StripOpts) (*Strip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %w", ErrTransport, err)
	}
	l := layout.Matrix8x8(o.Serpentine)

	p, err := spireg.Open(o.SPI)
	if err != nil {
		log.Warn().Err(err).Str("transport", "strip").Msg("no SPI port; printing at the console")
		s := NewStrip(screen.New(l.Count()), l)
		s.WhiteCap = o.WhiteCap
		return s, nil
	}
	khz := o.FreqKHz
	if khz <= 0 {
		khz = 2500
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: l.Count(),
		Channels:  3,
		Freq:      physic.Frequency(khz) * physic.KiloHertz,
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: nrzled: %w", ErrTransport, err)
	}
	s := NewStrip(d, l)
	s.WhiteCap = o.WhiteCap
	s.closer = p
	return s, nil
}

// Send implements Sender.
func (s *Strip) Send(p frame.Packed) error {
	if s.last.same(p[:]) {
		return nil
	}
	s.paint(p)
	if err := s.d.Draw(s.d.Bounds(), s.img, image.Point{}); err != nil {
		return fmt.Errorf("%w: draw on %s: %w", ErrTransport, s.d, err)
	}
	s.last.remember(p[:])
	return nil
}

func (s *Strip) paint(p frame.Packed) {
	rgb := frame.Unpack(p)
	for y := 0; y < s.l.Dim.Y; y++ {
		for x := 0; x < s.l.Dim.X; x++ {
			src := (y*frame.Width + x) * frame.Channels
			dst := s.l.Index(x, y) * 4
			s.img.Pix[dst+0] = rgb[src+0]
			s.img.Pix[dst+1] = rgb[src+1]
			s.img.Pix[dst+2] = rgb[src+2]
			s.img.Pix[dst+3] = 0xFF
			capWhite(s.img.Pix[dst:dst+3], s.WhiteCap)
		}
	}
}

// capWhite scales one RGB pixel so r+g+b stays under limit*3*255.
func capWhite(px []byte, limit float64) {
	if limit <= 0 || limit >= 1 {
		return
	}
	ceiling := limit * 3 * 255
	sum := float64(px[0]) + float64(px[1]) + float64(px[2])
	if sum <= ceiling {
		return
	}
	scale := ceiling / sum
	for i := range px {
		px[i] = byte(math.Round(float64(px[i]) * scale))
	}
}

// Close halts the strip and releases the port.
func (s *Strip) Close() error {
	s.last.forget()
	err := s.d.Halt()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Strip) String() string {
	return "strip{" + s.d.String() + "}"
}
