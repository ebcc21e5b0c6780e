package transport

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
	"github.com/coreman2200/rainbowmatrix/internal/layout"
)

func packed(seed byte) frame.Packed {
	var p frame.Packed
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

func TestSerialDedup(t *testing.T) {
	rec := &conntest.Record{}
	s := NewSerial(rec)
	a, b := packed(1), packed(2)

	require.NoError(t, s.Send(a))
	require.NoError(t, s.Send(a))
	assert.Len(t, rec.Ops, 1, "identical frame written once")

	require.NoError(t, s.Send(b))
	require.NoError(t, s.Send(a))
	require.Len(t, rec.Ops, 3)
	assert.Equal(t, a[:], rec.Ops[0].W)
	assert.Equal(t, b[:], rec.Ops[1].W)
	assert.Equal(t, a[:], rec.Ops[2].W)
}

func TestSerialPassesRawBytes(t *testing.T) {
	rec := &conntest.Record{}
	s := NewSerial(rec)
	require.NoError(t, s.SendBytes([]byte{1, 2, 3}))
	require.NoError(t, s.SendBytes([]byte{1, 2, 3}))
	require.NoError(t, s.SendBytes([]byte{1, 2}))
	require.Len(t, rec.Ops, 2)
	assert.Equal(t, []byte{1, 2}, rec.Ops[1].W)
}

type failingConn struct {
	fail  bool
	count int
}

func (f *failingConn) String() string { return "failing" }

func (f *failingConn) Tx(w, r []byte) error {
	f.count++
	if f.fail {
		return errors.New("bus gone")
	}
	return nil
}

func (f *failingConn) Duplex() conn.Duplex { return conn.Half }

func TestSerialWriteFailure(t *testing.T) {
	c := &failingConn{fail: true}
	s := NewSerial(c)
	err := s.Send(packed(3))
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "bus gone")

	// A failed frame is not remembered, so sending it again retries.
	c.fail = false
	require.NoError(t, s.Send(packed(3)))
	assert.Equal(t, 2, c.count)
}

func TestOpenSerialDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tty")
	s, err := OpenSerial(SerialOpts{Device: path})
	require.NoError(t, err)
	assert.Equal(t, "serial{"+path+"}", s.String())

	a, b := packed(4), packed(5)
	require.NoError(t, s.Send(a))
	require.NoError(t, s.Send(a))
	require.NoError(t, s.Send(b))
	require.NoError(t, s.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append(a.Bytes(), b.Bytes()...), got)
}

func TestOpenSerialMissingDir(t *testing.T) {
	_, err := OpenSerial(SerialOpts{Device: filepath.Join(t.TempDir(), "no", "such", "tty")})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestUDPDedup(t *testing.T) {
	l, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer l.Close()

	u, err := DialUDP(l.LocalAddr().String())
	require.NoError(t, err)
	defer u.Close()

	a, b := packed(6), packed(7)
	require.NoError(t, u.Send(a))
	require.NoError(t, u.Send(a))
	require.NoError(t, u.Send(b))

	buf := make([]byte, 512)
	for _, want := range []frame.Packed{a, b} {
		require.NoError(t, l.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := l.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, want[:], buf[:n])
	}

	require.NoError(t, l.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = l.ReadFromUDP(buf)
	var ne net.Error
	require.True(t, errors.As(err, &ne), "expected a timeout, got %v", err)
	assert.True(t, ne.Timeout())
}

func TestDialUDPBadAddress(t *testing.T) {
	_, err := DialUDP("not an address")
	assert.ErrorIs(t, err, ErrTransport)
}

// recordDrawer keeps the last image drawn.
type recordDrawer struct {
	bounds image.Rectangle
	draws  int
	last   *image.NRGBA
	halted bool
}

func (r *recordDrawer) String() string          { return "record" }
func (r *recordDrawer) Halt() error             { r.halted = true; return nil }
func (r *recordDrawer) ColorModel() color.Model { return color.NRGBAModel }
func (r *recordDrawer) Bounds() image.Rectangle { return r.bounds }

func (r *recordDrawer) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	r.draws++
	r.last = image.NewNRGBA(src.Bounds())
	copy(r.last.Pix, src.(*image.NRGBA).Pix)
	return nil
}

func TestStripPixelOrder(t *testing.T) {
	// Pixel (0,1) full red, everything else off.
	samples := make([]byte, frame.SampleCount)
	samples[8*3] = 0xFF
	p, err := frame.Pack(samples)
	require.NoError(t, err)

	for _, tt := range []struct {
		serpentine bool
		index      int
	}{
		{false, 8},
		{true, 15},
	} {
		d := &recordDrawer{bounds: image.Rect(0, 0, 64, 1)}
		s := NewStrip(d, layout.Matrix8x8(tt.serpentine))
		require.NoError(t, s.Send(p))
		require.NoError(t, s.Send(p))
		assert.Equal(t, 1, d.draws)

		for i := 0; i < 64; i++ {
			want := color.NRGBA{A: 0xFF}
			if i == tt.index {
				want.R = 0xFF
			}
			assert.Equal(t, want, d.last.NRGBAAt(i, 0), "serpentine=%v index %d", tt.serpentine, i)
		}
		require.NoError(t, s.Close())
		assert.True(t, d.halted)
	}
}

func TestStripNRZLED(t *testing.T) {
	buf := bytes.Buffer{}
	d, err := nrzled.NewSPI(spitest.NewRecordRaw(&buf), &nrzled.Opts{NumPixels: 64, Channels: 3, Freq: 2500 * physic.KiloHertz})
	require.NoError(t, err)

	s := NewStrip(d, layout.Matrix8x8(false))
	start := buf.Len()
	require.NoError(t, s.Send(packed(8)))
	afterFirst := buf.Len()
	assert.Greater(t, afterFirst, start)

	require.NoError(t, s.Send(packed(8)))
	assert.Equal(t, afterFirst, buf.Len(), "unchanged frame is not redrawn")

	require.NoError(t, s.Send(packed(9)))
	assert.Greater(t, buf.Len(), afterFirst)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tty")
	s, err := Open(Opts{Kind: KindSerial, Serial: SerialOpts{Device: path}})
	require.NoError(t, err)
	assert.IsType(t, &Serial{}, s)
	require.NoError(t, s.Close())

	u, err := Open(Opts{Addr: "127.0.0.1:9"})
	require.NoError(t, err)
	assert.IsType(t, &UDP{}, u)
	require.NoError(t, u.Close())

	_, err = Open(Opts{Kind: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestStripWhiteCap(t *testing.T) {
	// Every LED full white.
	samples := bytes.Repeat([]byte{0xFF}, frame.SampleCount)
	p, err := frame.Pack(samples)
	require.NoError(t, err)

	d := &recordDrawer{bounds: image.Rect(0, 0, 64, 1)}
	s := NewStrip(d, layout.Matrix8x8(false))
	s.WhiteCap = 0.5
	require.NoError(t, s.Send(p))
	for i := 0; i < 64; i++ {
		c := d.last.NRGBAAt(i, 0)
		assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 0xFF}, c, "pixel %d", i)
	}
}

func TestCapWhiteLeavesDimPixels(t *testing.T) {
	px := []byte{0x40, 0x20, 0x10}
	capWhite(px, 0.5)
	assert.Equal(t, []byte{0x40, 0x20, 0x10}, px)

	px = []byte{0xFF, 0xFF, 0x00}
	capWhite(px, 0)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00}, px, "zero disables the cap")
}
