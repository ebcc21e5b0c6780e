package transport

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/uart"
	"periph.io/x/conn/v3/uart/uartreg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

// DefaultSerialDevice is the character device of a USB serial adapter.
const DefaultSerialDevice = "/dev/ttyUSB0"

// SerialOpts selects the serial link.
type SerialOpts struct {
	// Device is a character device path. Used when Port is empty.
	Device string
	// Port names a periph UART port, e.g. "UART0". Optional.
	Port string
	// Baud is the line speed used when opening Port.
	Baud int
}

// Serial writes frames to a character-oriented link. Every frame is one
// unbuffered write.
type Serial struct {
	c      conn.Conn
	closer io.Closer
	last   lastFrame
}

// NewSerial wraps an already open connection.
func NewSerial(c conn.Conn) *Serial {
	s := &Serial{c: c}
	if cl, ok := c.(io.Closer); ok {
		s.closer = cl
	}
	return s
}

// OpenSerial opens the link described by o.
func OpenSerial(o SerialOpts) (*Serial, error) {
	if o.Port != "" {
		return openUART(o)
	}
	dev := o.Device
	if dev == "" {
		dev = DefaultSerialDevice
	}
	f, err := os.OpenFile(dev, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrTransport, dev, err)
	}
	log.Debug().Str("transport", "serial").Str("dev", dev).Msg("device opened")
	return NewSerial(&deviceConn{f: f}), nil
}

func openUART(o SerialOpts) (*Serial, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %w", ErrTransport, err)
	}
	p, err := uartreg.Open(o.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: open uart %q: %w", ErrTransport, o.Port, err)
	}
	baud := o.Baud
	if baud <= 0 {
		baud = 115200
	}
	c, err := p.Connect(physic.Frequency(baud)*physic.Hertz, uart.One, uart.NoParity, uart.NoFlow, 8)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: connect uart %q: %w", ErrTransport, o.Port, err)
	}
	log.Debug().Str("transport", "serial").Str("port", p.String()).Int("baud", baud).Msg("uart connected")
	s := NewSerial(c)
	s.closer = p
	return s, nil
}

// Send implements Sender.
func (s *Serial) Send(p frame.Packed) error {
	return s.SendBytes(p[:])
}

// SendBytes writes b as one frame. The bridge uses it to pass datagrams
// through without reinterpreting them.
func (s *Serial) SendBytes(b []byte) error {
	if s.last.same(b) {
		return nil
	}
	if err := s.c.Tx(b, nil); err != nil {
		return fmt.Errorf("%w: serial write to %s: %w", ErrTransport, s.c, err)
	}
	s.last.remember(b)
	return nil
}

// Close implements Sender.
func (s *Serial) Close() error {
	s.last.forget()
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Serial) String() string {
	return "serial{" + s.c.String() + "}"
}

// deviceConn adapts a write-only character device to conn.Conn.
type deviceConn struct {
	f *os.File
}

func (d *deviceConn) String() string {
	return d.f.Name()
}

// Tx implements conn.Conn. The device is write-only.
func (d *deviceConn) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("serial: read not supported")
	}
	_, err := d.f.Write(w)
	return err
}

// Duplex implements conn.Conn.
func (d *deviceConn) Duplex() conn.Duplex {
	return conn.Half
}

func (d *deviceConn) Close() error {
	return d.f.Close()
}

var _ conn.Conn = &deviceConn{}
