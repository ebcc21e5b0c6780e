// Package transport delivers packed frames to the matrix.
//
// Every Sender remembers the last frame it delivered and skips a send when
// the next frame is byte-identical, which keeps bus traffic down to frame
// changes. Each instance owns its own memory of the last frame.
package transport

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

// ErrTransport wraps write failures on the underlying device or socket.
var ErrTransport = errors.New("transport error")

// Sender abstracts a frame sink.
type Sender interface {
	// Send delivers one frame, or does nothing if it equals the last frame
	// delivered.
	Send(p frame.Packed) error
	// Close releases the device or socket.
	Close() error
}

// lastFrame tracks the most recent successful send.
type lastFrame struct {
	buf  []byte
	sent bool
}

func (l *lastFrame) same(b []byte) bool {
	return l.sent && bytes.Equal(l.buf, b)
}

func (l *lastFrame) remember(b []byte) {
	l.buf = append(l.buf[:0], b...)
	l.sent = true
}

func (l *lastFrame) forget() {
	l.buf = l.buf[:0]
	l.sent = false
}

// Kinds accepted by Open.
const (
	KindUDP    = "udp"
	KindSerial = "serial"
	KindStrip  = "strip"
)

// Opts selects and configures one Sender.
type Opts struct {
	Kind   string
	Addr   string
	Serial SerialOpts
	Strip  StripOpts
}

// Open returns the Sender named by o.Kind. An empty kind means UDP.
func Open(o Opts) (Sender, error) {
	switch o.Kind {
	case KindUDP, "":
		addr := o.Addr
		if addr == "" {
			addr = DefaultUDPAddr
		}
		u, err := DialUDP(addr)
		if err != nil {
			return nil, err
		}
		return u, nil
	case KindSerial:
		s, err := OpenSerial(o.Serial)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindStrip:
		s, err := OpenStrip(o.Strip)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrTransport, o.Kind)
	}
}
