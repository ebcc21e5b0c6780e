package transport

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

// DefaultUDPAddr is where the bridge listens by default.
const DefaultUDPAddr = "localhost:9000"

// UDP sends every frame as one datagram to a fixed destination. There is no
// acknowledgment or retry; a lost frame is corrected by the next one.
type UDP struct {
	conn *net.UDPConn
	dst  *net.UDPAddr
	last lastFrame
}

// DialUDP resolves addr and opens an unconnected socket, so ICMP errors
// from a missing receiver do not surface on later sends.
func DialUDP(addr string) (*UDP, error) {
	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrTransport, addr, err)
	}
	c, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: udp socket: %w", ErrTransport, err)
	}
	return &UDP{conn: c, dst: dst}, nil
}

// Send implements Sender.
func (u *UDP) Send(p frame.Packed) error {
	if u.last.same(p[:]) {
		log.Debug().Str("transport", "udp").Msg("frame unchanged, skipped")
		return nil
	}
	if _, err := u.conn.WriteToUDP(p[:], u.dst); err != nil {
		return fmt.Errorf("%w: udp send to %s: %w", ErrTransport, u.dst, err)
	}
	u.last.remember(p[:])
	log.Debug().Str("transport", "udp").Str("dst", u.dst.String()).Msg("frame sent")
	return nil
}

// Close implements Sender.
func (u *UDP) Close() error {
	u.last.forget()
	return u.conn.Close()
}

func (u *UDP) String() string {
	return "udp{" + u.dst.String() + "}"
}
