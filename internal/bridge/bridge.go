// Package bridge receives frames over UDP and forwards them to the matrix.
//
// One datagram is one frame. Datagrams are forwarded as received; lengths
// other than frame.Size are reported but still passed through unless
// DropMismatched is set. There is no backpressure: when the sink is slower
// than the sender the kernel drops datagrams unnoticed.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/diagnostics"
	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

// Sink accepts one raw frame. Implementations must not retain b.
type Sink interface {
	SendBytes(b []byte) error
}

// Stats counts datagrams seen by the bridge.
type Stats struct {
	Received   uint64 `json:"received"`
	Forwarded  uint64 `json:"forwarded"`
	Mismatched uint64 `json:"mismatched"`
	Dropped    uint64 `json:"dropped"`
}

// maxDatagram is the largest UDP payload, so oversized frames are measured
// before they are cut.
const maxDatagram = 64 << 10

type Bridge struct {
	conn  *net.UDPConn
	sinks []Sink

	// DropMismatched discards datagrams whose length is not frame.Size.
	DropMismatched bool
	// Reporter receives diagnostics. Defaults to diagnostics.Discard.
	Reporter diagnostics.Reporter

	received, forwarded, mismatched, dropped atomic.Uint64
}

// Listen binds a UDP socket on addr (host:port).
func Listen(addr string, sinks ...Sink) (*Bridge, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bridge: resolve %s: %w", addr, err)
	}
	c, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	return New(c, sinks...), nil
}

// New wraps an already bound socket.
func New(c *net.UDPConn, sinks ...Sink) *Bridge {
	return &Bridge{conn: c, sinks: sinks, Reporter: diagnostics.Discard}
}

// Addr is the bound local address.
func (b *Bridge) Addr() net.Addr {
	return b.conn.LocalAddr()
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:   b.received.Load(),
		Forwarded:  b.forwarded.Load(),
		Mismatched: b.mismatched.Load(),
		Dropped:    b.dropped.Load(),
	}
}

// Run forwards datagrams until ctx is done or a sink fails. Cancelling ctx
// closes the socket.
func (b *Bridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = b.conn.Close() })
	defer stop()

	b.report(diagnostics.Diagnostic{
		Severity: diagnostics.Info,
		Code:     diagnostics.CodeListening,
		Summary:  "bridge listening on " + b.Addr().String(),
	})

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("bridge: receive: %w", err)
		}
		if err := b.handle(buf[:n], from); err != nil {
			return err
		}
	}
}

func (b *Bridge) handle(data []byte, from *net.UDPAddr) error {
	b.received.Add(1)
	if n := len(data); n > frame.Size {
		data = data[:frame.Size]
		b.mismatch(n, from, "datagram longer than a frame; truncated")
	} else if n != frame.Size {
		b.mismatch(n, from, "datagram shorter than a frame")
	}
	if len(data) != frame.Size && b.DropMismatched {
		b.dropped.Add(1)
		return nil
	}

	for _, s := range b.sinks {
		if err := s.SendBytes(data); err != nil {
			b.report(diagnostics.Diagnostic{
				Severity: diagnostics.Err,
				Code:     diagnostics.CodeForward,
				Summary:  "forwarding a frame failed",
				Detail:   err.Error(),
			})
			return fmt.Errorf("bridge: forward: %w", err)
		}
	}
	b.forwarded.Add(1)
	return nil
}

func (b *Bridge) mismatch(n int, from *net.UDPAddr, summary string) {
	b.mismatched.Add(1)
	log.Warn().Int("len", n).Int("want", frame.Size).Str("from", from.String()).Msg(summary)
	b.report(diagnostics.Diagnostic{
		Severity:       diagnostics.Warn,
		Code:           diagnostics.CodeFrameLength,
		Summary:        summary,
		LikelyCauses:   []string{"sender is not producing packed 8x8 frames"},
		SuggestedFixes: []string{"check the sender", "enable drop_mismatched to discard such datagrams"},
		Evidence:       map[string]any{"len": n, "from": from.String()},
	})
}

func (b *Bridge) report(d diagnostics.Diagnostic) {
	if b.Reporter == nil {
		return
	}
	d.Time = time.Now()
	b.Reporter.Report(d)
}

// Close releases the socket.
func (b *Bridge) Close() error {
	return b.conn.Close()
}
