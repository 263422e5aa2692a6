// Package transport wraps a connected UDP datagram socket: one outbound
// stream of fragments, one inbound stream of acks, each inbound read
// stamped with the time it was received.
package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/dlcast/videosend/fragment"
)

// Socket is a connected UDP socket used for both sending fragments and
// receiving acks. It is written to only by the scheduler goroutine.
type Socket struct {
	conn *net.UDPConn
}

// Dial connects to host:port. Outbound datagrams go there; inbound
// datagrams are only accepted from that same peer.
func Dial(host, port string) (*Socket, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: resolving %s:%s: %w", host, port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s:%s: %w", host, port, err)
	}
	return &Socket{conn: conn}, nil
}

// Send writes one datagram. A send failure is always fatal to the
// sender: the transport is assumed reachable for the life of the run.
func (s *Socket) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

// SendFragment serializes and sends one fragment.
func (s *Socket) SendFragment(f fragment.Fragment) error {
	return s.Send(f.Encode())
}

// Recv blocks for the next inbound datagram, up to fragment.MTU+header
// bytes, and returns it alongside the time it was received. The
// timestamp is taken in userspace rather than read from a kernel
// SO_TIMESTAMP control message, since the feedback tracker reads
// avg_delay directly from the ack body and has no need for socket-level
// timing precision.
func (s *Socket) Recv() ([]byte, time.Time, error) {
	buf := make([]byte, fragment.HeaderSize+fragment.MTU)
	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, time.Time{}, err
	}
	return buf[:n], time.Now(), nil
}

// Close releases the underlying file descriptor.
func (s *Socket) Close() error {
	return s.conn.Close()
}
