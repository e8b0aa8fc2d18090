// Package udptransport implements [platform.Transport] over a real
// broadcast-capable UDP socket, grounded on the teacher's own (declared
// but otherwise unused) golang.org/x/sys dependency: SO_BROADCAST is set
// through a net.ListenConfig.Control callback so DISCOVER/OFFER
// exchanges can reach a socket that hasn't learned the peer's unicast
// address yet.
package udptransport

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Transport is a [platform.Transport] bound to a local UDP port,
// broadcasting to the given destination port.
type Transport struct {
	conn     *net.UDPConn
	destPort int
	destAddr net.IP
}

// New opens a UDP socket on localPort with SO_BROADCAST set, ready to
// send to destAddr:destPort (typically 255.255.255.255 and the peer's
// well-known DHCP port).
func New(localPort int, destAddr net.IP, destPort int) (*Transport, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var setErr error
			err := c.Control(func(fd uintptr) {
				setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return setErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", localPort))
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("udptransport: expected *net.UDPConn, got %T", pc)
	}
	return &Transport{conn: conn, destPort: destPort, destAddr: destAddr}, nil
}

// Send broadcasts frame to the configured destination.
func (t *Transport) Send(frame []byte) error {
	_, err := t.conn.WriteToUDP(frame, &net.UDPAddr{IP: t.destAddr, Port: t.destPort})
	return err
}

// LocalPort returns the bound local UDP port.
func (t *Transport) LocalPort() uint16 {
	return uint16(t.conn.LocalAddr().(*net.UDPAddr).Port)
}

// Recv blocks until a datagram arrives, writing it into buf and
// returning its length. Not part of [platform.Transport] (the engine
// never calls it directly) but used by cmd/bootdhcp's receive loop.
func (t *Transport) Recv(buf []byte) (int, error) {
	n, _, err := t.conn.ReadFromUDP(buf)
	return n, err
}

// SetReadDeadline bounds how long Recv may block, so a caller's retry
// loop can wake up and retransmit.
func (t *Transport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

// Close releases the underlying socket.
func (t *Transport) Close() error { return t.conn.Close() }
