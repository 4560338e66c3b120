// Package networkio contains the network I/O layer used by live nodes to
// exchange raw packets over UDP or WebSocket transports.
package networkio

import (
	"errors"
	"net"
)

// FramingConn is a network connection that knows how to read and write
// whole raw packets.
type FramingConn interface {
	// ReadRawPacket reads and returns a raw packet.
	ReadRawPacket() ([]byte, error)

	// WriteRawPacket writes a raw packet.
	WriteRawPacket(pkt []byte) error

	// LocalAddr is like net.Conn.LocalAddr.
	LocalAddr() net.Addr

	// RemoteAddr is like net.Conn.RemoteAddr.
	RemoteAddr() net.Addr

	// Close is like net.Conn.Close.
	Close() error
}

// ErrPacketTooLarge means that a packet exceeds the transport frame size.
var ErrPacketTooLarge = errors.New("networkio: packet too large")
