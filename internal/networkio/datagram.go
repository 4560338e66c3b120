package networkio

import (
	"math"
	"net"
	"sync"

	"github.com/minisr/minisr/internal/model"
)

// DatagramConn wraps a datagram socket and implements packet framing. Each
// datagram carries exactly one raw packet.
type DatagramConn struct {
	net.Conn
}

var _ FramingConn = &DatagramConn{}

// ReadRawPacket implements FramingConn
func (c *DatagramConn) ReadRawPacket() ([]byte, error) {
	buffer := make([]byte, math.MaxUint16) // maximum UDP datagram size
	count, err := c.Read(buffer)
	if err != nil {
		return nil, err
	}
	pkt := buffer[:count]
	return pkt, nil
}

// WriteRawPacket implements FramingConn
func (c *DatagramConn) WriteRawPacket(pkt []byte) error {
	if len(pkt) > math.MaxUint16 {
		return ErrPacketTooLarge
	}
	_, err := c.Conn.Write(pkt)
	return err
}

// DialDatagram creates a connected UDP socket bound to the given local
// address and exchanging packets with the given remote address.
func DialDatagram(logger model.Logger, localAddr, remoteAddr string) (FramingConn, error) {
	var laddr *net.UDPAddr
	if localAddr != "" {
		var err error
		laddr, err = net.ResolveUDPAddr("udp", localAddr)
		if err != nil {
			return nil, err
		}
	}
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		logger.Warnf("networkio: dial failed: %s", err.Error())
		return nil, err
	}
	logger.Infof("networkio: udp %s <-> %s", conn.LocalAddr(), conn.RemoteAddr())
	return &DatagramConn{newCloseOnceConn(conn)}, nil
}

// closeOnceConn gives Close once semantics. The node closes its conn both
// from the shutdown watcher and from the network reader's cleanup, and only
// the first close should reach the socket.
type closeOnceConn struct {
	once sync.Once
	net.Conn
}

var _ net.Conn = &closeOnceConn{}

func newCloseOnceConn(conn net.Conn) *closeOnceConn {
	return &closeOnceConn{Conn: conn}
}

// Close implements net.Conn
func (c *closeOnceConn) Close() (err error) {
	c.once.Do(func() {
		err = c.Conn.Close()
	})
	return
}
