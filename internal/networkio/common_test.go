package networkio

import (
	"errors"
	"net"
	"time"
)

// mockConn is a mockable [net.Conn] for exercising framing code.
type mockConn struct {
	// reads holds the datagrams returned by successive Read calls.
	reads [][]byte

	// writes records everything written to the network.
	writes [][]byte

	// closed counts the Close calls on the underlying conn.
	closed int
}

var _ net.Conn = &mockConn{}

func (c *mockConn) Read(b []byte) (int, error) {
	if len(c.reads) <= 0 {
		return 0, errors.New("EOF")
	}
	count := copy(b, c.reads[0])
	c.reads = c.reads[1:]
	return count, nil
}

func (c *mockConn) Write(b []byte) (int, error) {
	c.writes = append(c.writes, append([]byte{}, b...))
	return len(b), nil
}

func (c *mockConn) Close() error {
	c.closed++
	return nil
}

func (c *mockConn) LocalAddr() net.Addr                { return &net.UDPAddr{} }
func (c *mockConn) RemoteAddr() net.Addr               { return &net.UDPAddr{} }
func (c *mockConn) SetDeadline(t time.Time) error      { return nil }
func (c *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *mockConn) SetWriteDeadline(t time.Time) error { return nil }
