package networkio

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minisr/minisr/internal/model"
)

// WebsocketConn wraps a websocket connection and implements packet framing.
// Each binary message carries exactly one raw packet.
type WebsocketConn struct {
	conn *websocket.Conn
}

var _ FramingConn = &WebsocketConn{}

// ReadRawPacket implements FramingConn
func (c *WebsocketConn) ReadRawPacket() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		// packets travel as binary messages; skip anything else
		if messageType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

// WriteRawPacket implements FramingConn
func (c *WebsocketConn) WriteRawPacket(pkt []byte) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, pkt)
}

// LocalAddr implements FramingConn
func (c *WebsocketConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr implements FramingConn
func (c *WebsocketConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close implements FramingConn
func (c *WebsocketConn) Close() error {
	return c.conn.Close()
}

// DialWebsocket establishes a websocket connection with the given URL, for
// example ws://127.0.0.1:9000/sr.
func DialWebsocket(ctx context.Context, logger model.Logger, rawURL string) (FramingConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		logger.Warnf("networkio: websocket dial failed: %s", err.Error())
		return nil, err
	}
	logger.Infof("networkio: ws %s <-> %s", conn.LocalAddr(), conn.RemoteAddr())
	return &WebsocketConn{conn: conn}, nil
}

// AcceptWebsocket listens on the given address and upgrades the first
// websocket request for the given path, then stops accepting. A live node
// talks to exactly one peer.
func AcceptWebsocket(ctx context.Context, logger model.Logger, addr, path string) (FramingConn, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	connch := make(chan *websocket.Conn, 1)
	errch := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("networkio: websocket upgrade failed: %s", err.Error())
			return
		}
		select {
		case connch <- conn:
		default:
			conn.Close()
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errch <- err:
			default:
			}
		}
	}()

	logger.Infof("networkio: ws listening at %s%s", addr, path)

	select {
	case conn := <-connch:
		// stop accepting further connections but keep the upgraded
		// conn alive by closing the listener only
		go srv.Shutdown(context.Background())
		logger.Infof("networkio: ws peer %s", conn.RemoteAddr())
		return &WebsocketConn{conn: conn}, nil
	case err := <-errch:
		return nil, err
	case <-ctx.Done():
		srv.Close()
		return nil, ctx.Err()
	}
}
