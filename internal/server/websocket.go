package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("client send buffer full")
)

// wsClient is the connection.Sink for one WebSocket. Send only enqueues; a
// dedicated writer goroutine owns all writes to conn.
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *wsClient) Send(payload []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSendBufferFull
	}
}

func (c *wsClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handleWebSocket upgrades the request and registers the client. An optional
// ?city= parameter restricts delivery to alerts for that city.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	if s.config.MaxConnections > 0 && s.connManager.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	connectionID := uuid.New().String()
	client := newWSClient(conn)

	if err := s.connManager.Register(connectionID, r.RemoteAddr, city, client); err != nil {
		s.logger.Warn("failed to register websocket client", "connection_id", connectionID, "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.logger.Info("websocket client connected", "connection_id", connectionID, "remote_addr", r.RemoteAddr, "city", city)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		client.writeLoop()
	}()

	s.readLoop(connectionID, client)

	s.connManager.Unregister(connectionID)
	client.Close()
	s.logger.Info("websocket client disconnected", "connection_id", connectionID)
}

// readLoop drains inbound frames so pongs and close frames are processed.
// Any inbound traffic counts as activity.
func (s *Server) readLoop(connectionID string, client *wsClient) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		s.connManager.UpdateActivity(connectionID)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "connection_id", connectionID, "error", err)
			}
			return
		}
		s.connManager.UpdateActivity(connectionID)
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
