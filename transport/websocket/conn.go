package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// time allowed to write one frame to the peer
	writeWait = 10 * time.Second

	// time allowed between pongs before the peer is considered dead
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192

	sendBufferSize = 256
)

// Connection wraps one websocket peer. Outbound frames go through a buffered
// channel drained by writePump, so Send never blocks a session goroutine; a
// peer that cannot keep up is dropped instead.
type Connection struct {
	logger *slog.Logger
	ws     *websocket.Conn

	send      chan envelope
	closed    chan struct{}
	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, logger *slog.Logger) *Connection {
	conn := &Connection{
		logger: logger.With("component", "ws-conn", "remote", ws.RemoteAddr().String()),
		ws:     ws,
		send:   make(chan envelope, sendBufferSize),
		closed: make(chan struct{}),
	}

	go conn.writePump()

	return conn
}

// Send queues an outbound frame. Implements registry.Sender.
func (that *Connection) Send(action string, payload any) {
	select {
	case that.send <- envelope{Action: action, Payload: payload}:
	case <-that.closed:
	default:
		that.logger.Warn("send buffer full, dropping peer", "action", action)
		that.Close()
	}
}

// Close tears the connection down exactly once. Implements registry.Sender.
func (that *Connection) Close() {
	that.closeOnce.Do(func() {
		close(that.closed)
		_ = that.ws.Close()
	})
}

// readMessage blocks for the next inbound frame. The read deadline is pushed
// forward by every frame and every pong.
func (that *Connection) readMessage() (*Message, error) {
	var msg Message
	if err := that.ws.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (that *Connection) configureRead() {
	that.ws.SetReadLimit(maxMessageSize)
	_ = that.ws.SetReadDeadline(time.Now().Add(pongWait))
	that.ws.SetPongHandler(func(string) error {
		return that.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (that *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.Close()
	}()

	for {
		select {
		case frame := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteJSON(frame); err != nil {
				that.logger.Warn("failed to write frame", "error", err)
				return
			}
		case <-ticker.C:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-that.closed:
			return
		}
	}
}
