package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/ttglive/ttg-backend/internal/apperror"
	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/session"
)

// client is the per-connection protocol state: the connection plus the
// identity bound to it by a successful joinQueue. Only the read loop
// goroutine touches player.
type client struct {
	server *Server
	conn   *Connection
	player *entity.Player
}

func (that *client) readLoop(ctx context.Context) {
	log := that.server.logger.With("method", "readLoop")

	defer that.disconnect()

	that.conn.configureRead()

	for {
		msg, err := that.conn.readMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection read failed", "error", err)
			}
			return
		}

		if err = that.dispatch(ctx, msg); err != nil {
			log.Error("error processing message", "action", msg.Action, "error", err)
		}
	}
}

func (that *client) dispatch(ctx context.Context, msg *Message) error {
	switch msg.Action {
	case actionJoinQueue:
		return that.handleJoinQueue(ctx, msg)
	case actionLeaveQueue:
		return that.handleLeaveQueue()
	case actionMakeMove:
		return that.handleMakeMove(msg)
	case actionPlaceBet:
		return that.handlePlaceBet(msg)
	case actionLockBet:
		return that.handleLockBet()
	case actionChatMessage:
		return that.handleChatMessage(msg)
	default:
		that.conn.Send(msg.Action, errorResponse{Error: "unknown action"})
		return nil
	}
}

// handleJoinQueue resolves the identity, binds the connection, and either
// reattaches the player to their running match or enqueues them.
func (that *client) handleJoinQueue(ctx context.Context, msg *Message) error {
	log := that.server.logger.With("method", "handleJoinQueue")

	var req joinQueueRequest
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	var (
		player *entity.Player
		token  string
		err    error
	)

	if req.Token != "" {
		player, err = that.server.auth.Authenticate(ctx, req.Token)
	} else {
		player, token, err = that.server.auth.RegisterGuest(ctx, req.Nickname)
	}
	if err != nil {
		log.Warn("authentication failed", "error", err)
		that.conn.Send(actionAuthError, errorResponse{Error: err.Error()})
		return nil
	}

	that.player = player
	that.server.registry.Bind(player.ID, that.conn)
	that.conn.Send(actionAuth, authResponse{Player: player, Token: token})

	log = log.With("playerID", player.ID)

	if that.server.supervisor.TryRebind(player.ID, that.conn) {
		log.Info("player reattached to running match")
		return nil
	}

	that.server.queue.Enqueue(player, that.conn)
	log.Info("player joined matchmaking queue")

	return nil
}

func (that *client) handleLeaveQueue() error {
	if that.player == nil {
		return nil
	}

	that.server.queue.Leave(that.player.ID)

	return nil
}

func (that *client) handleMakeMove(msg *Message) error {
	sess, seat, ok := that.boundSession(actionMakeMove)
	if !ok {
		return nil
	}

	var req makeMoveRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	// the seat claimed in the payload must match the server-side binding;
	// the move itself is always attributed to the bound seat
	if req.Seat != entity.SeatNone && req.Seat != seat {
		that.conn.Send(actionMakeMove, errorResponse{Error: "seat mismatch"})
		return nil
	}

	sess.HandleMove(seat, req.Cell)

	return nil
}

func (that *client) handlePlaceBet(msg *Message) error {
	sess, seat, ok := that.boundSession(actionPlaceBet)
	if !ok {
		return nil
	}

	var req placeBetRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	sess.HandleBetUpdate(seat, req.Amount)

	return nil
}

func (that *client) handleLockBet() error {
	sess, seat, ok := that.boundSession(actionLockBet)
	if !ok {
		return nil
	}

	sess.HandleBetLock(seat)

	return nil
}

func (that *client) handleChatMessage(msg *Message) error {
	sess, seat, ok := that.boundSession(actionChatMessage)
	if !ok {
		return nil
	}

	var req chatRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	sess.HandleChat(seat, req.Text)

	return nil
}

// boundSession resolves the connection's identity to its live session. The
// seat always comes from the server-side binding, never from the payload.
func (that *client) boundSession(action string) (*session.Session, entity.Seat, bool) {
	if that.player == nil {
		that.conn.Send(action, errorResponse{Error: "not authenticated"})
		return nil, entity.SeatNone, false
	}

	sess, seat, ok := that.server.supervisor.SessionFor(that.player.ID)
	if !ok {
		that.conn.Send(action, errorResponse{Error: apperror.ErrMatchNotLive.Error()})
		return nil, entity.SeatNone, false
	}

	return sess, seat, true
}

// disconnect runs when the read loop exits for any reason. The registry is
// only unbound if this connection is still the identity's current one; a
// reconnect that already rebound stays untouched.
func (that *client) disconnect() {
	that.conn.Close()

	if that.player == nil {
		return
	}

	if !that.server.registry.Unbind(that.player.ID, that.conn) {
		return
	}

	that.server.queue.Leave(that.player.ID)
	that.server.supervisor.PlayerDropped(that.player.ID)

	that.server.logger.Info("player disconnected", "method", "disconnect", "playerID", that.player.ID)
}
