package websocket

import (
	"encoding/json"

	"github.com/ttglive/ttg-backend/internal/entity"
)

// Client-to-server actions. Server-to-client actions are owned by the
// session package; the transport only adds the auth pair below.
const (
	actionJoinQueue   = "joinQueue"
	actionLeaveQueue  = "leaveQueue"
	actionMakeMove    = "makeMove"
	actionPlaceBet    = "placeBet"
	actionLockBet     = "lockBet"
	actionChatMessage = "chatMessage"
)

const (
	actionAuth      = "auth"
	actionAuthError = "authError"
)

// Message is the inbound frame. Payload stays raw until the action-specific
// handler knows what to decode it into.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// envelope is the outbound frame.
type envelope struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type joinQueueRequest struct {
	Token    string `json:"token,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

type makeMoveRequest struct {
	Cell int         `json:"cell"`
	Seat entity.Seat `json:"seat,omitempty"`
}

type placeBetRequest struct {
	Amount int `json:"amount"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type authResponse struct {
	Player *entity.Player `json:"player"`
	Token  string         `json:"token,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
