package session

import "github.com/ttglive/ttg-backend/internal/entity"

// Server-to-client action names. Client-to-server names live in the
// websocket transport.
const (
	ActionGameStart     = "gameStart"
	ActionGameUpdate    = "gameUpdate"
	ActionMakeMove      = "makeMove"
	ActionBetUpdate     = "betUpdate"
	ActionBettingClosed = "bettingClosed"
	ActionBetError      = "betError"
	ActionChatMessage   = "chatMessage"
	ActionOpponentLeft  = "opponentLeft"
)

// GameStartPayload is sent once per seat at match start and again to a seat
// that rebinds mid-match.
type GameStartPayload struct {
	MatchID     string                         `json:"match_id"`
	Seat        entity.Seat                    `json:"seat"`
	Round       int                            `json:"round"`
	Board       [9]string                      `json:"board"`
	Turn        entity.Seat                    `json:"turn"`
	Outcome     entity.Outcome                 `json:"outcome"`
	Players     map[entity.Seat]*entity.Player `json:"players"`
	Bet         *entity.BettingRound           `json:"bet"`
	BettingOpen bool                           `json:"betting_open"`
}

// GameUpdatePayload is the atomic snapshot broadcast after every accepted
// move and every settlement. Board, turn and outcome always travel together.
type GameUpdatePayload struct {
	Round       int                            `json:"round"`
	Board       [9]string                      `json:"board"`
	Turn        entity.Seat                    `json:"turn"`
	Outcome     entity.Outcome                 `json:"outcome"`
	Players     map[entity.Seat]*entity.Player `json:"players"`
	Bet         *entity.BettingRound           `json:"bet"`
	BettingOpen bool                           `json:"betting_open"`
}

type BettingClosedPayload struct {
	Bet       *entity.BettingRound `json:"bet"`
	Cancelled bool                 `json:"cancelled"`
}

type OpponentLeftPayload struct {
	Outcome entity.Outcome `json:"outcome"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
