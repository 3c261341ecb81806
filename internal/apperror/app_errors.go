package apperror

import "errors"

var (
	ErrMatchFinished   = errors.New("match is already finished")
	ErrMatchNotLive    = errors.New("no active match for this identity")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrBettingOpen     = errors.New("betting window is still open")
	ErrBettingClosed   = errors.New("betting window is already closed")
	ErrNegativeBet     = errors.New("bet amount must not be negative")
	ErrBetOverBalance  = errors.New("bet amount exceeds current balance")
	ErrBetLocked       = errors.New("bet amount is already locked")
	ErrEmptyChatText   = errors.New("chat message is empty")
	ErrChatTooLong     = errors.New("chat message exceeds the allowed length")
	ErrInvalidToken    = errors.New("invalid auth token")
	ErrBadNickname     = errors.New("nickname must be 2-24 characters")
	ErrAccountNotFound = errors.New("account not found")
)
