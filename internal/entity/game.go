package entity

import (
	"fmt"

	"github.com/ttglive/ttg-backend/internal/apperror"
)

const EmptyCell = ""

const (
	OutcomeInProgress = "in-progress"
	OutcomeWin        = "win"
	OutcomeDraw       = "draw"
	OutcomeForfeit    = "forfeit"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Outcome is the result of one round. Winner is set for win and forfeit;
// on forfeit it names the seat that stayed, not the one that left.
type Outcome struct {
	Kind   string `json:"kind"`
	Winner Seat   `json:"winner,omitempty"`
}

func (that Outcome) IsTerminal() bool {
	return that.Kind != OutcomeInProgress
}

// Game is the board and turn state of a single round.
type Game struct {
	Board   [9]string `json:"board"`
	Turn    Seat      `json:"turn"`
	Moves   int       `json:"moves"`
	Outcome Outcome   `json:"outcome"`
}

// NewGame - Seat A always opens. The starting seat is single-sourced here so
// both clients agree without negotiation.
func NewGame() *Game {
	return &Game{
		Turn:    SeatA,
		Outcome: Outcome{Kind: OutcomeInProgress},
	}
}

// MakeMove marks a cell for the seat and advances the turn. The board, turn
// and outcome are updated together so a snapshot taken after this call is
// never missing the turn flip.
func (that *Game) MakeMove(seat Seat, cell int) error {
	if that.Outcome.IsTerminal() {
		return apperror.ErrMatchFinished
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Turn != seat {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = seat.Mark()
	that.Moves++
	that.Outcome = EvaluateOutcome(that.Board)

	if that.Outcome.IsTerminal() {
		that.Turn = SeatNone
	} else {
		that.Turn = seat.Other()
	}

	return nil
}

// Forfeit ends the round in favor of the seat that stayed.
func (that *Game) Forfeit(remaining Seat) {
	that.Outcome = Outcome{Kind: OutcomeForfeit, Winner: remaining}
	that.Turn = SeatNone
}

// EvaluateOutcome is a pure function over the board: a completed line wins
// for the seat that marked it, a full board with no line is a draw.
func EvaluateOutcome(board [9]string) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			winner := SeatA
			if a == MarkB {
				winner = SeatB
			}
			return Outcome{Kind: OutcomeWin, Winner: winner}
		}
	}

	for _, cell := range board {
		if cell == EmptyCell {
			return Outcome{Kind: OutcomeInProgress}
		}
	}

	return Outcome{Kind: OutcomeDraw}
}
