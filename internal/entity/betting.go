package entity

import (
	"fmt"
	"time"

	"github.com/ttglive/ttg-backend/internal/apperror"
)

const (
	BetStatusOpen          = "open"
	BetStatusLockedPartial = "locked-partial"
	BetStatusLockedBoth    = "locked-both"
	BetStatusClosed        = "closed"
	BetStatusCancelled     = "cancelled"
)

// SeatBet holds one seat's stake for the round. Pending is mutable until the
// seat locks; Locked is nil until then and immutable afterwards.
type SeatBet struct {
	Pending int  `json:"pending"`
	Locked  *int `json:"locked,omitempty"`
}

func (that *SeatBet) IsLocked() bool {
	return that.Locked != nil
}

// BettingRound is the timed wagering sub-state for one round of play.
// Balances are never mutated here; Settlement only reports deltas.
type BettingRound struct {
	Seq      int               `json:"seq"`
	Status   string            `json:"status"`
	Deadline time.Time         `json:"deadline"`
	Bets     map[Seat]*SeatBet `json:"bets"`

	// SettlePending is raised when the record store kept failing during
	// settlement; the balance is corrected out-of-band.
	SettlePending bool `json:"settle_pending,omitempty"`
}

func NewBettingRound(seq int, deadline time.Time) *BettingRound {
	return &BettingRound{
		Seq:      seq,
		Status:   BetStatusOpen,
		Deadline: deadline,
		Bets: map[Seat]*SeatBet{
			SeatA: {},
			SeatB: {},
		},
	}
}

// Clone returns a deep copy of the round. Broadcast payloads must carry a
// clone, never the live round: outbound frames are marshaled asynchronously
// and the live round keeps mutating after the send is queued.
func (that *BettingRound) Clone() *BettingRound {
	clone := *that
	clone.Bets = make(map[Seat]*SeatBet, len(that.Bets))

	for seat, bet := range that.Bets {
		copied := *bet
		if bet.Locked != nil {
			locked := *bet.Locked
			copied.Locked = &locked
		}
		clone.Bets[seat] = &copied
	}

	return &clone
}

// IsAccepting reports whether the window is still taking bet changes.
func (that *BettingRound) IsAccepting() bool {
	return that.Status == BetStatusOpen || that.Status == BetStatusLockedPartial
}

// IsSettleable reports whether stakes move at settlement: both seats locked
// a positive amount before the window closed.
func (that *BettingRound) IsSettleable() bool {
	a, b := that.Bets[SeatA], that.Bets[SeatB]
	return a.IsLocked() && b.IsLocked() && *a.Locked > 0 && *b.Locked > 0
}

// UpdatePending replaces the seat's pending amount. Invalid amounts leave
// the previous pending amount untouched.
func (that *BettingRound) UpdatePending(seat Seat, amount, balance int) error {
	if !that.IsAccepting() {
		return apperror.ErrBettingClosed
	}

	bet := that.Bets[seat]
	if bet.IsLocked() {
		return apperror.ErrBetLocked
	}

	if amount < 0 {
		return fmt.Errorf("%w: %d", apperror.ErrNegativeBet, amount)
	}

	if amount > balance {
		return fmt.Errorf("%w: %d > %d", apperror.ErrBetOverBalance, amount, balance)
	}

	bet.Pending = amount

	return nil
}

// Lock commits the seat's pending amount for the round. Locking twice is a
// no-op, never an error.
func (that *BettingRound) Lock(seat Seat) {
	if !that.IsAccepting() {
		return
	}

	bet := that.Bets[seat]
	if bet.IsLocked() {
		return
	}

	locked := bet.Pending
	bet.Locked = &locked

	that.refreshStatus()
}

// ForceLockAll converts every remaining pending amount into a locked amount.
// Called exactly once when the window deadline fires.
func (that *BettingRound) ForceLockAll() {
	for _, seat := range []Seat{SeatA, SeatB} {
		bet := that.Bets[seat]
		if !bet.IsLocked() {
			locked := bet.Pending
			bet.Locked = &locked
		}
	}

	that.refreshStatus()
}

// Close ends the window. With fewer than two positive locked amounts the
// round is cancelled and no stakes will ever move.
func (that *BettingRound) Close() {
	if that.IsSettleable() {
		that.Status = BetStatusClosed
		return
	}
	that.Status = BetStatusCancelled
}

// Cancel voids the round regardless of its state, e.g. on forfeit.
func (that *BettingRound) Cancel() {
	that.Status = BetStatusCancelled
}

func (that *BettingRound) refreshStatus() {
	a, b := that.Bets[SeatA], that.Bets[SeatB]

	switch {
	case a.IsLocked() && b.IsLocked():
		that.Status = BetStatusLockedBoth
	case a.IsLocked() || b.IsLocked():
		that.Status = BetStatusLockedPartial
	}
}

// Settlement computes per-seat balance deltas for the round given the final
// outcome. The winner is credited both stakes plus the bonus, the loser is
// debited their own stake; a draw returns stakes unchanged and pays no
// bonus. A cancelled round settles to nothing.
func (that *BettingRound) Settlement(outcome Outcome, bonus int) map[Seat]int {
	if that.Status == BetStatusCancelled || !that.IsSettleable() {
		return nil
	}

	if outcome.Kind != OutcomeWin {
		return nil
	}

	winner := outcome.Winner
	loser := winner.Other()
	winnerStake := *that.Bets[winner].Locked
	loserStake := *that.Bets[loser].Locked

	return map[Seat]int{
		winner: winnerStake + loserStake + bonus,
		loser:  -loserStake,
	}
}
