package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/quartz"
	"github.com/ttglive/ttg-backend/internal/apperror"
	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/registry"
	"github.com/ttglive/ttg-backend/internal/repository"
)

const (
	StateAwaitingBet  = "awaiting-bet"
	StatePlaying      = "playing"
	StateRoundSettled = "round-settled"
	StateFinished     = "finished"
)

// settleRetries bounds how often a failed balance write is retried before
// the round is flagged settle-pending.
const settleRetries = 4

const eventQueueSize = 64

type accountStore interface {
	ApplyDelta(ctx context.Context, id string, delta int) (int, error)
	RecordResult(ctx context.Context, id, result string) error
}

type Config struct {
	BetWindow  time.Duration
	Rounds     int
	WinBonus   int
	ChatMaxLen int
}

type seatState struct {
	player    *entity.Player
	sender    registry.Sender
	connected bool
}

// Session is the authoritative state machine for one match. All mutation
// happens on the Run goroutine, fed by a single ordered event queue; the
// exported Handle methods only enqueue. This serializes I/O-driven moves and
// bets against the time-driven betting window by construction.
type Session struct {
	id       string
	logger   *slog.Logger
	clock    quartz.Clock
	cfg      Config
	accounts accountStore

	events chan event
	done   chan struct{}

	onFinished func(*Session)

	// the fields below are owned by the Run goroutine
	state    string
	game     *entity.Game
	bet      *entity.BettingRound
	history  []*entity.BettingRound
	round    int
	seats    map[entity.Seat]*seatState
	chatSeq  int
	chatLog  []entity.ChatMessage
	betTimer *quartz.Timer
}

func New(
	id string,
	playerA, playerB *entity.Player,
	senderA, senderB registry.Sender,
	cfg Config,
	clock quartz.Clock,
	accounts accountStore,
	logger *slog.Logger,
	onFinished func(*Session),
) *Session {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	if cfg.ChatMaxLen <= 0 {
		cfg.ChatMaxLen = 500
	}

	playerA.Seat = entity.SeatA
	playerB.Seat = entity.SeatB

	return &Session{
		id:         id,
		logger:     logger.With("component", "session", "matchID", id),
		clock:      clock,
		cfg:        cfg,
		accounts:   accounts,
		events:     make(chan event, eventQueueSize),
		done:       make(chan struct{}),
		onFinished: onFinished,
		seats: map[entity.Seat]*seatState{
			entity.SeatA: {player: playerA, sender: senderA, connected: true},
			entity.SeatB: {player: playerB, sender: senderB, connected: true},
		},
	}
}

func (that *Session) ID() string {
	return that.id
}

// Done is closed once the session has finished or been discarded.
func (that *Session) Done() <-chan struct{} {
	return that.done
}

// SeatOf maps a durable identity to its seat. Seat assignment is immutable
// for the session's lifetime, so this is safe from any goroutine.
func (that *Session) SeatOf(playerID string) (entity.Seat, bool) {
	for seat, state := range that.seats {
		if state.player.ID == playerID {
			return seat, true
		}
	}
	return entity.SeatNone, false
}

// Run owns the session state until the match finishes or ctx is canceled.
func (that *Session) Run(ctx context.Context) {
	that.startRound()

	for {
		select {
		case <-ctx.Done():
			// application shutdown: release the session so pending timers
			// and enqueuers observe the closed done channel
			that.discard()
			return
		case <-that.done:
			return
		case ev := <-that.events:
			that.dispatch(ctx, ev)
		}
	}
}

func (that *Session) HandleMove(seat entity.Seat, cell int) {
	that.enqueue(moveEvent{seat: seat, cell: cell})
}

func (that *Session) HandleBetUpdate(seat entity.Seat, amount int) {
	that.enqueue(betUpdateEvent{seat: seat, amount: amount})
}

func (that *Session) HandleBetLock(seat entity.Seat) {
	that.enqueue(betLockEvent{seat: seat})
}

func (that *Session) HandleChat(seat entity.Seat, text string) {
	that.enqueue(chatEvent{seat: seat, text: text})
}

func (that *Session) HandlePeerDropped(seat entity.Seat) {
	that.enqueue(peerDroppedEvent{seat: seat})
}

func (that *Session) HandleRebind(seat entity.Seat, sender registry.Sender) {
	that.enqueue(rebindEvent{seat: seat, sender: sender})
}

// Discard terminates without settlement side effects, e.g. when both seats
// vanished at once.
func (that *Session) Discard() {
	that.enqueue(discardEvent{})
}

func (that *Session) enqueue(ev event) {
	select {
	case that.events <- ev:
	case <-that.done:
	}
}

func (that *Session) dispatch(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case moveEvent:
		that.applyMove(ctx, ev)
	case betUpdateEvent:
		that.applyBetUpdate(ev)
	case betLockEvent:
		that.applyBetLock(ev)
	case betWindowExpiredEvent:
		that.applyBetWindowExpired(ev)
	case chatEvent:
		that.applyChat(ev)
	case peerDroppedEvent:
		that.applyPeerDropped(ctx, ev)
	case rebindEvent:
		that.applyRebind(ev)
	case discardEvent:
		that.discard()
	}
}

// startRound resets the board and opens a fresh betting window. Seat A
// always opens; the window timer is tagged with the round sequence so a
// stale expiry after an early close is recognizable.
func (that *Session) startRound() {
	that.round++
	that.game = entity.NewGame()
	that.bet = entity.NewBettingRound(that.round, that.clock.Now().Add(that.cfg.BetWindow))
	that.history = append(that.history, that.bet)
	that.state = StateAwaitingBet

	seq := that.bet.Seq
	that.betTimer = that.clock.AfterFunc(that.cfg.BetWindow, func() {
		that.enqueue(betWindowExpiredEvent{seq: seq})
	})

	if that.round == 1 {
		for seat := range that.seats {
			that.sendTo(seat, ActionGameStart, that.startPayloadFor(seat))
		}
		that.logger.Info("match started")
		return
	}

	that.broadcast(ActionGameUpdate, that.snapshot())
	that.logger.Info("round started", "round", that.round)
}

func (that *Session) applyMove(ctx context.Context, ev moveEvent) {
	switch that.state {
	case StatePlaying:
	case StateAwaitingBet:
		that.sendTo(ev.seat, ActionMakeMove, ErrorPayload{Error: apperror.ErrBettingOpen.Error()})
		return
	default:
		that.logger.Warn("move dropped outside playing state", "seat", ev.seat, "state", that.state)
		return
	}

	if err := that.game.MakeMove(ev.seat, ev.cell); err != nil {
		that.sendTo(ev.seat, ActionMakeMove, ErrorPayload{Error: err.Error()})
		return
	}

	that.broadcast(ActionGameUpdate, that.snapshot())

	if that.game.Outcome.IsTerminal() {
		that.settleRound(ctx)
	}
}

func (that *Session) applyBetUpdate(ev betUpdateEvent) {
	if that.state != StateAwaitingBet {
		that.sendTo(ev.seat, ActionBetError, ErrorPayload{Error: apperror.ErrBettingClosed.Error()})
		return
	}

	balance := that.seats[ev.seat].player.Points
	if err := that.bet.UpdatePending(ev.seat, ev.amount, balance); err != nil {
		that.sendTo(ev.seat, ActionBetError, ErrorPayload{Error: err.Error()})
		return
	}

	that.broadcast(ActionBetUpdate, that.bet.Clone())
}

func (that *Session) applyBetLock(ev betLockEvent) {
	if that.state != StateAwaitingBet {
		// lock raced the window close; absorbed
		return
	}

	if that.bet.Bets[ev.seat].IsLocked() {
		// duplicate lock; absorbed
		return
	}

	that.bet.Lock(ev.seat)
	that.broadcast(ActionBetUpdate, that.bet.Clone())

	if that.bet.Status == entity.BetStatusLockedBoth {
		that.closeBetting()
	}
}

func (that *Session) applyBetWindowExpired(ev betWindowExpiredEvent) {
	if that.state != StateAwaitingBet || ev.seq != that.bet.Seq {
		// stale timer from an earlier round; absorbed
		return
	}

	that.closeBetting()
}

// closeBetting ends the window exactly once per round: unlocked pending
// amounts are forced in, then the round becomes live or cancelled.
func (that *Session) closeBetting() {
	that.stopBetTimer()
	that.bet.ForceLockAll()
	that.bet.Close()

	cancelled := that.bet.Status == entity.BetStatusCancelled
	that.broadcast(ActionBettingClosed, BettingClosedPayload{Bet: that.bet.Clone(), Cancelled: cancelled})
	that.state = StatePlaying

	that.logger.Info("betting window closed", "round", that.round, "cancelled", cancelled)
}

func (that *Session) applyChat(ev chatEvent) {
	text := strings.TrimSpace(ev.text)

	switch {
	case text == "":
		that.sendTo(ev.seat, ActionChatMessage, ErrorPayload{Error: apperror.ErrEmptyChatText.Error()})
		return
	case len(text) > that.cfg.ChatMaxLen:
		that.sendTo(ev.seat, ActionChatMessage, ErrorPayload{Error: apperror.ErrChatTooLong.Error()})
		return
	}

	that.chatSeq++
	message := entity.ChatMessage{
		Seq:      that.chatSeq,
		SenderID: that.seats[ev.seat].player.ID,
		Text:     text,
	}
	that.chatLog = append(that.chatLog, message)

	// echo to both seats, sender included, so every client renders from the
	// same authoritative order
	that.broadcast(ActionChatMessage, message)
}

func (that *Session) applyPeerDropped(ctx context.Context, ev peerDroppedEvent) {
	state := that.seats[ev.seat]
	state.connected = false

	if !that.seats[ev.seat.Other()].connected {
		that.discard()
		return
	}

	remaining := ev.seat.Other()
	that.logger.Info("peer dropped, forfeiting", "seat", ev.seat, "winner", remaining)

	that.stopBetTimer()
	that.bet.Cancel()
	that.game.Forfeit(remaining)
	that.recordResults(ctx)

	that.sendTo(remaining, ActionOpponentLeft, OpponentLeftPayload{Outcome: that.game.Outcome})
	that.sendTo(remaining, ActionGameUpdate, that.snapshot())

	that.finish()
}

func (that *Session) applyRebind(ev rebindEvent) {
	state := that.seats[ev.seat]
	state.sender = ev.sender
	state.connected = true

	that.logger.Info("seat rebound after reconnect", "seat", ev.seat)
	that.sendTo(ev.seat, ActionGameStart, that.startPayloadFor(ev.seat))
}

// settleRound applies bet settlement and stats for a terminal round, then
// either opens the next round or finishes the match.
func (that *Session) settleRound(ctx context.Context) {
	that.state = StateRoundSettled
	that.stopBetTimer()

	for seat, delta := range that.bet.Settlement(that.game.Outcome, that.cfg.WinBonus) {
		that.applyDelta(ctx, seat, delta)
	}

	that.recordResults(ctx)
	that.broadcast(ActionGameUpdate, that.snapshot())

	if that.round >= that.cfg.Rounds {
		that.finish()
		return
	}

	that.startRound()
}

// applyDelta is the only place a balance moves: one atomic increment per
// seat per round, retried on a bounded budget.
func (that *Session) applyDelta(ctx context.Context, seat entity.Seat, delta int) {
	player := that.seats[seat].player

	operation := func() error {
		balance, err := that.accounts.ApplyDelta(ctx, player.ID, delta)
		if err != nil {
			return err
		}
		player.Points = balance
		return nil
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), settleRetries))
	if err != nil {
		that.bet.SettlePending = true
		that.logger.Error("settlement delta not applied, flagged for out-of-band correction",
			"playerID", player.ID, "delta", delta, "error", err)
	}
}

func (that *Session) recordResults(ctx context.Context) {
	results := make(map[entity.Seat]string, 2)

	switch that.game.Outcome.Kind {
	case entity.OutcomeWin, entity.OutcomeForfeit:
		winner := that.game.Outcome.Winner
		results[winner] = repository.ResultWin
		results[winner.Other()] = repository.ResultLoss
	case entity.OutcomeDraw:
		results[entity.SeatA] = repository.ResultDraw
		results[entity.SeatB] = repository.ResultDraw
	default:
		return
	}

	for seat, result := range results {
		if err := that.accounts.RecordResult(ctx, that.seats[seat].player.ID, result); err != nil {
			that.logger.Error("failed to record result", "seat", seat, "error", err)
		}
	}
}

func (that *Session) discard() {
	that.logger.Warn("session discarded without settlement")
	that.stopBetTimer()
	if that.bet != nil {
		that.bet.Cancel()
	}
	that.finish()
}

func (that *Session) finish() {
	that.state = StateFinished
	that.stopBetTimer()
	close(that.done)

	if that.onFinished != nil {
		that.onFinished(that)
	}
}

func (that *Session) stopBetTimer() {
	if that.betTimer != nil {
		that.betTimer.Stop()
		that.betTimer = nil
	}
}

// snapshot deep-copies everything mutable: the payload is marshaled later
// by the transport's write pump, after this goroutine has moved on.
func (that *Session) snapshot() GameUpdatePayload {
	return GameUpdatePayload{
		Round:       that.round,
		Board:       that.game.Board,
		Turn:        that.game.Turn,
		Outcome:     that.game.Outcome,
		Players:     that.playersView(),
		Bet:         that.bet.Clone(),
		BettingOpen: that.state == StateAwaitingBet,
	}
}

func (that *Session) startPayloadFor(seat entity.Seat) GameStartPayload {
	return GameStartPayload{
		MatchID:     that.id,
		Seat:        seat,
		Round:       that.round,
		Board:       that.game.Board,
		Turn:        that.game.Turn,
		Outcome:     that.game.Outcome,
		Players:     that.playersView(),
		Bet:         that.bet.Clone(),
		BettingOpen: that.state == StateAwaitingBet,
	}
}

func (that *Session) playersView() map[entity.Seat]*entity.Player {
	return map[entity.Seat]*entity.Player{
		entity.SeatA: that.seats[entity.SeatA].player.Clone(),
		entity.SeatB: that.seats[entity.SeatB].player.Clone(),
	}
}

func (that *Session) broadcast(action string, payload any) {
	for _, state := range that.seats {
		if state.sender != nil {
			state.sender.Send(action, payload)
		}
	}
}

func (that *Session) sendTo(seat entity.Seat, action string, payload any) {
	if state := that.seats[seat]; state.sender != nil {
		state.sender.Send(action, payload)
	}
}
