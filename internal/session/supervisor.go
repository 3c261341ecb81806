package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/matchmaking"
	"github.com/ttglive/ttg-backend/internal/pkg"
	"github.com/ttglive/ttg-backend/internal/registry"
)

// PlayerID returns the durable identity seated at seat.
func (that *Session) PlayerID(seat entity.Seat) string {
	return that.seats[seat].player.ID
}

// Supervisor watches connection liveness for every live session. A dropped
// seat gets a reconnect grace window; expiry turns into a forfeit, or into a
// silent discard when the other seat is gone too. Reconnects inside the
// window rebind the identity to its existing seat.
type Supervisor struct {
	logger   *slog.Logger
	clock    quartz.Clock
	cfg      Config
	grace    time.Duration
	accounts accountStore

	mu           sync.Mutex
	sessions     map[string]*Session
	byPlayer     map[string]*Session
	graceTimers  map[string]*quartz.Timer
	disconnected map[string]bool
}

func NewSupervisor(logger *slog.Logger, clock quartz.Clock, cfg Config, grace time.Duration, accounts accountStore) *Supervisor {
	return &Supervisor{
		logger:       logger.With("component", "supervisor"),
		clock:        clock,
		cfg:          cfg,
		grace:        grace,
		accounts:     accounts,
		sessions:     make(map[string]*Session),
		byPlayer:     make(map[string]*Session),
		graceTimers:  make(map[string]*quartz.Timer),
		disconnected: make(map[string]bool),
	}
}

// StartMatch seats the two paired waiters and launches the session worker.
// The earlier-enqueued entry takes Seat A.
func (that *Supervisor) StartMatch(ctx context.Context, a, b *matchmaking.Entry) {
	matchID := pkg.GenerateMatchID()

	sess := New(matchID, a.Player, b.Player, a.Sender, b.Sender, that.cfg, that.clock, that.accounts, that.logger, that.release)

	that.mu.Lock()
	that.sessions[matchID] = sess
	that.byPlayer[a.Player.ID] = sess
	that.byPlayer[b.Player.ID] = sess
	that.mu.Unlock()

	that.logger.Info("match created", "matchID", matchID, "seatA", a.Player.ID, "seatB", b.Player.ID)

	go sess.Run(ctx)
}

// SessionFor resolves an identity to its live session and seat.
func (that *Supervisor) SessionFor(playerID string) (*Session, entity.Seat, bool) {
	that.mu.Lock()
	sess, ok := that.byPlayer[playerID]
	that.mu.Unlock()

	if !ok {
		return nil, entity.SeatNone, false
	}

	seat, ok := sess.SeatOf(playerID)
	return sess, seat, ok
}

// PlayerDropped reports a connection loss. Nothing happens to the session
// until the grace window runs out; with a zero grace it runs out now.
func (that *Supervisor) PlayerDropped(playerID string) {
	that.mu.Lock()

	sess, ok := that.byPlayer[playerID]
	if !ok {
		that.mu.Unlock()
		return
	}

	that.disconnected[playerID] = true

	if that.grace <= 0 {
		that.mu.Unlock()
		that.graceExpired(playerID, sess)
		return
	}

	if _, pending := that.graceTimers[playerID]; !pending {
		that.graceTimers[playerID] = that.clock.AfterFunc(that.grace, func() {
			that.mu.Lock()
			delete(that.graceTimers, playerID)
			that.mu.Unlock()

			that.graceExpired(playerID, sess)
		})
	}
	that.mu.Unlock()

	that.logger.Info("seat disconnected, grace window started", "playerID", playerID, "grace", that.grace)
}

// TryRebind reconnects an identity to its running session. Returns false if
// no session is waiting on this identity anymore.
func (that *Supervisor) TryRebind(playerID string, sender registry.Sender) bool {
	that.mu.Lock()

	sess, ok := that.byPlayer[playerID]
	if !ok {
		that.mu.Unlock()
		return false
	}

	select {
	case <-sess.Done():
		that.mu.Unlock()
		return false
	default:
	}

	if timer, pending := that.graceTimers[playerID]; pending {
		timer.Stop()
		delete(that.graceTimers, playerID)
	}
	delete(that.disconnected, playerID)
	that.mu.Unlock()

	seat, ok := sess.SeatOf(playerID)
	if !ok {
		return false
	}

	sess.HandleRebind(seat, sender)
	return true
}

// Count reports the number of live sessions.
func (that *Supervisor) Count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.sessions)
}

func (that *Supervisor) graceExpired(playerID string, sess *Session) {
	seat, ok := sess.SeatOf(playerID)
	if !ok {
		return
	}

	that.mu.Lock()
	stillGone := that.disconnected[playerID]
	otherGone := that.disconnected[sess.PlayerID(seat.Other())]
	that.mu.Unlock()

	if !stillGone {
		return
	}

	if otherGone {
		// server-restart style loss of both peers: abnormal termination,
		// balances untouched
		sess.Discard()
		return
	}

	sess.HandlePeerDropped(seat)
}

// release is the session's onFinished hook; it tears down all supervisor
// bookkeeping for the match.
func (that *Supervisor) release(sess *Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, sess.ID())

	for _, seat := range []entity.Seat{entity.SeatA, entity.SeatB} {
		playerID := sess.PlayerID(seat)
		if that.byPlayer[playerID] == sess {
			delete(that.byPlayer, playerID)
			delete(that.disconnected, playerID)
			if timer, pending := that.graceTimers[playerID]; pending {
				timer.Stop()
				delete(that.graceTimers, playerID)
			}
		}
	}

	that.logger.Info("session released", "matchID", sess.ID())
}
