package matchmaking

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/registry"
)

const actionQueueCount = "queueCount"

// Entry is one waiting identity. The earlier-enqueued of a pair takes
// Seat A.
type Entry struct {
	Player   *entity.Player
	Sender   registry.Sender
	JoinedAt time.Time
}

// PairFunc receives the two oldest waiters whenever the queue can pair.
type PairFunc func(a, b *Entry)

// Queue is a plain FIFO. Pairing happens immediately whenever two entries
// are available, never batched, so nobody can starve behind a full pair.
type Queue struct {
	logger *slog.Logger
	onPair PairFunc

	mu      sync.Mutex
	entries []*Entry
}

func NewQueue(logger *slog.Logger, onPair PairFunc) *Queue {
	return &Queue{
		logger: logger.With("component", "matchmaking"),
		onPair: onPair,
	}
}

type queueCountPayload struct {
	Count int `json:"count"`
}

// Enqueue appends the identity unless it is already waiting; re-joining
// keeps the original position but adopts the new connection, so a waiter
// who reconnected is never paired on a dead handle.
func (that *Queue) Enqueue(player *entity.Player, sender registry.Sender) {
	that.mu.Lock()

	for _, entry := range that.entries {
		if entry.Player.ID == player.ID {
			entry.Player = player
			entry.Sender = sender
			that.mu.Unlock()
			return
		}
	}

	that.entries = append(that.entries, &Entry{
		Player:   player,
		Sender:   sender,
		JoinedAt: time.Now(),
	})

	paired := that.tryPairLocked()
	waiting := that.snapshotLocked()
	that.mu.Unlock()

	that.logger.Info("player enqueued", "playerID", player.ID, "depth", len(waiting))
	that.broadcastDepth(waiting)

	for _, pair := range paired {
		that.onPair(pair[0], pair[1])
	}
}

// Leave removes a still-waiting identity; absent or already-paired
// identities are a no-op.
func (that *Queue) Leave(playerID string) {
	that.mu.Lock()

	removed := false
	for i, entry := range that.entries {
		if entry.Player.ID == playerID {
			that.entries = append(that.entries[:i], that.entries[i+1:]...)
			removed = true
			break
		}
	}

	waiting := that.snapshotLocked()
	that.mu.Unlock()

	if removed {
		that.logger.Info("player left queue", "playerID", playerID, "depth", len(waiting))
		that.broadcastDepth(waiting)
	}
}

// Depth returns the current FIFO length.
func (that *Queue) Depth() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.entries)
}

func (that *Queue) tryPairLocked() [][2]*Entry {
	var paired [][2]*Entry
	for len(that.entries) >= 2 {
		a, b := that.entries[0], that.entries[1]
		that.entries = that.entries[2:]
		paired = append(paired, [2]*Entry{a, b})
	}
	return paired
}

func (that *Queue) snapshotLocked() []*Entry {
	waiting := make([]*Entry, len(that.entries))
	copy(waiting, that.entries)
	return waiting
}

func (that *Queue) broadcastDepth(waiting []*Entry) {
	payload := queueCountPayload{Count: len(waiting)}
	for _, entry := range waiting {
		entry.Sender.Send(actionQueueCount, payload)
	}
}
