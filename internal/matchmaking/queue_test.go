package matchmaking

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttglive/ttg-backend/internal/entity"
)

type stubSender struct {
	mu      sync.Mutex
	actions []string
}

func (that *stubSender) Send(action string, _ any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.actions = append(that.actions, action)
}

func (that *stubSender) Close() {}

func (that *stubSender) count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.actions)
}

func newTestQueue(t *testing.T) (*Queue, *[][2]*Entry) {
	t.Helper()

	var pairs [][2]*Entry
	queue := NewQueue(slog.Default(), func(a, b *Entry) {
		pairs = append(pairs, [2]*Entry{a, b})
	})

	return queue, &pairs
}

func TestQueue_Enqueue(t *testing.T) {
	t.Run("single waiter stays queued", func(t *testing.T) {
		queue, pairs := newTestQueue(t)

		queue.Enqueue(&entity.Player{ID: "p1"}, &stubSender{})

		assert.Equal(t, 1, queue.Depth())
		assert.Empty(t, *pairs)
	})

	t.Run("second waiter pairs immediately in arrival order", func(t *testing.T) {
		queue, pairs := newTestQueue(t)

		queue.Enqueue(&entity.Player{ID: "p1"}, &stubSender{})
		queue.Enqueue(&entity.Player{ID: "p2"}, &stubSender{})

		require.Len(t, *pairs, 1)
		pair := (*pairs)[0]
		assert.Equal(t, "p1", pair[0].Player.ID)
		assert.Equal(t, "p2", pair[1].Player.ID)
		assert.Equal(t, 0, queue.Depth())
	})

	t.Run("rejoining the queue is idempotent", func(t *testing.T) {
		queue, pairs := newTestQueue(t)

		queue.Enqueue(&entity.Player{ID: "p1"}, &stubSender{})
		queue.Enqueue(&entity.Player{ID: "p1"}, &stubSender{})

		assert.Equal(t, 1, queue.Depth())
		assert.Empty(t, *pairs)
	})

	t.Run("rejoining from a fresh connection adopts the new sender", func(t *testing.T) {
		queue, pairs := newTestQueue(t)
		stale := &stubSender{}
		fresh := &stubSender{}

		queue.Enqueue(&entity.Player{ID: "p1"}, stale)
		queue.Enqueue(&entity.Player{ID: "p1"}, fresh)
		queue.Enqueue(&entity.Player{ID: "p2"}, &stubSender{})

		require.Len(t, *pairs, 1)
		pair := (*pairs)[0]
		assert.Equal(t, "p1", pair[0].Player.ID)
		assert.Same(t, fresh, pair[0].Sender)
	})

	t.Run("odd waiter is left for the next arrival", func(t *testing.T) {
		queue, pairs := newTestQueue(t)

		queue.Enqueue(&entity.Player{ID: "p1"}, &stubSender{})
		queue.Enqueue(&entity.Player{ID: "p2"}, &stubSender{})
		queue.Enqueue(&entity.Player{ID: "p3"}, &stubSender{})

		require.Len(t, *pairs, 1)
		assert.Equal(t, 1, queue.Depth())

		queue.Enqueue(&entity.Player{ID: "p4"}, &stubSender{})

		require.Len(t, *pairs, 2)
		assert.Equal(t, "p3", (*pairs)[1][0].Player.ID)
		assert.Equal(t, "p4", (*pairs)[1][1].Player.ID)
	})
}

func TestQueue_Leave(t *testing.T) {
	t.Run("waiter can leave before pairing", func(t *testing.T) {
		queue, pairs := newTestQueue(t)

		queue.Enqueue(&entity.Player{ID: "p1"}, &stubSender{})
		queue.Leave("p1")
		queue.Enqueue(&entity.Player{ID: "p2"}, &stubSender{})

		assert.Empty(t, *pairs)
		assert.Equal(t, 1, queue.Depth())
	})

	t.Run("leaving when absent is a no-op", func(t *testing.T) {
		queue, _ := newTestQueue(t)

		queue.Leave("stranger")

		assert.Equal(t, 0, queue.Depth())
	})
}

func TestQueue_DepthBroadcast(t *testing.T) {
	t.Run("remaining waiters hear the depth change", func(t *testing.T) {
		queue, _ := newTestQueue(t)
		sender := &stubSender{}

		queue.Enqueue(&entity.Player{ID: "p1"}, sender)
		sent := sender.count()

		queue.Enqueue(&entity.Player{ID: "p2"}, &stubSender{})
		queue.Enqueue(&entity.Player{ID: "p3"}, &stubSender{})

		// p1 was paired away before p3 arrived, so no further depth updates
		assert.Equal(t, sent, sender.count())
	})
}
