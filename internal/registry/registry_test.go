package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSender struct {
	closed bool
}

func (that *stubSender) Send(string, any) {}

func (that *stubSender) Close() {
	that.closed = true
}

func TestRegistry_Bind(t *testing.T) {
	t.Run("binding registers the sender", func(t *testing.T) {
		reg := New(slog.Default())
		sender := &stubSender{}

		reg.Bind("p1", sender)

		assert.Equal(t, 1, reg.Count())
		assert.False(t, sender.closed)
	})

	t.Run("rebinding closes the previous connection", func(t *testing.T) {
		reg := New(slog.Default())
		stale := &stubSender{}
		fresh := &stubSender{}

		reg.Bind("p1", stale)
		reg.Bind("p1", fresh)

		assert.True(t, stale.closed)
		assert.False(t, fresh.closed)
		assert.Equal(t, 1, reg.Count())
	})
}

func TestRegistry_Unbind(t *testing.T) {
	t.Run("current sender unbinds", func(t *testing.T) {
		reg := New(slog.Default())
		sender := &stubSender{}

		reg.Bind("p1", sender)

		assert.True(t, reg.Unbind("p1", sender))
		assert.Equal(t, 0, reg.Count())
	})

	t.Run("stale sender cannot unbind a reconnected identity", func(t *testing.T) {
		reg := New(slog.Default())
		stale := &stubSender{}
		fresh := &stubSender{}

		reg.Bind("p1", stale)
		reg.Bind("p1", fresh)

		// the stale connection's teardown races the reconnect and loses
		assert.False(t, reg.Unbind("p1", stale))
		assert.Equal(t, 1, reg.Count())

		// the fresh connection still owns the binding
		assert.True(t, reg.Unbind("p1", fresh))
		assert.Equal(t, 0, reg.Count())
	})

	t.Run("unknown identity is a no-op", func(t *testing.T) {
		reg := New(slog.Default())

		assert.False(t, reg.Unbind("stranger", &stubSender{}))
	})
}
