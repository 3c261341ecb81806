package registry

import (
	"log/slog"
	"sync"
)

// Sender is a live outbound handle for one client. Send must never block the
// caller: transport implementations queue the message and deal with slow or
// dead peers on their own.
type Sender interface {
	Send(action string, payload any)
	Close()
}

// Registry maps durable identities to their live connection handles.
// Rebinding the same identity replaces the previous handle, which is how a
// reconnecting client takes over its own stale connection.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]Sender
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger.With("component", "registry"),
		conns:  make(map[string]Sender),
	}
}

// Bind associates the identity with a sender, closing any previous one.
func (that *Registry) Bind(id string, sender Sender) {
	that.mu.Lock()
	previous, existed := that.conns[id]
	that.conns[id] = sender
	that.mu.Unlock()

	if existed && previous != sender {
		that.logger.Info("identity rebound to a new connection", "playerID", id)
		previous.Close()
	}
}

// Unbind removes the binding, but only if sender is still the current one;
// a reconnect that already rebound the identity is left alone.
func (that *Registry) Unbind(id string, sender Sender) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	current, ok := that.conns[id]
	if !ok || current != sender {
		return false
	}

	delete(that.conns, id)
	return true
}

// Count reports the number of live bindings.
func (that *Registry) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.conns)
}
