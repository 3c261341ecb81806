package session

import (
	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/registry"
)

// Every mutation of a session flows through one of these events on a single
// ordered queue; the owning goroutine is the only writer of session state.

// event is sealed: only the types below can enter the queue.
type event interface {
	isEvent()
}

type moveEvent struct {
	seat entity.Seat
	cell int
}

type betUpdateEvent struct {
	seat   entity.Seat
	amount int
}

type betLockEvent struct {
	seat entity.Seat
}

// betWindowExpiredEvent carries the round sequence it was armed for; a
// stale sequence makes the event a silent no-op.
type betWindowExpiredEvent struct {
	seq int
}

type chatEvent struct {
	seat entity.Seat
	text string
}

type peerDroppedEvent struct {
	seat entity.Seat
}

type rebindEvent struct {
	seat   entity.Seat
	sender registry.Sender
}

// discardEvent ends the session without settlement side effects, used when
// both seats are gone at once.
type discardEvent struct{}

func (moveEvent) isEvent()             {}
func (betUpdateEvent) isEvent()        {}
func (betLockEvent) isEvent()          {}
func (betWindowExpiredEvent) isEvent() {}
func (chatEvent) isEvent()             {}
func (peerDroppedEvent) isEvent()      {}
func (rebindEvent) isEvent()           {}
func (discardEvent) isEvent()          {}
