package entity

// Player is a per-seat snapshot of an identity. The connection registry owns
// the durable identity; a session only carries this copy and refreshes the
// points after each settlement.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Points int    `json:"points"`
	Guest  bool   `json:"guest"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
	Seat   Seat   `json:"seat,omitempty"`
}

// Clone returns a copy safe to hand to an asynchronous writer while the
// live snapshot keeps refreshing.
func (that *Player) Clone() *Player {
	clone := *that
	return &clone
}
