package entity

// Seat is one of the two fixed match positions. It is not a user identity:
// a reconnecting player gets the same seat back.
type Seat string

const (
	SeatA    Seat = "A"
	SeatB    Seat = "B"
	SeatNone Seat = ""
)

const (
	MarkA = "X"
	MarkB = "O"
)

func (that Seat) Other() Seat {
	if that == SeatA {
		return SeatB
	}
	return SeatA
}

// Mark - the symbol rendered for this seat on the board.
func (that Seat) Mark() string {
	if that == SeatA {
		return MarkA
	}
	return MarkB
}

func (that Seat) IsValid() bool {
	return that == SeatA || that == SeatB
}
