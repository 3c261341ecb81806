package entity

// ChatMessage is one entry of a session's append-only chat stream. Seq is
// assigned by the relay in arrival order, not by client send time.
type ChatMessage struct {
	Seq      int    `json:"seq"`
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}
