// ABOUTME: Data types persisted in the user-scoped slices
// ABOUTME: JSON shapes match what the browser app wrote to local storage

package userstate

// FriendStatus is the state of a one-directional friend relation
type FriendStatus string

// Friend statuses
const (
	StatusPending  FriendStatus = "pending"
	StatusAccepted FriendStatus = "accepted"
)

// Relation is a friend record owned by the current identity
type Relation struct {
	ID     string       `json:"id"`
	Status FriendStatus `json:"status"`
}

// Reactions maps an emoji to the identities that reacted with it. An emoji
// whose set becomes empty is deleted, never stored empty.
type Reactions map[string][]string

// Message is one direct message within a conversation
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Text      string    `json:"message"`
	Timestamp int64     `json:"timestamp"` // milliseconds since epoch
	Reactions Reactions `json:"reactions,omitempty"`
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = make(Reactions, len(m.Reactions))
		for emoji, who := range m.Reactions {
			out.Reactions[emoji] = append([]string(nil), who...)
		}
	}
	return out
}
