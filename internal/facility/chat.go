// ABOUTME: Per-complex chat room held in memory for the running client
// ABOUTME: Unlike direct messages, room messages can be deleted

package facility

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// ChatRoom is the transient chat attached to one complex.
type ChatRoom struct {
	mu       sync.Mutex
	messages []ChatMessage
	now      func() time.Time
}

func newChatRoom(now func() time.Time) *ChatRoom {
	return &ChatRoom{now: now}
}

// Post appends a message. Blank text is rejected.
func (r *ChatRoom) Post(user, text string) (ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UnixMilli()
	id := now
	if n := len(r.messages); n > 0 && r.messages[n-1].ID >= id {
		id = r.messages[n-1].ID + 1
	}
	msg := ChatMessage{ID: id, User: user, Message: text, Timestamp: now}
	r.messages = append(r.messages, msg)
	return msg, nil
}

// Edit replaces the text of message id. It reports whether it was found.
func (r *ChatRoom) Edit(id int64, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.messages, func(m ChatMessage) bool { return m.ID == id })
	if i < 0 {
		return false
	}
	r.messages[i].Message = text
	return true
}

// Delete removes message id. It reports whether it was found.
func (r *ChatRoom) Delete(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.messages)
	r.messages = slices.DeleteFunc(r.messages, func(m ChatMessage) bool { return m.ID == id })
	return len(r.messages) != n
}

// Messages returns a copy of the room history.
func (r *ChatRoom) Messages() []ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}
