// ABOUTME: In-memory fan-out of messenger events to interested identities
// ABOUTME: Lets the shell print replies as they land without polling

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/sportzone/internal/userstate"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// EventKind says what happened to a conversation
type EventKind string

// Event kinds
const (
	EventMessage  EventKind = "message"
	EventEdited   EventKind = "edited"
	EventReaction EventKind = "reaction"
	EventRead     EventKind = "read"
)

// Event describes one applied messenger mutation
type Event struct {
	Kind           EventKind
	ConversationID string
	Message        userstate.Message
	Unread         int // total unread after the change
}

// EventBroadcaster provides in-memory pub/sub keyed by identity. Both
// participants of a conversation receive its events.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // identity -> subID -> ch
	logger      *slog.Logger
}

// NewEventBroadcaster creates a broadcaster. Pass nil logger for default.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers for events addressed to identity. The subscription is
// removed and its channel closed when ctx is cancelled.
func (b *EventBroadcaster) Subscribe(ctx context.Context, identity string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[identity]; !ok {
		b.subscribers[identity] = make(map[string]chan Event)
	}
	b.subscribers[identity][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "identity", identity, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(identity, subID)
	}()

	return ch, subID
}

// Publish delivers event to every subscriber of the listed identities.
// Non-blocking: events are dropped for subscribers whose channels are full.
func (b *EventBroadcaster) Publish(event Event, identities ...string) {
	// Sends happen under the read lock so Unsubscribe cannot close a channel mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]bool, len(identities))
	for _, identity := range identities {
		if seen[identity] {
			continue
		}
		seen[identity] = true

		for _, ch := range b.subscribers[identity] {
			select {
			case ch <- event:
			default:
				b.logger.Debug("dropped event for slow subscriber",
					"identity", identity,
					"conversation_id", event.ConversationID)
			}
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *EventBroadcaster) Unsubscribe(identity, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[identity]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, identity)
	}

	b.logger.Debug("subscriber removed", "identity", identity, "sub_id", subID)
}

// Close closes all subscriber channels.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for identity, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, identity)
	}

	b.logger.Debug("broadcaster closed")
}
