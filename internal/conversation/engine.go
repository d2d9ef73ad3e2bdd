// ABOUTME: Direct messenger over the user-scoped conversation and unread slices
// ABOUTME: Sends, edits, reactions, conversation listing and simulated replies

package conversation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/2389/sportzone/internal/auth"
	"github.com/2389/sportzone/internal/userstate"
)

// Errors returned by the engine
var (
	ErrNotAuthenticated = errors.New("no user is logged in")
	ErrEmptyMessage     = errors.New("message text is empty")
)

// DefaultAutoReply is the text of simulated replies.
const DefaultAutoReply = "عالیه! این یک پاسخ خودکار است."

// DefaultEditWindow is how long after sending a message may still be edited.
const DefaultEditWindow = 60 * time.Second

// Reactions is the emoji palette offered for reacting to a message.
var Reactions = []string{"👍", "❤️", "😂", "😮", "😢", "🙏"}

// ID returns the conversation id shared by a and b.
func ID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "--" + b
}

// Summary is one row of the conversation list
type Summary struct {
	Peer        string
	ID          string
	LastMessage *userstate.Message
	Unread      int
}

// Options tunes an Engine
type Options struct {
	AutoReplyText string
	Now           func() time.Time
}

// Engine applies messenger mutations to the loaded user's state.
type Engine struct {
	state     *userstate.State
	session   *auth.Session
	events    *EventBroadcaster
	replies   *scheduler
	unwatch   func()
	autoReply string
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an engine bound to session. events may be nil.
func New(state *userstate.State, session *auth.Session, events *EventBroadcaster, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AutoReplyText == "" {
		opts.AutoReplyText = DefaultAutoReply
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if events == nil {
		events = NewEventBroadcaster(logger)
	}

	e := &Engine{
		state:     state,
		session:   session,
		events:    events,
		autoReply: opts.AutoReplyText,
		now:       opts.Now,
		logger:    logger.With("component", "conversation"),
	}
	e.replies = newScheduler(e.logger)
	e.unwatch = session.Subscribe(func(prev, next string) {
		if n := e.replies.cancelAll(); n > 0 {
			e.logger.Info("cancelled pending replies", "count", n, "from", prev, "to", next)
		}
	})
	return e
}

// Events returns the broadcaster mutations are published on.
func (e *Engine) Events() *EventBroadcaster {
	return e.events
}

// Close stops following the session and cancels pending replies.
func (e *Engine) Close() {
	e.unwatch()
	e.replies.cancelAll()
}

// current returns the logged-in identity when it is also the one loaded.
func (e *Engine) current() (string, bool) {
	identity, ok := e.session.Current()
	if !ok || identity != e.state.Identity() {
		return "", false
	}
	return identity, true
}

// Send appends a message from sender to receiver and persists it.
func (e *Engine) Send(ctx context.Context, sender, receiver, text string) (userstate.Message, error) {
	identity, ok := e.current()
	if !ok || identity != sender {
		return userstate.Message{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(text) == "" {
		return userstate.Message{}, ErrEmptyMessage
	}

	msg, ok := e.appendMessage(ctx, identity, sender, receiver, text, false)
	if !ok {
		return userstate.Message{}, ErrNotAuthenticated
	}
	e.logger.Debug("message sent", "conversation_id", ID(sender, receiver), "id", msg.ID)
	e.publish(EventMessage, msg)
	return msg, nil
}

// appendMessage stores a new message in the conversations of identity and,
// when countUnread is set, bumps the counter of its conversation. It reports
// false when identity was unloaded before the write could happen.
func (e *Engine) appendMessage(ctx context.Context, identity, sender, receiver, text string, countUnread bool) (userstate.Message, bool) {
	convID := ID(sender, receiver)
	now := e.now().UnixMilli()
	var msg userstate.Message

	ok := e.state.UpdateMessenger(ctx, identity, func(dms map[string][]userstate.Message, unread map[string]int) (bool, bool) {
		msgs := dms[convID]
		id := now
		if n := len(msgs); n > 0 && msgs[n-1].ID >= id {
			id = msgs[n-1].ID + 1
		}
		msg = userstate.Message{
			ID:        id,
			Sender:    sender,
			Receiver:  receiver,
			Text:      text,
			Timestamp: now,
		}
		dms[convID] = append(msgs, msg)
		if countUnread {
			unread[convID]++
		}
		return true, countUnread
	})
	return msg, ok
}

// findMessage returns the index of msgID within msgs.
func findMessage(msgs []userstate.Message, msgID int64) int {
	return slices.IndexFunc(msgs, func(m userstate.Message) bool { return m.ID == msgID })
}

// EditMessage replaces the text of a message the current identity sent.
// Anything else (missing message, no session, someone else's message) is a
// silent no-op. It reports whether the message changed.
func (e *Engine) EditMessage(ctx context.Context, convID string, msgID int64, text string) bool {
	identity, ok := e.current()
	if !ok {
		return false
	}

	var edited userstate.Message
	changed := e.state.UpdateConversations(ctx, identity, func(dms map[string][]userstate.Message) bool {
		msgs := dms[convID]
		i := findMessage(msgs, msgID)
		if i < 0 || msgs[i].Sender != identity {
			return false
		}
		msgs[i].Text = text
		edited = msgs[i].Clone()
		return true
	})
	if changed {
		e.publish(EventEdited, edited)
	}
	return changed
}

// Editable reports whether the current identity may still edit msg at now.
func (e *Engine) Editable(msg userstate.Message, now time.Time, window time.Duration) bool {
	identity, ok := e.current()
	if !ok || msg.Sender != identity {
		return false
	}
	return now.UnixMilli()-msg.Timestamp < window.Milliseconds()
}

// ToggleReaction adds or removes the current identity from the emoji set of
// a message. It reports whether anything changed.
func (e *Engine) ToggleReaction(ctx context.Context, convID string, msgID int64, emoji string) bool {
	identity, ok := e.current()
	if !ok {
		return false
	}

	var reacted userstate.Message
	changed := e.state.UpdateConversations(ctx, identity, func(dms map[string][]userstate.Message) bool {
		msgs := dms[convID]
		i := findMessage(msgs, msgID)
		if i < 0 {
			return false
		}
		if msgs[i].Reactions == nil {
			msgs[i].Reactions = userstate.Reactions{}
		}

		who := msgs[i].Reactions[emoji]
		if j := slices.Index(who, identity); j >= 0 {
			who = slices.Delete(who, j, j+1)
		} else {
			who = append(who, identity)
		}
		if len(who) == 0 {
			delete(msgs[i].Reactions, emoji)
		} else {
			msgs[i].Reactions[emoji] = who
		}
		if len(msgs[i].Reactions) == 0 {
			msgs[i].Reactions = nil
		}
		reacted = msgs[i].Clone()
		return true
	})
	if changed {
		e.publish(EventReaction, reacted)
	}
	return changed
}

// ListConversationsFor returns one summary per accepted friend of identity,
// most recent activity first. Friends without messages sort last.
func (e *Engine) ListConversationsFor(identity string) []Summary {
	if identity == "" || identity != e.state.Identity() {
		return nil
	}
	unread := e.state.Unread()

	var out []Summary
	for _, rel := range e.state.Friends() {
		if rel.Status != userstate.StatusAccepted {
			continue
		}
		convID := ID(identity, rel.ID)
		s := Summary{Peer: rel.ID, ID: convID, Unread: unread[convID]}
		if msgs := e.state.Messages(convID); len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			s.LastMessage = &last
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := lastTimestamp(out[i]), lastTimestamp(out[j])
		if ti != tj {
			return ti > tj
		}
		return out[i].Peer < out[j].Peer
	})
	return out
}

func lastTimestamp(s Summary) int64 {
	if s.LastMessage == nil {
		return math.MinInt64
	}
	return s.LastMessage.Timestamp
}

// MessagesIn returns a snapshot of one conversation in insertion order.
func (e *Engine) MessagesIn(convID string) []userstate.Message {
	return e.state.Messages(convID)
}

// SimulateReply appends the automated reply from -> to and counts it as
// unread. to must be the current identity.
func (e *Engine) SimulateReply(ctx context.Context, from, to string) (userstate.Message, error) {
	identity, ok := e.current()
	if !ok || identity != to {
		return userstate.Message{}, ErrNotAuthenticated
	}

	msg, ok := e.appendMessage(ctx, identity, from, to, e.autoReply, true)
	if !ok {
		return userstate.Message{}, ErrNotAuthenticated
	}
	e.logger.Debug("simulated reply", "conversation_id", ID(from, to), "id", msg.ID)
	e.publish(EventMessage, msg)
	return msg, nil
}

// ScheduleReply arranges a SimulateReply after delay and returns its task id.
// The task is dropped if the session identity changes first.
func (e *Engine) ScheduleReply(from, to string, delay time.Duration) string {
	return e.replies.schedule(delay, func() {
		if _, err := e.SimulateReply(context.Background(), from, to); err != nil {
			e.logger.Debug("scheduled reply skipped", "from", from, "to", to, "error", err)
		}
	})
}

// CancelReply cancels one scheduled reply. It reports whether it was pending.
func (e *Engine) CancelReply(taskID string) bool {
	return e.replies.cancel(taskID)
}

// PendingReplies returns the number of scheduled replies not yet fired.
func (e *Engine) PendingReplies() int {
	return e.replies.pending()
}

// MarkRead removes the unread counter between identity and peer, including a
// stored zero. Nothing is written when there was no counter.
func (e *Engine) MarkRead(ctx context.Context, identity, peer string) bool {
	if identity == "" || identity != e.state.Identity() {
		return false
	}
	convID := ID(identity, peer)
	changed := e.state.UpdateUnread(ctx, identity, func(unread map[string]int) bool {
		if _, ok := unread[convID]; !ok {
			return false
		}
		delete(unread, convID)
		return true
	})
	if changed {
		e.events.Publish(Event{Kind: EventRead, ConversationID: convID, Unread: e.TotalUnread()}, identity)
	}
	return changed
}

// TotalUnread sums every unread counter.
func (e *Engine) TotalUnread() int {
	total := 0
	for _, n := range e.state.Unread() {
		total += n
	}
	return total
}

// UnreadFor returns the unread count between identity and peer.
func (e *Engine) UnreadFor(identity, peer string) int {
	if identity != e.state.Identity() {
		return 0
	}
	return e.state.Unread()[ID(identity, peer)]
}

func (e *Engine) publish(kind EventKind, msg userstate.Message) {
	e.events.Publish(Event{
		Kind:           kind,
		ConversationID: ID(msg.Sender, msg.Receiver),
		Message:        msg,
		Unread:         e.TotalUnread(),
	}, msg.Sender, msg.Receiver)
}
