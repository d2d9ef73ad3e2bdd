// ABOUTME: Tests for the messenger engine against an attached user state
// ABOUTME: Identity changes go through a real auth.Store over MemoryStore

package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/sportzone/internal/auth"
	"github.com/2389/sportzone/internal/kv"
	"github.com/2389/sportzone/internal/userstate"
)

type fixture struct {
	engine *Engine
	state  *userstate.State
	users  *auth.Store
	mem    *kv.MemoryStore
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := kv.NewMemoryStore()
	return newFixtureOn(t, mem, mem)
}

// newFixtureOn builds the fixture over store; mem is the MemoryStore beneath it.
func newFixtureOn(t *testing.T, store kv.Store, mem *kv.MemoryStore) *fixture {
	t.Helper()
	session := auth.NewSession()
	users := auth.NewStore(store, session, auth.NewPointerSigner([]byte("k")), auth.Options{HashCost: bcrypt.MinCost}, nil)
	state := userstate.New(store, nil)
	state.Attach(context.Background(), session)

	clock := time.UnixMilli(1_700_000_000_000)
	f := &fixture{state: state, users: users, mem: mem, clock: &clock}
	f.engine = New(state, session, nil, Options{Now: func() time.Time { return *f.clock }}, nil)
	t.Cleanup(f.engine.Close)
	return f
}

func (f *fixture) register(t *testing.T, identity string, accepted ...string) {
	t.Helper()
	require.NoError(t, f.users.Register(context.Background(), identity, "pw"))
	require.NoError(t, f.state.UpdateFriends(context.Background(), identity, func(rs []userstate.Relation) ([]userstate.Relation, error) {
		for _, peer := range accepted {
			rs = append(rs, userstate.Relation{ID: peer, Status: userstate.StatusAccepted})
		}
		return rs, nil
	}))
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestID_Symmetric(t *testing.T) {
	assert.Equal(t, "alice--bob", ID("alice", "bob"))
	assert.Equal(t, ID("alice", "bob"), ID("bob", "alice"))
	assert.Equal(t, "u1--u1", ID("u1", "u1"))
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	msg, err := f.engine.Send(ctx, "u1", "u2", "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "  hi  ", msg.Text)
	assert.Equal(t, f.clock.UnixMilli(), msg.ID)

	msgs := f.engine.MessagesIn(ID("u1", "u2"))
	require.Len(t, msgs, 1)
	assert.Equal(t, msg, msgs[0])

	raw, err := f.mem.Get(ctx, "dms_u1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"message":"  hi  "`)
}

func TestSend_IDsStrictlyIncreaseWithinSameMillisecond(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	var prev int64
	for range 5 {
		msg, err := f.engine.Send(ctx, "u1", "u2", "x")
		require.NoError(t, err)
		assert.Greater(t, msg.ID, prev)
		prev = msg.ID
	}
}

func TestSend_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Send(ctx, "u1", "u2", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	f.register(t, "u1")
	_, err = f.engine.Send(ctx, "u1", "u2", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.engine.Send(ctx, "u9", "u2", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	assert.Empty(t, f.engine.MessagesIn(ID("u1", "u2")))
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()
	convID := ID("u1", "u2")

	msg, err := f.engine.Send(ctx, "u1", "u2", "helo")
	require.NoError(t, err)

	assert.True(t, f.engine.EditMessage(ctx, convID, msg.ID, "hello"))
	got := f.engine.MessagesIn(convID)[0]
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, msg.Timestamp, got.Timestamp)

	assert.False(t, f.engine.EditMessage(ctx, convID, 42, "nope"))
}

func TestEditMessage_NotSenderIsNoop(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()
	convID := ID("u1", "u2")

	reply, err := f.engine.SimulateReply(ctx, "u2", "u1")
	require.NoError(t, err)

	writes := f.mem.Writes()
	assert.False(t, f.engine.EditMessage(ctx, convID, reply.ID, "hijacked"))
	assert.Equal(t, DefaultAutoReply, f.engine.MessagesIn(convID)[0].Text)
	assert.Equal(t, writes, f.mem.Writes())
}

func TestEditable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	msg, err := f.engine.Send(ctx, "u1", "u2", "hi")
	require.NoError(t, err)
	reply, err := f.engine.SimulateReply(ctx, "u2", "u1")
	require.NoError(t, err)

	sent := time.UnixMilli(msg.Timestamp)
	assert.True(t, f.engine.Editable(msg, sent.Add(59*time.Second), DefaultEditWindow))
	assert.False(t, f.engine.Editable(msg, sent.Add(60*time.Second), DefaultEditWindow))
	assert.False(t, f.engine.Editable(reply, sent, DefaultEditWindow))
}

func TestToggleReaction(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()
	convID := ID("u1", "u2")

	msg, err := f.engine.Send(ctx, "u1", "u2", "hi")
	require.NoError(t, err)

	require.True(t, f.engine.ToggleReaction(ctx, convID, msg.ID, "👍"))
	got := f.engine.MessagesIn(convID)[0]
	assert.Equal(t, userstate.Reactions{"👍": {"u1"}}, got.Reactions)

	// Toggling twice restores the untouched message
	require.True(t, f.engine.ToggleReaction(ctx, convID, msg.ID, "👍"))
	got = f.engine.MessagesIn(convID)[0]
	assert.Equal(t, msg, got)
	_, present := got.Reactions["👍"]
	assert.False(t, present)
}

func TestToggleReaction_KeepsOtherEmoji(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()
	convID := ID("u1", "u2")

	msg, err := f.engine.Send(ctx, "u1", "u2", "hi")
	require.NoError(t, err)

	f.engine.ToggleReaction(ctx, convID, msg.ID, "👍")
	f.engine.ToggleReaction(ctx, convID, msg.ID, "❤️")
	f.engine.ToggleReaction(ctx, convID, msg.ID, "👍")

	assert.Equal(t, userstate.Reactions{"❤️": {"u1"}}, f.engine.MessagesIn(convID)[0].Reactions)
}

func TestToggleReaction_Noops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.engine.ToggleReaction(ctx, ID("u1", "u2"), 1, "👍"))

	f.register(t, "u1", "u2")
	assert.False(t, f.engine.ToggleReaction(ctx, ID("u1", "u2"), 1, "👍"))
}

func TestListConversationsFor(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2", "u3", "u5", "u4")
	ctx := context.Background()

	// a pending relation never shows up
	require.NoError(t, f.state.UpdateFriends(ctx, "u1", func(rs []userstate.Relation) ([]userstate.Relation, error) {
		return append(rs, userstate.Relation{ID: "u9", Status: userstate.StatusPending}), nil
	}))

	_, err := f.engine.Send(ctx, "u1", "u3", "older")
	require.NoError(t, err)
	f.advance(time.Second)
	_, err = f.engine.Send(ctx, "u1", "u2", "newer")
	require.NoError(t, err)

	list := f.engine.ListConversationsFor("u1")
	var peers []string
	for _, s := range list {
		peers = append(peers, s.Peer)
	}
	assert.Equal(t, []string{"u2", "u3", "u4", "u5"}, peers)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "newer", list[0].LastMessage.Text)
	assert.Nil(t, list[2].LastMessage)

	assert.Nil(t, f.engine.ListConversationsFor("u2"))
}

func TestMessagesIn_EmptyConversation(t *testing.T) {
	f := newFixture(t)
	msgs := f.engine.MessagesIn("nobody--none")
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestSimulateReply_CountsUnreadAndMarkReadClears(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	_, err := f.engine.SimulateReply(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.engine.UnreadFor("u1", "u2"))
	assert.Equal(t, 1, f.engine.TotalUnread())

	_, err = f.engine.SimulateReply(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.engine.TotalUnread())

	assert.True(t, f.engine.MarkRead(ctx, "u1", "u2"))
	_, present := f.state.Unread()[ID("u1", "u2")]
	assert.False(t, present)
	assert.Zero(t, f.engine.TotalUnread())

	writes := f.mem.Writes()
	assert.False(t, f.engine.MarkRead(ctx, "u1", "u2"))
	assert.Equal(t, writes, f.mem.Writes())
}

func TestSimulateReply_RequiresRecipientLoggedIn(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")

	_, err := f.engine.SimulateReply(context.Background(), "u1", "u2")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestScheduleReply_Fires(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")

	events, _ := f.engine.Events().Subscribe(t.Context(), "u1")
	id := f.engine.ScheduleReply("u2", "u1", 10*time.Millisecond)
	assert.NotEmpty(t, id)

	select {
	case ev := <-events:
		assert.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, "u2", ev.Message.Sender)
		assert.Equal(t, 1, ev.Unread)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled reply never arrived")
	}
	assert.Equal(t, 1, f.engine.UnreadFor("u1", "u2"))
	assert.Zero(t, f.engine.PendingReplies())
}

func TestScheduleReply_CancelledByLogout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	f.engine.ScheduleReply("u2", "u1", 50*time.Millisecond)
	assert.Equal(t, 1, f.engine.PendingReplies())

	f.users.Logout(ctx)
	assert.Zero(t, f.engine.PendingReplies())

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, f.users.Login(ctx, "u1", "pw"))
	assert.Empty(t, f.engine.MessagesIn(ID("u1", "u2")))
	assert.Zero(t, f.engine.TotalUnread())
}

func TestScheduleReply_CancelReply(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")

	id := f.engine.ScheduleReply("u2", "u1", time.Hour)
	assert.True(t, f.engine.CancelReply(id))
	assert.False(t, f.engine.CancelReply(id))
	assert.Zero(t, f.engine.PendingReplies())
}

func TestIdentitySwitch_IsolatesConversations(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	_, err := f.engine.Send(ctx, "u1", "u2", "from u1")
	require.NoError(t, err)

	f.register(t, "u2", "u1")
	assert.Empty(t, f.engine.MessagesIn(ID("u1", "u2")))

	require.NoError(t, f.users.Login(ctx, "u1", "pw"))
	require.Len(t, f.engine.MessagesIn(ID("u1", "u2")), 1)
}

func TestListConversationsFor_EmptyConversationSortsBelowNegativeTimestamp(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2", "u3")
	*f.clock = time.UnixMilli(-5000)

	_, err := f.engine.Send(context.Background(), "u1", "u3", "before the epoch")
	require.NoError(t, err)

	list := f.engine.ListConversationsFor("u1")
	require.Len(t, list, 2)
	assert.Equal(t, "u3", list[0].Peer)
	assert.Equal(t, "u2", list[1].Peer)
}

func TestMarkRead_RemovesStoredZero(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()
	convID := ID("u1", "u2")

	f.state.UpdateUnread(ctx, "u1", func(u map[string]int) bool { u[convID] = 0; return true })

	assert.True(t, f.engine.MarkRead(ctx, "u1", "u2"))
	_, present := f.state.Unread()[convID]
	assert.False(t, present)

	raw, err := f.mem.Get(ctx, "unread_u1")
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
}

// logoutOnWrite starts a logout from inside the first write of key and holds
// that write until the logout has begun clearing the session pointer.
type logoutOnWrite struct {
	*kv.MemoryStore
	key     string
	logout  func()
	once    sync.Once
	started chan struct{}
	done    chan struct{}
}

func (s *logoutOnWrite) Set(ctx context.Context, key, value string) error {
	if err := s.MemoryStore.Set(ctx, key, value); err != nil {
		return err
	}
	if key == s.key {
		s.once.Do(func() {
			go func() {
				defer close(s.done)
				s.logout()
			}()
			<-s.started
		})
	}
	return nil
}

func (s *logoutOnWrite) Remove(ctx context.Context, key string) error {
	if key == auth.CurrentUserKey {
		select {
		case <-s.started:
		default:
			close(s.started)
		}
	}
	return s.MemoryStore.Remove(ctx, key)
}

func TestSimulateReply_LogoutMidWriteKeepsReplyInOneNamespace(t *testing.T) {
	mem := kv.NewMemoryStore()
	store := &logoutOnWrite{
		MemoryStore: mem,
		key:         "dms_u1",
		started:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	f := newFixtureOn(t, store, mem)
	f.register(t, "u1", "u2")
	ctx := context.Background()
	store.logout = func() { f.users.Logout(ctx) }

	_, err := f.engine.SimulateReply(ctx, "u2", "u1")
	require.NoError(t, err)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("logout never finished")
	}
	assert.Equal(t, "", f.state.Identity())

	raw, err := mem.Get(ctx, "unread_u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"u1--u2":1}`, raw)
	for _, key := range []string{"dms_guest", "unread_guest"} {
		_, err := mem.Get(ctx, key)
		assert.ErrorIs(t, err, kv.ErrNotFound, "%s written after logout", key)
	}
}

func TestSend_AfterIdentityUnloadedIsRejected(t *testing.T) {
	f := newFixture(t)
	f.register(t, "u1", "u2")
	ctx := context.Background()

	// the session still says u1 while the state has moved to the guest namespace
	f.state.Load(ctx, "")
	_, err := f.engine.Send(ctx, "u1", "u2", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = f.mem.Get(ctx, "dms_guest")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
