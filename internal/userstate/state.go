// ABOUTME: UserScopedState loads and saves the four per-identity slices
// ABOUTME: Reloads everything whenever the session identity changes

package userstate

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/2389/sportzone/internal/auth"
	"github.com/2389/sportzone/internal/kv"
)

// Slice names, used as the key prefix in "{slice}_{identity}"
// ErrIdentityChanged is returned when an update names an identity that is no
// longer the loaded one.
var ErrIdentityChanged = errors.New("loaded identity changed")

const (
	SliceFavorites     = "favorites"
	SliceFriends       = "friends"
	SliceConversations = "dms"
	SliceUnread        = "unread"
)

// State is the in-memory view of one identity's favorites, friends,
// conversations and unread counters. It is the source of truth for the
// current session; persistence is best effort.
type State struct {
	mu       sync.RWMutex
	kv       kv.Store
	identity string

	favorites []int
	friends   []Relation
	dms       map[string][]Message
	unread    map[string]int

	logger *slog.Logger
}

// New creates an empty guest-scoped State backed by store. Call Load or
// Attach before use.
func New(store kv.Store, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		kv:     store,
		logger: logger.With("component", "userstate"),
	}
	s.reset()
	return s
}

// Attach loads the session's current identity and reloads on every change.
func (s *State) Attach(ctx context.Context, session *auth.Session) {
	current, _ := session.Current()
	s.Load(ctx, current)
	session.Subscribe(func(prev, next string) {
		s.Load(context.Background(), next)
	})
}

func (s *State) reset() {
	s.favorites = []int{}
	s.friends = []Relation{}
	s.dms = make(map[string][]Message)
	s.unread = make(map[string]int)
}

// Load replaces all four slices with the ones stored for identity (empty
// identity loads the guest namespace). Each slice falls back to its empty
// default independently when missing or corrupt.
func (s *State) Load(ctx context.Context, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
	s.reset()

	var favorites []int
	if s.read(ctx, SliceFavorites, &favorites) && favorites != nil {
		s.favorites = favorites
	}
	var friends []Relation
	if s.read(ctx, SliceFriends, &friends) && friends != nil {
		s.friends = friends
	}
	var dms map[string][]Message
	if s.read(ctx, SliceConversations, &dms) && dms != nil {
		s.dms = dms
	}
	var unread map[string]int
	if s.read(ctx, SliceUnread, &unread) && unread != nil {
		s.unread = unread
	}

	s.logger.Debug("user state loaded",
		"identity", s.namespace(),
		"favorites", len(s.favorites),
		"friends", len(s.friends),
		"conversations", len(s.dms))
}

// read decodes one slice; must be called with mu held.
func (s *State) read(ctx context.Context, slice string, v any) bool {
	key := kv.NamespacedKey(slice, s.identity)
	err := kv.GetJSON(ctx, s.kv, key, v)
	if errors.Is(err, kv.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("resetting unreadable slice", "key", key, "error", err)
		return false
	}
	return true
}

// write persists one slice; must be called with mu held.
func (s *State) write(ctx context.Context, slice string, v any) {
	key := kv.NamespacedKey(slice, s.identity)
	if err := kv.SetJSON(ctx, s.kv, key, v); err != nil {
		s.logger.Error("failed to save slice", "key", key, "error", err)
	}
}

func (s *State) namespace() string {
	if s.identity == "" {
		return kv.GuestNamespace
	}
	return s.identity
}

// Identity returns the identity whose data is loaded ("" for guest).
func (s *State) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SaveFavorites writes the favorites slice.
func (s *State) SaveFavorites(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(ctx, SliceFavorites, s.favorites)
}

// SaveFriends writes the friends slice.
func (s *State) SaveFriends(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(ctx, SliceFriends, s.friends)
}

// SaveConversations writes the conversations slice.
func (s *State) SaveConversations(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(ctx, SliceConversations, s.dms)
}

// SaveUnread writes the unread counters.
func (s *State) SaveUnread(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(ctx, SliceUnread, s.unread)
}

// Favorites returns a copy of the favorite facility IDs.
func (s *State) Favorites() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites)
}

// IsFavorite reports whether complexID is a favorite.
func (s *State) IsFavorite(complexID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.favorites, complexID)
}

// ToggleFavorite adds or removes complexID and persists. It returns whether
// the facility is a favorite afterwards.
func (s *State) ToggleFavorite(ctx context.Context, complexID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.favorites, complexID)
	if idx >= 0 {
		s.favorites = slices.Delete(s.favorites, idx, idx+1)
	} else {
		s.favorites = append(s.favorites, complexID)
	}
	s.write(ctx, SliceFavorites, s.favorites)
	return idx < 0
}

// Friends returns a copy of the friend relations.
func (s *State) Friends() []Relation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.friends)
}

// UpdateFriends runs fn on the relations of identity. When identity is not the
// loaded one it returns ErrIdentityChanged; when fn returns an error nothing is
// changed. Otherwise fn's result replaces the slice and is persisted.
func (s *State) UpdateFriends(ctx context.Context, identity string, fn func(friends []Relation) ([]Relation, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != identity {
		return ErrIdentityChanged
	}
	next, err := fn(slices.Clone(s.friends))
	if err != nil {
		return err
	}
	s.friends = next
	s.write(ctx, SliceFriends, s.friends)
	return nil
}

// Messages returns a copy of one conversation in insertion order.
func (s *State) Messages(conversationID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.dms[conversationID]
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// UpdateConversations runs fn against the live conversation map of identity.
// fn reports whether it changed anything; only then is the slice persisted.
// Nothing runs when identity is not the loaded one.
func (s *State) UpdateConversations(ctx context.Context, identity string, fn func(dms map[string][]Message) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != identity || !fn(s.dms) {
		return false
	}
	s.write(ctx, SliceConversations, s.dms)
	return true
}

// Unread returns a copy of the unread counters.
func (s *State) Unread() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.unread))
	for k, v := range s.unread {
		out[k] = v
	}
	return out
}

// UpdateUnread runs fn against the live counters of identity, persisting when
// it reports a change.
func (s *State) UpdateUnread(ctx context.Context, identity string, fn func(unread map[string]int) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != identity || !fn(s.unread) {
		return false
	}
	s.write(ctx, SliceUnread, s.unread)
	return true
}

// UpdateMessenger runs fn against both the conversations and the unread
// counters of identity in one critical section, so a concurrent Load sees
// either none or all of the change. fn reports which of the two it changed.
// It returns false without calling fn when identity is not the loaded one.
func (s *State) UpdateMessenger(ctx context.Context, identity string, fn func(dms map[string][]Message, unread map[string]int) (dmsChanged, unreadChanged bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != identity {
		return false
	}
	dmsChanged, unreadChanged := fn(s.dms, s.unread)
	if dmsChanged {
		s.write(ctx, SliceConversations, s.dms)
	}
	if unreadChanged {
		s.write(ctx, SliceUnread, s.unread)
	}
	return true
}
