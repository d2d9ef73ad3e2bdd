// ABOUTME: Tests for friend requests, acceptance and error paths
// ABOUTME: Runs on a MemoryStore-backed userstate with a fake user registry

package friends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sportzone/internal/kv"
	"github.com/2389/sportzone/internal/userstate"
)

type fakeUsers map[string]bool

func (f fakeUsers) Exists(ctx context.Context, identity string) (bool, error) {
	if identity == "broken" {
		return false, errors.New("registry unreadable")
	}
	return f[identity], nil
}

func newRegistry(t *testing.T, owner string) (*Registry, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	state := userstate.New(mem, nil)
	state.Load(context.Background(), owner)
	return New(state, fakeUsers{"u1": true, "u2": true, "u3": true}, nil), mem
}

func TestAddFriend(t *testing.T) {
	r, mem := newRegistry(t, "u1")
	ctx := context.Background()

	require.NoError(t, r.AddFriend(ctx, "u1", "u2"))
	assert.Equal(t, []userstate.Relation{{ID: "u2", Status: userstate.StatusPending}}, r.List())

	raw, err := mem.Get(ctx, "friends_u1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u2","status":"pending"}]`, raw)
}

func TestAddFriend_Errors(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		peer  string
		setup func(r *Registry)
		want  error
	}{
		{name: "self", owner: "u1", peer: "u1", want: ErrSelfFriend},
		{name: "no owner", owner: "", peer: "u2", want: ErrSelfFriend},
		{name: "unknown peer", owner: "u1", peer: "ghost", want: ErrNotFound},
		{name: "not the loaded identity", owner: "u3", peer: "u2", want: ErrNotAuthenticated},
		{
			name: "already pending", owner: "u1", peer: "u2",
			setup: func(r *Registry) { _ = r.AddFriend(context.Background(), "u1", "u2") },
			want:  ErrAlreadyRequested,
		},
		{
			name: "already accepted", owner: "u1", peer: "u2",
			setup: func(r *Registry) {
				_ = r.AddFriend(context.Background(), "u1", "u2")
				_ = r.Accept(context.Background(), "u2")
			},
			want: ErrAlreadyRequested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRegistry(t, "u1")
			if tt.setup != nil {
				tt.setup(r)
			}
			before := r.List()
			err := r.AddFriend(context.Background(), tt.owner, tt.peer)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, r.List())
		})
	}
}

func TestAddFriend_CheckerFailure(t *testing.T) {
	r, _ := newRegistry(t, "u1")
	err := r.AddFriend(context.Background(), "u1", "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAccept(t *testing.T) {
	r, _ := newRegistry(t, "u1")
	ctx := context.Background()

	require.NoError(t, r.AddFriend(ctx, "u1", "u2"))
	require.NoError(t, r.AddFriend(ctx, "u1", "u3"))
	assert.Empty(t, r.Accepted())

	require.NoError(t, r.Accept(ctx, "u3"))
	assert.Equal(t, []userstate.Relation{{ID: "u3", Status: userstate.StatusAccepted}}, r.Accepted())
	assert.Len(t, r.List(), 2)

	assert.ErrorIs(t, r.Accept(ctx, "nobody"), ErrNotFound)
}
