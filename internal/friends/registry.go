// ABOUTME: FriendRegistry validates and records one-directional friend relations
// ABOUTME: Relations live in the owner's user-scoped "friends" slice

package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/2389/sportzone/internal/userstate"
)

// Errors returned by Registry
var (
	ErrSelfFriend       = errors.New("you cannot add yourself as a friend")
	ErrAlreadyRequested = errors.New("you have already added this user or sent a friend request")
	ErrNotFound         = errors.New("user not found")
	ErrNotAuthenticated = errors.New("friend list belongs to a different user")
)

// CredentialChecker answers whether an identity has registered
type CredentialChecker interface {
	Exists(ctx context.Context, identity string) (bool, error)
}

// Registry manages the loaded identity's friend relations.
type Registry struct {
	state  *userstate.State
	users  CredentialChecker
	logger *slog.Logger
}

// New creates a Registry over state, validating peers against users.
func New(state *userstate.State, users CredentialChecker, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		state:  state,
		users:  users,
		logger: logger.With("component", "friends"),
	}
}

func hasRelation(friends []userstate.Relation, peer string) bool {
	return slices.ContainsFunc(friends, func(r userstate.Relation) bool { return r.ID == peer })
}

// AddFriend records a pending relation from owner to peer.
func (r *Registry) AddFriend(ctx context.Context, owner, peer string) error {
	if owner == "" || peer == owner {
		return ErrSelfFriend
	}
	if r.state.Identity() != owner {
		return ErrNotAuthenticated
	}
	if hasRelation(r.state.Friends(), peer) {
		return ErrAlreadyRequested
	}

	exists, err := r.users.Exists(ctx, peer)
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	err = r.state.UpdateFriends(ctx, owner, func(friends []userstate.Relation) ([]userstate.Relation, error) {
		if hasRelation(friends, peer) {
			return nil, ErrAlreadyRequested
		}
		return append(friends, userstate.Relation{ID: peer, Status: userstate.StatusPending}), nil
	})
	if errors.Is(err, userstate.ErrIdentityChanged) {
		return ErrNotAuthenticated
	}
	if err != nil {
		return err
	}

	r.logger.Info("friend request recorded", "owner", owner, "peer", peer)
	return nil
}

// Accept marks an existing relation as accepted. Nothing in the app drives
// this from the peer's side; it exists for external tooling and demos.
func (r *Registry) Accept(ctx context.Context, peer string) error {
	return r.state.UpdateFriends(ctx, r.state.Identity(), func(friends []userstate.Relation) ([]userstate.Relation, error) {
		for i := range friends {
			if friends[i].ID == peer {
				friends[i].Status = userstate.StatusAccepted
				return friends, nil
			}
		}
		return nil, ErrNotFound
	})
}

// List returns every relation of the loaded identity.
func (r *Registry) List() []userstate.Relation {
	return r.state.Friends()
}

// Accepted returns only the relations that are chat-eligible.
func (r *Registry) Accepted() []userstate.Relation {
	var out []userstate.Relation
	for _, rel := range r.state.Friends() {
		if rel.Status == userstate.StatusAccepted {
			out = append(out, rel)
		}
	}
	return out
}
