// ABOUTME: SessionStore: credential registry plus register/login/logout/restore
// ABOUTME: Credentials live under "users", the session pointer under "currentUser"

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/sportzone/internal/kv"
)

// Storage keys
const (
	UsersKey       = "users"
	CurrentUserKey = "currentUser"
)

// Errors returned by Store
var (
	ErrDuplicateIdentity  = errors.New("an account with this email or phone already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect password")
	ErrEmptyIdentity      = errors.New("email or phone is required")
)

// Credential is one entry of the registry. Password is the plain field written
// by legacy records; new records only carry PasswordHash.
type Credential struct {
	PasswordHash string  `json:"password_hash,omitempty"`
	Password     *string `json:"password,omitempty"`
}

// matches reports whether secret is the credential's password.
func (c Credential) matches(secret string) bool {
	if c.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(secret)) == nil
	}
	legacy := ""
	if c.Password != nil {
		legacy = *c.Password
	}
	return subtle.ConstantTimeCompare([]byte(legacy), []byte(secret)) == 1
}

// Options tunes a Store
type Options struct {
	// SessionTTL bounds how long a persisted pointer stays valid; zero means until logout
	SessionTTL time.Duration
	// HashCost is the bcrypt cost; zero uses bcrypt.DefaultCost
	HashCost int
}

// Store manages credentials and the current Session.
type Store struct {
	kv       kv.Store
	session  *Session
	pointers *PointerSigner
	opts     Options
	logger   *slog.Logger
}

// NewStore creates a Store persisting to store and driving session.
func NewStore(store kv.Store, session *Session, pointers *PointerSigner, opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &Store{
		kv:       store,
		session:  session,
		pointers: pointers,
		opts:     opts,
		logger:   logger.With("component", "auth"),
	}
}

// Session returns the session this store drives.
func (s *Store) Session() *Session {
	return s.session
}

func (s *Store) loadRegistry(ctx context.Context) (map[string]Credential, error) {
	users := make(map[string]Credential)
	err := kv.GetJSON(ctx, s.kv, UsersKey, &users)
	if errors.Is(err, kv.ErrNotFound) {
		return make(map[string]Credential), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading user registry: %w", err)
	}
	return users, nil
}

// Register creates a credential record and logs the new identity in.
func (s *Store) Register(ctx context.Context, identity, secret string) error {
	if strings.TrimSpace(identity) == "" {
		return ErrEmptyIdentity
	}

	users, err := s.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if _, exists := users[identity]; exists {
		return ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.opts.HashCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	users[identity] = Credential{PasswordHash: string(hash)}

	if err := kv.SetJSON(ctx, s.kv, UsersKey, users); err != nil {
		return fmt.Errorf("saving user registry: %w", err)
	}

	s.logger.Info("registered user", "identity", identity)
	s.begin(ctx, identity)
	return nil
}

// Login makes identity current after verifying secret.
func (s *Store) Login(ctx context.Context, identity, secret string) error {
	users, err := s.loadRegistry(ctx)
	if err != nil {
		return err
	}
	cred, ok := users[identity]
	if !ok {
		return ErrNotFound
	}
	if !cred.matches(secret) {
		s.logger.Warn("login rejected", "identity", identity)
		return ErrInvalidCredentials
	}

	s.begin(ctx, identity)
	return nil
}

// Logout clears the current session. Per-user data is left in place.
func (s *Store) Logout(ctx context.Context) {
	if err := s.kv.Remove(ctx, CurrentUserKey); err != nil {
		s.logger.Error("failed to clear session pointer", "error", err)
	}
	if prev, ok := s.session.Current(); ok {
		s.logger.Info("logged out", "identity", prev)
	}
	s.session.set("")
}

// Restore reloads the persisted session pointer at startup. A pointer that is
// missing yields no session; one that does not verify is removed.
func (s *Store) Restore(ctx context.Context) {
	raw, err := s.kv.Get(ctx, CurrentUserKey)
	if errors.Is(err, kv.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("failed to read session pointer", "error", err)
		return
	}

	identity, err := s.pointers.Identity(raw)
	if err != nil {
		s.logger.Warn("discarding stale session pointer", "error", err)
		if rmErr := s.kv.Remove(ctx, CurrentUserKey); rmErr != nil {
			s.logger.Error("failed to clear session pointer", "error", rmErr)
		}
		return
	}

	s.logger.Debug("session restored", "identity", identity)
	s.session.set(identity)
}

// Exists reports whether identity has a credential record.
func (s *Store) Exists(ctx context.Context, identity string) (bool, error) {
	users, err := s.loadRegistry(ctx)
	if err != nil {
		return false, err
	}
	_, ok := users[identity]
	return ok, nil
}

// begin persists the pointer (best effort) and switches the session.
func (s *Store) begin(ctx context.Context, identity string) {
	pointer, err := s.pointers.Issue(identity, s.opts.SessionTTL)
	if err != nil {
		s.logger.Error("failed to sign session pointer", "error", err)
	} else if err := s.kv.Set(ctx, CurrentUserKey, pointer); err != nil {
		s.logger.Error("failed to persist session pointer", "error", err)
	}
	s.session.set(identity)
}
