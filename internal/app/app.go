// ABOUTME: Builds and owns every sportzone component for one client process
// ABOUTME: Order matters: state attaches to the session before it is restored

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/sportzone/internal/ai"
	"github.com/2389/sportzone/internal/auth"
	"github.com/2389/sportzone/internal/cache"
	"github.com/2389/sportzone/internal/config"
	"github.com/2389/sportzone/internal/conversation"
	"github.com/2389/sportzone/internal/facility"
	"github.com/2389/sportzone/internal/friends"
	"github.com/2389/sportzone/internal/kv"
	"github.com/2389/sportzone/internal/userstate"
)

// catalogCacheSize bounds the memoized gateway answers.
const catalogCacheSize = 8

// App holds the wired components.
type App struct {
	Config    *config.Config
	Store     kv.Store
	Session   *auth.Session
	Users     *auth.Store
	State     *userstate.State
	Friends   *friends.Registry
	Messenger *conversation.Engine
	Catalog   *facility.Catalog
	AI        ai.Gateway

	memo   *cache.Cache[[]facility.Complex]
	logger *slog.Logger
}

// New opens the configured store and wires everything on top of it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := kv.Open(ctx, kv.Options{
		Driver:         cfg.Store.Driver,
		Path:           cfg.Store.Path,
		DynamoTable:    cfg.Store.DynamoDB.Table,
		DynamoRegion:   cfg.Store.DynamoDB.Region,
		DynamoEndpoint: cfg.Store.DynamoDB.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	gateway := ai.NewClient(ai.Options{
		APIKey:            cfg.AI.APIKey,
		BaseURL:           cfg.AI.BaseURL,
		Model:             cfg.AI.Model,
		Timeout:           cfg.AI.Timeout,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
	}, logger)

	return Wire(ctx, cfg, store, gateway, logger), nil
}

// Wire builds the components over an already opened store and gateway.
func Wire(ctx context.Context, cfg *config.Config, store kv.Store, gateway ai.Gateway, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		logger.Warn("using the built-in session signing secret; set auth.jwt_secret")
	}

	session := auth.NewSession()
	users := auth.NewStore(store, session, auth.NewPointerSigner([]byte(cfg.Auth.JWTSecret)),
		auth.Options{SessionTTL: cfg.Auth.SessionTTL}, logger)

	state := userstate.New(store, logger)
	state.Attach(ctx, session)

	messenger := conversation.New(state, session, conversation.NewEventBroadcaster(logger),
		conversation.Options{AutoReplyText: cfg.Messenger.AutoReplyText}, logger)

	memo := cache.New[[]facility.Complex](cfg.AI.CacheTTL, catalogCacheSize)

	a := &App{
		Config:    cfg,
		Store:     store,
		Session:   session,
		Users:     users,
		State:     state,
		Friends:   friends.New(state, users, logger),
		Messenger: messenger,
		Catalog:   facility.NewCatalog(gateway, memo, logger),
		AI:        gateway,
		memo:      memo,
		logger:    logger.With("component", "app"),
	}

	users.Restore(ctx)
	return a
}

// Identity returns the logged-in identity.
func (a *App) Identity() (string, bool) {
	return a.Session.Current()
}

// Send delivers text to peer and schedules the simulated answer after the
// configured reply delay. It returns the sent message and the reply task id.
func (a *App) Send(ctx context.Context, peer, text string) (userstate.Message, string, error) {
	identity, ok := a.Identity()
	if !ok {
		return userstate.Message{}, "", conversation.ErrNotAuthenticated
	}
	msg, err := a.Messenger.Send(ctx, identity, peer, text)
	if err != nil {
		return msg, "", err
	}
	task := a.Messenger.ScheduleReply(peer, identity, a.Config.Messenger.ReplyDelay)
	return msg, task, nil
}

// OpenConversation returns the messages exchanged with peer and marks them read.
func (a *App) OpenConversation(ctx context.Context, peer string) ([]userstate.Message, error) {
	identity, ok := a.Identity()
	if !ok {
		return nil, conversation.ErrNotAuthenticated
	}
	msgs := a.Messenger.MessagesIn(conversation.ID(identity, peer))
	a.Messenger.MarkRead(ctx, identity, peer)
	return msgs, nil
}

// Editable reports whether msg can still be edited now.
func (a *App) Editable(msg userstate.Message) bool {
	return a.Messenger.Editable(msg, time.Now(), a.Config.Messenger.EditWindow)
}

// Suggestions returns personalized complex suggestions, or none on failure.
func (a *App) Suggestions(ctx context.Context) []ai.Suggestion {
	identity, _ := a.Identity()
	if err := a.Catalog.Load(ctx); err != nil {
		a.logger.Warn("catalog unavailable for suggestions", "error", err)
		return []ai.Suggestion{}
	}
	out, err := a.AI.SuggestComplexes(ctx, identity, a.Catalog.Complexes())
	if err != nil {
		a.logger.Warn("suggestions unavailable", "error", err)
		return []ai.Suggestion{}
	}
	return out
}

// TeamPost generates a teammate announcement, falling back to a placeholder.
func (a *App) TeamPost(ctx context.Context, sport, when, message string) string {
	post, err := a.AI.TeamPost(ctx, sport, when, message)
	if err != nil {
		a.logger.Warn("team post unavailable", "error", err)
		return ai.FallbackPost
	}
	return post
}

// ReviewSummary summarizes the reviews of complex id, falling back to a placeholder.
func (a *App) ReviewSummary(ctx context.Context, id int) string {
	summary, err := a.AI.SummarizeReviews(ctx, a.Catalog.Reviews(id))
	if err != nil {
		a.logger.Warn("review summary unavailable", "complex_id", id, "error", err)
		return ai.FallbackSummary
	}
	return summary
}

// Close stops background work and closes the store.
func (a *App) Close() error {
	a.Messenger.Close()
	a.Messenger.Events().Close()
	a.memo.Close()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
