// ABOUTME: In-memory catalog of sport complexes with bookings and reviews
// ABOUTME: Complexes come from a Source, memoized through a TTL cache

package facility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/2389/sportzone/internal/cache"
)

// Errors returned by the catalog
var (
	ErrNotFound       = errors.New("complex not found")
	ErrSlotNotFound   = errors.New("time slot not found")
	ErrSlotBooked     = errors.New("time slot already booked")
	ErrInvalidReview  = errors.New("review needs a rating from 1 to 5 and a comment")
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrInvalidTicket  = errors.New("invalid support ticket")
	ErrCatalogEmpty   = errors.New("no sport complexes available")
	errSourceRequired = errors.New("catalog has no source")
)

// catalogKey is the cache key the fetched complex list is stored under.
const catalogKey = "complexes"

// Source produces the complex list.
type Source interface {
	FetchComplexes(ctx context.Context) ([]Complex, error)
}

// Catalog holds the complexes for the running client.
type Catalog struct {
	mu        sync.RWMutex
	source    Source
	memo      *cache.Cache[[]Complex]
	complexes []Complex
	reviews   map[int][]Review
	rooms     map[int]*ChatRoom
	now       func() time.Time
	logger    *slog.Logger
}

// NewCatalog creates an empty catalog. memo may be nil to always hit source.
func NewCatalog(source Source, memo *cache.Cache[[]Complex], logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		source:  source,
		memo:    memo,
		reviews: make(map[int][]Review),
		rooms:   make(map[int]*ChatRoom),
		now:     time.Now,
		logger:  logger.With("component", "catalog"),
	}
}

// Load fetches the complex list unless it is already loaded.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.RLock()
	loaded := len(c.complexes) > 0
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh replaces the complexes with the memoized or freshly fetched list.
// Bookings on the previous list are discarded.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.source == nil {
		return errSourceRequired
	}

	fetch := c.source.FetchComplexes
	var (
		complexes []Complex
		err       error
	)
	if c.memo != nil {
		complexes, err = c.memo.GetOrLoad(ctx, catalogKey, fetch)
	} else {
		complexes, err = fetch(ctx)
	}
	if err != nil {
		return fmt.Errorf("loading complexes: %w", err)
	}
	if len(complexes) == 0 {
		return ErrCatalogEmpty
	}

	c.Replace(complexes)
	c.logger.Info("catalog loaded", "complexes", len(complexes))
	return nil
}

// Replace installs complexes directly.
func (c *Catalog) Replace(complexes []Complex) {
	next := make([]Complex, len(complexes))
	for i, cx := range complexes {
		next[i] = cx.clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.complexes = next
}

// Complexes returns a copy of every complex.
func (c *Catalog) Complexes() []Complex {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Complex, len(c.complexes))
	for i, cx := range c.complexes {
		out[i] = cx.clone()
	}
	return out
}

// index must be called with mu held.
func (c *Catalog) index(id int) int {
	return slices.IndexFunc(c.complexes, func(cx Complex) bool { return cx.ID == id })
}

// Get returns one complex by id.
func (c *Catalog) Get(id int) (Complex, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.index(id)
	if i < 0 {
		return Complex{}, ErrNotFound
	}
	return c.complexes[i].clone(), nil
}

// Book marks the slot at slotTime as booked.
func (c *Catalog) Book(id int, slotTime string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return ErrNotFound
	}
	slots := c.complexes[i].Slots
	j := slices.IndexFunc(slots, func(s TimeSlot) bool { return s.Time == slotTime })
	if j < 0 {
		return ErrSlotNotFound
	}
	if slots[j].IsBooked {
		return ErrSlotBooked
	}
	slots[j].IsBooked = true

	c.logger.Info("slot booked", "complex_id", id, "time", slotTime)
	return nil
}

// AddReview records a review, newest first.
func (c *Catalog) AddReview(id, rating int, comment string) error {
	if rating < 1 || rating > 5 || strings.TrimSpace(comment) == "" {
		return ErrInvalidReview
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index(id) < 0 {
		return ErrNotFound
	}
	c.reviews[id] = append([]Review{{Rating: rating, Comment: comment}}, c.reviews[id]...)
	return nil
}

// Reviews returns the reviews of a complex, newest first.
func (c *Catalog) Reviews(id int) []Review {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.reviews[id])
}

// AverageRating blends the complex's base rating with its reviews, the base
// counting as one rating.
func (c *Catalog) AverageRating(id int) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.index(id)
	if i < 0 {
		return 0, ErrNotFound
	}
	return averageRating(c.complexes[i].Rating, c.reviews[id]), nil
}

func averageRating(base float64, reviews []Review) float64 {
	if len(reviews) == 0 {
		return base
	}
	total := base
	for _, r := range reviews {
		total += float64(r.Rating)
	}
	return total / float64(1+len(reviews))
}

// Room returns the chat room of a complex, creating it on first use.
func (c *Catalog) Room(id int) (*ChatRoom, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index(id) < 0 {
		return nil, ErrNotFound
	}
	room, ok := c.rooms[id]
	if !ok {
		room = newChatRoom(c.now)
		c.rooms[id] = room
	}
	return room, nil
}

// SubmitTicket validates a support ticket and hands it off. A blank method
// defaults to email.
func (c *Catalog) SubmitTicket(id int, ticket SupportTicket) (SupportTicket, error) {
	if ticket.Method == "" {
		ticket.Method = MethodEmail
	}
	if ticket.Method != MethodEmail && ticket.Method != MethodSMS {
		return ticket, fmt.Errorf("%w: unknown contact method %q", ErrInvalidTicket, ticket.Method)
	}
	for field, v := range map[string]string{
		"name":    ticket.Name,
		"contact": ticket.Contact,
		"subject": ticket.Subject,
		"message": ticket.Message,
	} {
		if strings.TrimSpace(v) == "" {
			return ticket, fmt.Errorf("%w: %s is required", ErrInvalidTicket, field)
		}
	}

	cx, err := c.Get(id)
	if err != nil {
		return ticket, err
	}

	c.logger.Info("support ticket submitted",
		"complex", cx.Name,
		"subject", ticket.Subject,
		"method", string(ticket.Method))
	return ticket, nil
}
