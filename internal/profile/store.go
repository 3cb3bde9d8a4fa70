// Package profile holds the learner's review items and applies every change
// to them through a closed set of actions.
package profile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/scheduler"
)

// ErrItemNotFound is returned when an action names an unknown item.
var ErrItemNotFound = errors.New("item not found")

// Repository persists the store's items.
type Repository interface {
	LoadItems(ctx context.Context) ([]domain.ReviewItem, error)
	SaveItem(ctx context.Context, item domain.ReviewItem) error
	DeleteItem(ctx context.Context, id string) error
	AppendReviewLog(ctx context.Context, entry domain.ReviewLog) error
}

// Scheduler grades items. *scheduler.Params satisfies it.
type Scheduler interface {
	Review(item domain.ReviewItem, rating domain.Rating, isFirstReview bool, now time.Time) domain.ReviewItem
	SelectDue(items []domain.ReviewItem, asOf time.Time) []domain.ReviewItem
}

// Store is the single writer for a learner's items. Each action is persisted
// before the in-memory state changes, so a failed write leaves both intact.
type Store struct {
	mu     sync.RWMutex
	items  map[string]domain.ReviewItem
	repo   Repository
	sched  Scheduler
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithScheduler replaces the default review parameters.
func WithScheduler(s Scheduler) Option {
	return func(st *Store) { st.sched = s }
}

// WithLogger sets the logger used for action tracing.
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithClock sets the time source used to fill defaults on load.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// Open loads every item from repo into a new Store. Records missing their
// scheduling state get the defaults of a new item.
func Open(ctx context.Context, repo Repository, opts ...Option) (*Store, error) {
	s := &Store{
		items:  make(map[string]domain.ReviewItem),
		repo:   repo,
		sched:  scheduler.DefaultParams(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	items, err := repo.LoadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	now := s.now()
	for _, item := range items {
		s.items[item.ID] = deck.Normalize(item, now)
	}
	s.logger.Debug("profile loaded", "items", len(items))
	return s, nil
}

// Dispatch applies a single action.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := action.apply(ctx, s); err != nil {
		return fmt.Errorf("%s: %w", action.name(), err)
	}
	s.logger.Debug("action applied", "action", action.name())
	return nil
}

// Get returns the item with the given ID.
func (s *Store) Get(id string) (domain.ReviewItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Snapshot returns a copy of all items, ordered by due date then ID.
func (s *Store) Snapshot() []domain.ReviewItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Due returns the items due by the end of asOf's day, soonest first. A
// non-empty category restricts the result to that category.
func (s *Store) Due(asOf time.Time, category string) []domain.ReviewItem {
	s.mu.RLock()
	all := s.sorted()
	s.mu.RUnlock()

	if category != "" {
		all = slices.DeleteFunc(all, func(item domain.ReviewItem) bool {
			return item.Category != category
		})
	}
	return s.sched.SelectDue(all, asOf)
}

// Categories returns the distinct non-empty categories in sorted order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, item := range s.items {
		if item.Category != "" && !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	slices.Sort(out)
	return out
}

func (s *Store) sorted() []domain.ReviewItem {
	out := make([]domain.ReviewItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b domain.ReviewItem) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
