package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/scheduler"
)

// Action is a change to the profile. The set is closed: only the types in
// this file implement it.
type Action interface {
	name() string
	apply(ctx context.Context, s *Store) error
}

// AddItems inserts new items. Items whose ID is already present are skipped.
type AddItems struct {
	Items []domain.ReviewItem
}

// UpdateItem replaces the payload of an existing item, keeping its schedule.
type UpdateItem struct {
	Item domain.ReviewItem
}

// DeleteItem removes an item.
type DeleteItem struct {
	ID string
}

// ReviewItem grades an item and reschedules it.
type ReviewItem struct {
	ID     string
	Rating domain.Rating
	At     time.Time
}

// DetachSource clears the source of every item imported from SourceID.
type DetachSource struct {
	SourceID int64
}

func (AddItems) name() string     { return "add items" }
func (UpdateItem) name() string   { return "update item" }
func (DeleteItem) name() string   { return "delete item" }
func (ReviewItem) name() string   { return "review item" }
func (DetachSource) name() string { return "detach source" }

func (a AddItems) apply(ctx context.Context, s *Store) error {
	added := 0
	for _, item := range a.Items {
		if _, exists := s.items[item.ID]; exists {
			continue
		}
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return err
		}
		s.items[item.ID] = item
		added++
	}
	s.logger.Info("items added", "requested", len(a.Items), "added", added)
	return nil
}

func (a UpdateItem) apply(ctx context.Context, s *Store) error {
	current, ok := s.items[a.Item.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, a.Item.ID)
	}
	current.Front = a.Item.Front
	current.Back = a.Item.Back
	current.Category = a.Item.Category
	if err := s.repo.SaveItem(ctx, current); err != nil {
		return err
	}
	s.items[current.ID] = current
	return nil
}

func (a DeleteItem) apply(ctx context.Context, s *Store) error {
	if _, ok := s.items[a.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, a.ID)
	}
	if err := s.repo.DeleteItem(ctx, a.ID); err != nil {
		return err
	}
	delete(s.items, a.ID)
	s.logger.Info("item deleted", "id", a.ID)
	return nil
}

func (a ReviewItem) apply(ctx context.Context, s *Store) error {
	current, ok := s.items[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, a.ID)
	}
	if !a.Rating.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(a.Rating))
	}

	at := a.At
	if at.IsZero() {
		at = time.Now()
	}
	next := s.sched.Review(current, a.Rating, scheduler.IsFirstReview(current), at)

	if err := s.repo.SaveItem(ctx, next); err != nil {
		return err
	}
	s.items[next.ID] = next

	entry := domain.ReviewLog{
		ItemID:     next.ID,
		Rating:     a.Rating,
		ReviewedAt: at,
		Interval:   next.Interval,
		EaseFactor: next.EaseFactor,
	}
	if err := s.repo.AppendReviewLog(ctx, entry); err != nil {
		// The schedule is already saved; a missing history row is not fatal.
		s.logger.Warn("failed to append review log", "id", next.ID, "error", err)
	}

	s.logger.Info("item reviewed",
		"id", next.ID,
		"rating", a.Rating,
		"interval", next.Interval,
		"ease_factor", next.EaseFactor,
		"due", next.DueDate.Format(time.DateOnly),
	)
	return nil
}

func (a DetachSource) apply(ctx context.Context, s *Store) error {
	for id, item := range s.items {
		if item.SourceID != a.SourceID {
			continue
		}
		item.SourceID = 0
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return err
		}
		s.items[id] = item
	}
	return nil
}
