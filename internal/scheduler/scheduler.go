package scheduler

import (
	"math"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

// Params holds the tuning constants of the review algorithm.
type Params struct {
	HardInterval      int     `koanf:"hard_interval" validate:"gte=1"`
	FirstGoodInterval int     `koanf:"first_good_interval" validate:"gte=1"`
	FirstEasyInterval int     `koanf:"first_easy_interval" validate:"gte=1"`
	EasyBonus         float64 `koanf:"easy_bonus" validate:"gte=0"`
	HardPenalty       float64 `koanf:"hard_penalty" validate:"gte=0"`
	MinEaseFactor     float64 `koanf:"min_ease_factor" validate:"gte=1"`
}

// DefaultParams returns the standard constants of the simplified SM-2 scheme.
func DefaultParams() *Params {
	return &Params{
		HardInterval:      1,
		FirstGoodInterval: 3,
		FirstEasyInterval: 7,
		EasyBonus:         0.15,
		HardPenalty:       0.2,
		MinEaseFactor:     1.3,
	}
}

var defaults = DefaultParams()

// Review grades an item using the default parameters.
func Review(item domain.ReviewItem, rating domain.Rating, isFirstReview bool, now time.Time) domain.ReviewItem {
	return defaults.Review(item, rating, isFirstReview, now)
}

// SelectDue filters items using the default parameters.
func SelectDue(items []domain.ReviewItem, asOf time.Time) []domain.ReviewItem {
	return defaults.SelectDue(items, asOf)
}

// IsFirstReview reports whether item has never been graded.
func IsFirstReview(item domain.ReviewItem) bool {
	return item.ReviewCount <= 0
}

// Review returns a copy of item with its interval, ease factor and due date
// advanced for the given rating. The argument is left untouched.
func (p *Params) Review(item domain.ReviewItem, rating domain.Rating, isFirstReview bool, now time.Time) domain.ReviewItem {
	next := item
	interval, ease := p.clamp(item.Interval, item.EaseFactor)

	switch {
	case rating == domain.Hard:
		interval = p.HardInterval
	case isFirstReview && rating == domain.Easy:
		interval = p.FirstEasyInterval
	case isFirstReview:
		interval = p.FirstGoodInterval
	default:
		interval = int(math.Ceil(float64(interval) * ease))
	}

	switch rating {
	case domain.Easy:
		ease += p.EasyBonus
	case domain.Hard:
		ease = math.Max(p.MinEaseFactor, ease-p.HardPenalty)
	}

	if interval < 1 {
		interval = 1
	}

	next.Interval = interval
	next.EaseFactor = ease
	next.DueDate = now.AddDate(0, 0, interval)
	next.ReviewCount = item.ReviewCount + 1
	return next
}

// SelectDue returns the items due on or before the end of asOf's calendar
// day, in input order. The input slice is not modified.
func (p *Params) SelectDue(items []domain.ReviewItem, asOf time.Time) []domain.ReviewItem {
	cutoff := EndOfDay(asOf)
	due := make([]domain.ReviewItem, 0, len(items))
	for _, item := range items {
		if item.DueDate.Before(cutoff) {
			due = append(due, item)
		}
	}
	return due
}

// EndOfDay returns the first instant of the day after t, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func (p *Params) clamp(interval int, ease float64) (int, float64) {
	if interval < 1 {
		interval = 1
	}
	if math.IsNaN(ease) || ease < p.MinEaseFactor {
		ease = p.MinEaseFactor
	}
	return interval, ease
}
