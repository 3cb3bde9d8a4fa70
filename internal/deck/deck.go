package deck

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/domain"
)

// ErrInvalidItem wraps validation failures for new items.
var ErrInvalidItem = errors.New("invalid item")

// Draft is the learner-supplied content of an item that does not exist yet.
type Draft struct {
	Front    string `validate:"required"`
	Back     string `validate:"required"`
	Category string `validate:"max=128"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewItem validates d and returns an immediately due item with a random ID.
// Items added by hand must name a category.
func NewItem(d Draft, now time.Time) (domain.ReviewItem, error) {
	if err := check(&d); err != nil {
		return domain.ReviewItem{}, err
	}
	if err := validate.Var(d.Category, "required"); err != nil {
		return domain.ReviewItem{}, fmt.Errorf("%w: category is required", ErrInvalidItem)
	}
	return fresh(uuid.NewString(), d, now), nil
}

// Imported builds an item for content read from a deck source. Its ID is the
// content hash so the same card always maps to the same item.
func Imported(d Draft, sourceID int64, now time.Time) (domain.ReviewItem, error) {
	if err := check(&d); err != nil {
		return domain.ReviewItem{}, err
	}
	item := fresh(ContentID(d.Front, d.Back, d.Category), d, now)
	item.SourceID = sourceID
	return item, nil
}

// Edit returns item with its text replaced by d. The schedule is kept.
func Edit(item domain.ReviewItem, d Draft) (domain.ReviewItem, error) {
	if err := check(&d); err != nil {
		return domain.ReviewItem{}, err
	}
	item.Front = d.Front
	item.Back = d.Back
	item.Category = d.Category
	return item, nil
}

// Normalize fills in scheduling defaults for records saved before those
// fields existed. Legacy items become due at now.
func Normalize(item domain.ReviewItem, now time.Time) domain.ReviewItem {
	if item.DueDate.IsZero() {
		item.DueDate = now
	}
	if item.Interval == 0 {
		item.Interval = domain.InitialInterval
	}
	if item.EaseFactor == 0 {
		item.EaseFactor = domain.InitialEaseFactor
	}
	return item
}

func check(d *Draft) error {
	d.Front = strings.TrimSpace(d.Front)
	d.Back = strings.TrimSpace(d.Back)
	d.Category = strings.TrimSpace(d.Category)
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	return nil
}

func fresh(id string, d Draft, now time.Time) domain.ReviewItem {
	return domain.ReviewItem{
		ID:         id,
		Front:      d.Front,
		Back:       d.Back,
		Category:   d.Category,
		DueDate:    now,
		Interval:   domain.InitialInterval,
		EaseFactor: domain.InitialEaseFactor,
	}
}
