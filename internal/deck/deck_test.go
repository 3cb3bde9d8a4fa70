package deck

import (
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewItem(t *testing.T) {
	item, err := NewItem(Draft{Front: " 2+2? ", Back: "4", Category: "Maths"}, now)
	if err != nil {
		t.Fatalf("NewItem() returned an unexpected error: %v", err)
	}
	if item.ID == "" {
		t.Error("Expected a generated ID")
	}
	if item.Front != "2+2?" {
		t.Errorf("Expected trimmed front '2+2?', but got '%s'", item.Front)
	}
	if !item.DueDate.Equal(now) || item.Interval != 1 || item.EaseFactor != 2.5 || item.ReviewCount != 0 {
		t.Errorf("Unexpected initial scheduling state: %+v", item)
	}

	other, _ := NewItem(Draft{Front: "2+2?", Back: "4", Category: "Maths"}, now)
	if other.ID == item.ID {
		t.Error("Expected distinct IDs for separately created items")
	}
}

func TestNewItemValidation(t *testing.T) {
	testCases := []struct {
		name  string
		draft Draft
	}{
		{name: "Missing front", draft: Draft{Back: "answer", Category: "General"}},
		{name: "Blank back", draft: Draft{Front: "question", Back: "   ", Category: "General"}},
		{name: "Missing category", draft: Draft{Front: "question", Back: "answer"}},
		{name: "Blank category", draft: Draft{Front: "question", Back: "answer", Category: "  "}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewItem(tc.draft, now); !errors.Is(err, ErrInvalidItem) {
				t.Errorf("Expected ErrInvalidItem, but got %v", err)
			}
		})
	}
}

func TestImported(t *testing.T) {
	d := Draft{Front: "Q", Back: "A", Category: "C"}
	a, err := Imported(d, 7, now)
	if err != nil {
		t.Fatalf("Imported() returned an unexpected error: %v", err)
	}
	b, _ := Imported(d, 7, now.Add(time.Hour))
	if a.ID != b.ID || a.ID != ContentID("Q", "A", "C") {
		t.Errorf("Expected stable content IDs, got '%s' and '%s'", a.ID, b.ID)
	}
	if a.SourceID != 7 {
		t.Errorf("Expected source ID 7, but got %d", a.SourceID)
	}
}

func TestImportedWithoutCategory(t *testing.T) {
	item, err := Imported(Draft{Front: "Q", Back: "A"}, 7, now)
	if err != nil {
		t.Fatalf("Imported() returned an unexpected error: %v", err)
	}
	if item.Category != "" {
		t.Errorf("Expected empty category, but got '%s'", item.Category)
	}
}

func TestEdit(t *testing.T) {
	item := domain.ReviewItem{ID: "x", Front: "old", Back: "old", Category: "Old", DueDate: now, Interval: 6, EaseFactor: 2.1, ReviewCount: 3, SourceID: 2}

	got, err := Edit(item, Draft{Front: " new front ", Back: "new back", Category: "New"})
	if err != nil {
		t.Fatalf("Edit() returned an unexpected error: %v", err)
	}
	if got.Front != "new front" || got.Back != "new back" || got.Category != "New" {
		t.Errorf("Expected edited text, got %+v", got)
	}
	if got.ID != "x" || got.Interval != 6 || got.EaseFactor != 2.1 || got.ReviewCount != 3 || got.SourceID != 2 || !got.DueDate.Equal(now) {
		t.Errorf("Expected schedule to be kept, got %+v", got)
	}

	if _, err := Edit(item, Draft{Front: "", Back: "b"}); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("Expected ErrInvalidItem, but got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	legacy := domain.ReviewItem{ID: "old", Front: "f", Back: "b"}
	got := Normalize(legacy, now)
	if !got.DueDate.Equal(now) || got.Interval != 1 || got.EaseFactor != 2.5 {
		t.Errorf("Expected defaults to be filled in, got %+v", got)
	}

	kept := domain.ReviewItem{ID: "kept", DueDate: now.AddDate(0, 0, 4), Interval: 4, EaseFactor: 1.9}
	if got := Normalize(kept, now); got != kept {
		t.Errorf("Expected populated item to be unchanged, got %+v", got)
	}
}
