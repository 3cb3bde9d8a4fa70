package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/recall/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "recall.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadItem(t *testing.T, db *DB, id string) *domain.ReviewItem {
	t.Helper()
	items, err := db.LoadItems(context.Background())
	if err != nil {
		t.Fatalf("LoadItems() returned an unexpected error: %v", err)
	}
	for _, item := range items {
		if item.ID == id {
			return &item
		}
	}
	return nil
}

func TestItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	due := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

	item := domain.ReviewItem{
		ID:          "item-1",
		Front:       "Largest planet?",
		Back:        "Jupiter",
		Category:    "Astronomy",
		DueDate:     due,
		Interval:    3,
		EaseFactor:  2.65,
		ReviewCount: 2,
	}
	if err := db.SaveItem(ctx, item); err != nil {
		t.Fatalf("SaveItem() returned an unexpected error: %v", err)
	}

	got := loadItem(t, db, "item-1")
	if got == nil {
		t.Fatal("Expected the saved item to be loaded")
	}
	if got.Front != item.Front || got.Interval != 3 || got.EaseFactor != 2.65 || got.ReviewCount != 2 || got.SourceID != 0 {
		t.Errorf("Unexpected item after round trip: %+v", got)
	}
	if !got.DueDate.Equal(due) {
		t.Errorf("Expected due date %s, but got %s", due, got.DueDate)
	}

	item.Interval = 8
	if err := db.SaveItem(ctx, item); err != nil {
		t.Fatalf("SaveItem() update returned an unexpected error: %v", err)
	}
	items, err := db.LoadItems(ctx)
	if err != nil {
		t.Fatalf("LoadItems() returned an unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Interval != 8 {
		t.Errorf("Expected a single updated item, got %+v", items)
	}
}

func TestReviewLogs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	at := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)

	if err := db.SaveItem(ctx, domain.ReviewItem{ID: "x", Front: "f", Back: "b", DueDate: at, Interval: 1, EaseFactor: 2.5}); err != nil {
		t.Fatal(err)
	}
	for _, r := range []domain.Rating{domain.Good, domain.Hard} {
		if err := db.AppendReviewLog(ctx, domain.ReviewLog{ItemID: "x", Rating: r, ReviewedAt: at, Interval: 1, EaseFactor: 2.5}); err != nil {
			t.Fatalf("AppendReviewLog() returned an unexpected error: %v", err)
		}
	}

	logs, err := db.ReviewLogs(ctx, "x")
	if err != nil {
		t.Fatalf("ReviewLogs() returned an unexpected error: %v", err)
	}
	if len(logs) != 2 || logs[0].Rating != domain.Good || logs[1].Rating != domain.Hard {
		t.Errorf("Unexpected review logs: %+v", logs)
	}

	if err := db.DeleteItem(ctx, "x"); err != nil {
		t.Fatalf("DeleteItem() returned an unexpected error: %v", err)
	}
	if logs, _ := db.ReviewLogs(ctx, "x"); len(logs) != 0 {
		t.Errorf("Expected review logs to be deleted with the item, got %d", len(logs))
	}
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.InsertSource(ctx, "https://example.com/decks.git", SourceGit)
	if err != nil {
		t.Fatalf("InsertSource() returned an unexpected error: %v", err)
	}
	if err := db.SaveItem(ctx, domain.ReviewItem{ID: "x", Front: "f", Back: "b", DueDate: time.Now(), Interval: 1, EaseFactor: 2.5, SourceID: id}); err != nil {
		t.Fatal(err)
	}

	items, err := db.GetItemsBySourceID(ctx, id)
	if err != nil || len(items) != 1 {
		t.Fatalf("GetItemsBySourceID() = %d items, %v", len(items), err)
	}

	if err := db.UpdateSourceLastScanned(ctx, id, time.Now()); err != nil {
		t.Fatalf("UpdateSourceLastScanned() returned an unexpected error: %v", err)
	}
	src, err := db.FindSourceByPath(ctx, "https://example.com/decks.git")
	if err != nil || src == nil {
		t.Fatalf("FindSourceByPath() = %v, %v", src, err)
	}
	if src.Type != SourceGit || !src.LastScanned.Valid {
		t.Errorf("Unexpected source: %+v", src)
	}

	if err := db.DeleteSource(ctx, id); err != nil {
		t.Fatalf("DeleteSource() returned an unexpected error: %v", err)
	}
	sources, _ := db.GetAllSources(ctx)
	if len(sources) != 0 {
		t.Errorf("Expected no sources, got %d", len(sources))
	}
	if item := loadItem(t, db, "x"); item == nil || item.SourceID != 0 {
		t.Errorf("Expected item to survive detached, got %+v", item)
	}
}

func TestSourceType(t *testing.T) {
	testCases := map[string]string{
		"git@github.com:me/decks.git": SourceGit,
		"https://example.com/decks":   SourceGit,
		"/home/me/notes":              SourceLocal,
		"./decks":                     SourceLocal,
	}
	for path, want := range testCases {
		if got := SourceType(path); got != want {
			t.Errorf("SourceType(%q) = %s, want %s", path, got, want)
		}
	}
}
