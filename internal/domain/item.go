package domain

import "time"

// Default scheduling state for a newly created item.
const (
	InitialInterval   = 1
	InitialEaseFactor = 2.5
)

// ReviewItem is a single front/back memorization unit.
type ReviewItem struct {
	ID       string
	Front    string
	Back     string
	Category string
	SourceID int64 // 0 when the item was added by hand

	// Scheduling state. Only the scheduler changes these.
	DueDate     time.Time
	Interval    int // days
	EaseFactor  float64
	ReviewCount int
}

// ReviewLog records a single graded review of an item.
type ReviewLog struct {
	ItemID     string
	Rating     Rating
	ReviewedAt time.Time
	Interval   int
	EaseFactor float64
}
