package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/recall/internal/domain"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const itemColumns = `id, front, back, category, due_date, interval_days, ease_factor, review_count, source_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (domain.ReviewItem, error) {
	var item domain.ReviewItem
	var sourceID sql.NullInt64
	err := row.Scan(
		&item.ID,
		&item.Front,
		&item.Back,
		&item.Category,
		&item.DueDate,
		&item.Interval,
		&item.EaseFactor,
		&item.ReviewCount,
		&sourceID,
	)
	item.SourceID = sourceID.Int64
	return item, err
}

func nullSource(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// LoadItems returns every stored item.
func (db *DB) LoadItems(ctx context.Context) ([]domain.ReviewItem, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveItem inserts the item or replaces the stored copy with the same ID.
func (db *DB) SaveItem(ctx context.Context, item domain.ReviewItem) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			front = excluded.front,
			back = excluded.back,
			category = excluded.category,
			due_date = excluded.due_date,
			interval_days = excluded.interval_days,
			ease_factor = excluded.ease_factor,
			review_count = excluded.review_count,
			source_id = excluded.source_id
	`,
		item.ID,
		item.Front,
		item.Back,
		item.Category,
		item.DueDate.UTC(),
		item.Interval,
		item.EaseFactor,
		item.ReviewCount,
		nullSource(item.SourceID),
	)
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

// DeleteItem removes an item and its review history.
func (db *DB) DeleteItem(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of item %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_logs WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete review logs for item %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return tx.Commit()
}

// GetItemsBySourceID retrieves all items imported from a specific source.
func (db *DB) GetItemsBySourceID(ctx context.Context, sourceID int64) ([]domain.ReviewItem, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row for source ID %d: %w", sourceID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AppendReviewLog records a graded review.
func (db *DB) AppendReviewLog(ctx context.Context, entry domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_logs (item_id, rating, reviewed_at, interval_days, ease_factor)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ItemID, entry.Rating.String(), entry.ReviewedAt.UTC(), entry.Interval, entry.EaseFactor)
	if err != nil {
		return fmt.Errorf("failed to append review log for item %s: %w", entry.ItemID, err)
	}
	return nil
}

// ReviewLogs returns the review history of an item, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, itemID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, rating, reviewed_at, interval_days, ease_factor
		FROM review_logs WHERE item_id = ? ORDER BY id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for item %s: %w", itemID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var entry domain.ReviewLog
		var rating string
		if err := rows.Scan(&entry.ItemID, &rating, &entry.ReviewedAt, &entry.Interval, &entry.EaseFactor); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		if entry.Rating, err = domain.ParseRating(rating); err != nil {
			return nil, fmt.Errorf("review log for item %s: %w", itemID, err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// SourceType guesses the type of a source from its path.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return SourceGit
	}
	return SourceLocal
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path. It returns nil, nil when there is none.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	if err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, at.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source. Items imported from it are detached and
// kept, so their review history survives.
func (db *DB) DeleteSource(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of source %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE items SET source_id = NULL WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach items from source %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return tx.Commit()
}
