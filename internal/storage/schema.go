package storage

const schema = `
-- The 'items' table stores every review item and its scheduling state.
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    due_date DATETIME NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 1,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    review_count INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS idx_items_due_date ON items(due_date);

-- One row per graded review, kept for history and statistics.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id TEXT NOT NULL,
    rating TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    interval_days INTEGER NOT NULL,
    ease_factor REAL NOT NULL
);

-- The 'sources' table tracks where imported decks come from: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
