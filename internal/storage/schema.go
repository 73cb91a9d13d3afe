package storage

const schema = `
-- Notes hold raw markdown content with embedded card markers. Imported notes
-- carry the source they came from so re-imports can prune removed files.
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    source_id INTEGER,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Cards are keyed by the UUID embedded in their marker. Identity fields are
-- written by sync, scheduling fields by the review flow.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    note_id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    marker_text TEXT NOT NULL,
    char_range_start INTEGER NOT NULL,
    char_range_end INTEGER NOT NULL,
    interval INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    next_due_date DATETIME NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(note_id) REFERENCES notes(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_note_id ON cards(note_id);
CREATE INDEX IF NOT EXISTS idx_cards_next_due_date ON cards(next_due_date);

-- Sources track where imported notes come from, either a local directory or a
-- git repository of markdown files.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
