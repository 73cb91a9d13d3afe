package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/memoria/internal/domain"
)

// AddNote inserts a new note.
func (db *DB) AddNote(note domain.Note) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.Title, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", note.ID, err)
	}
	return nil
}

// AddImportedNote inserts a note that belongs to an import source.
func (db *DB) AddImportedNote(note domain.Note, sourceID int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (id, title, content, source_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, note.ID, note.Title, note.Content, sourceID, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert imported note %s: %w", note.ID, err)
	}
	return nil
}

// GetNote retrieves a note by id. Returns ErrNotFound if it does not exist.
func (db *DB) GetNote(id string) (domain.Note, error) {
	var n domain.Note
	row := db.conn.QueryRow(`
		SELECT id, title, content, created_at, updated_at
		FROM notes WHERE id = ?
	`, id)

	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
		}
		return domain.Note{}, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return n, nil
}

// GetAllNotes retrieves all notes, most recently updated first.
func (db *DB) GetAllNotes() ([]domain.Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, content, created_at, updated_at
		FROM notes ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetNoteIDsBySourceID lists the ids of notes imported from a source.
func (db *DB) GetNoteIDsBySourceID(sourceID int64) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT id FROM notes WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan note id for source ID %d: %w", sourceID, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateNoteContent rewrites a note's title and content and refreshes its
// updated_at timestamp. Returns ErrNotFound if the note does not exist.
func (db *DB) UpdateNoteContent(id, title, content string) error {
	res, err := db.conn.Exec(`
		UPDATE notes SET title = ?, content = ?, updated_at = ?
		WHERE id = ?
	`, title, content, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update note %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update note %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteNote removes a note and all of its cards in one transaction.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete of note %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cards WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards for note %s: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of note %s: %w", id, err)
	}
	return nil
}
