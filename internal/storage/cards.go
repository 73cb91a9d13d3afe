package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/memoria/internal/domain"
)

const cardColumns = `id, note_id, front, back, marker_text,
	char_range_start, char_range_end,
	interval, repetitions, ease_factor, next_due_date,
	created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (domain.Card, error) {
	var c domain.Card
	err := row.Scan(
		&c.ID, &c.NoteID, &c.Front, &c.Back, &c.MarkerText,
		&c.CharRangeStart, &c.CharRangeEnd,
		&c.Interval, &c.Repetitions, &c.EaseFactor, &c.NextDueDate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// GetCard retrieves a card by id. Returns ErrNotFound if it does not exist.
func (db *DB) GetCard(id string) (domain.Card, error) {
	row := db.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return c, nil
}

// GetCardsByNoteID retrieves every card belonging to a note.
func (db *DB) GetCardsByNoteID(noteID string) ([]domain.Card, error) {
	rows, err := db.conn.Query(`SELECT `+cardColumns+` FROM cards WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for note %s: %w", noteID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for note %s: %w", noteID, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetDueCards retrieves every card due as of the given time, ordered by due
// date ascending so the most overdue cards come first.
func (db *DB) GetDueCards(asOf time.Time) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+` FROM cards
		WHERE next_due_date <= ?
		ORDER BY next_due_date ASC
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func addCards(ex execer, creates []domain.Card) error {
	for _, c := range creates {
		_, err := ex.Exec(`
			INSERT INTO cards (`+cardColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ID, c.NoteID, c.Front, c.Back, c.MarkerText,
			c.CharRangeStart, c.CharRangeEnd,
			c.Interval, c.Repetitions, c.EaseFactor, c.NextDueDate,
			c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
		}
	}
	return nil
}

func updateCardIdentities(ex execer, updates []domain.IdentityChange) error {
	now := time.Now()
	for _, u := range updates {
		_, err := ex.Exec(`
			UPDATE cards
			SET front = ?, back = ?, marker_text = ?,
			    char_range_start = ?, char_range_end = ?, updated_at = ?
			WHERE id = ?
		`, u.Front, u.Back, u.MarkerText, u.CharRangeStart, u.CharRangeEnd, now, u.ID)
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", u.ID, err)
		}
	}
	return nil
}

func deleteCards(ex execer, ids []string) error {
	for _, id := range ids {
		if _, err := ex.Exec(`DELETE FROM cards WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete card %s: %w", id, err)
		}
	}
	return nil
}

// BulkAddCards inserts the given cards.
func (db *DB) BulkAddCards(creates []domain.Card) error {
	return addCards(db.conn, creates)
}

// BulkUpdateCards patches identity fields only. Scheduling fields are owned by
// UpdateCardScheduling and never touched here.
func (db *DB) BulkUpdateCards(updates []domain.IdentityChange) error {
	return updateCardIdentities(db.conn, updates)
}

// BulkDeleteCards deletes the cards with the given ids. Missing ids are not an
// error.
func (db *DB) BulkDeleteCards(ids []string) error {
	return deleteCards(db.conn, ids)
}

// ApplyCardChanges applies a sync diff for one note in a single transaction:
// either every creation, identity update and deletion lands, or none do.
func (db *DB) ApplyCardChanges(noteID string, creates []domain.Card, updates []domain.IdentityChange, deletes []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin card changes for note %s: %w", noteID, err)
	}
	defer tx.Rollback()

	if err := addCards(tx, creates); err != nil {
		return fmt.Errorf("card changes for note %s: %w", noteID, err)
	}
	if err := updateCardIdentities(tx, updates); err != nil {
		return fmt.Errorf("card changes for note %s: %w", noteID, err)
	}
	if err := deleteCards(tx, deletes); err != nil {
		return fmt.Errorf("card changes for note %s: %w", noteID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit card changes for note %s: %w", noteID, err)
	}
	return nil
}

// UpdateCardScheduling persists the outcome of one graded review. Identity
// fields are untouched. Returns ErrNotFound if the card does not exist.
func (db *DB) UpdateCardScheduling(ch domain.SchedulingChange) error {
	res, err := db.conn.Exec(`
		UPDATE cards
		SET interval = ?, repetitions = ?, ease_factor = ?, next_due_date = ?, updated_at = ?
		WHERE id = ?
	`, ch.Interval, ch.Repetitions, ch.EaseFactor, ch.NextDueDate, time.Now(), ch.ID)
	if err != nil {
		return fmt.Errorf("failed to update scheduling for card %s: %w", ch.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update scheduling for card %s: %w", ch.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", ch.ID, ErrNotFound)
	}
	return nil
}
