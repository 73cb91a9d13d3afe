package domain

import "time"

// DefaultEaseFactor is the SM-2 ease factor assigned to a freshly created card.
const DefaultEaseFactor = 2.5

// Card is a flashcard extracted from a note marker. Its ID is the UUID embedded
// in the marker text, generated once when the marker is inserted; it never
// changes, even when the question or answer is edited.
type Card struct {
	ID         string
	NoteID     string
	Front      string
	Back       string
	MarkerText string

	// Byte offsets of MarkerText within the owning note's content at last
	// sync, half-open [start, end). Used for highlighting in the editor.
	CharRangeStart int
	CharRangeEnd   int

	// SM-2 scheduling state. Owned by the review flow; a sync never writes
	// these fields.
	Interval    int // days
	Repetitions int
	EaseFactor  float64
	NextDueDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParsedCard is a single marker occurrence found in note content.
type ParsedCard struct {
	ID             string
	Question       string
	Answer         string
	MarkerText     string
	CharRangeStart int
	CharRangeEnd   int
}

// NewCard builds a card for a marker seen for the first time, with default
// SM-2 state so it is due immediately.
func NewCard(p ParsedCard, noteID string, now time.Time) Card {
	return Card{
		ID:             p.ID,
		NoteID:         noteID,
		Front:          p.Question,
		Back:           p.Answer,
		MarkerText:     p.MarkerText,
		CharRangeStart: p.CharRangeStart,
		CharRangeEnd:   p.CharRangeEnd,
		Interval:       0,
		Repetitions:    0,
		EaseFactor:     DefaultEaseFactor,
		NextDueDate:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IdentityChange patches the fields a sync is allowed to touch. Scheduling
// fields are deliberately absent so a sync cannot clobber review progress.
type IdentityChange struct {
	ID             string
	Front          string
	Back           string
	MarkerText     string
	CharRangeStart int
	CharRangeEnd   int
}

// SchedulingChange patches the fields a review is allowed to touch.
type SchedulingChange struct {
	ID          string
	Interval    int
	Repetitions int
	EaseFactor  float64
	NextDueDate time.Time
}
