// Package review runs a spaced-repetition review session over the cards that
// are currently due: present the front, reveal the back, grade recall, repeat
// until the queue is drained.
package review

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/memoria/internal/domain"
	"github.com/conorfennell/memoria/internal/sm2"
	"github.com/conorfennell/memoria/internal/storage"
)

var (
	// ErrNoCurrentCard is returned when grading with no card presented.
	ErrNoCurrentCard = errors.New("review: no current card")
	// ErrAnswerHidden is returned when grading before the answer was revealed.
	ErrAnswerHidden = errors.New("review: answer not revealed")
)

// State names the session's position in its lifecycle.
type State int

const (
	Idle        State = iota // not started
	Presenting               // a card's front is showing
	AnswerShown              // the current card's back is showing
	Done                     // queue drained (or empty at start)
)

// Session holds the in-memory queue of one review sitting. A graded card
// leaves the queue for good: even an Again card whose new due date is still in
// the past waits for the next session, so one stubborn card cannot loop
// forever within a sitting.
//
// Sessions are not safe for concurrent use.
type Session struct {
	store *storage.DB
	queue []domain.Card
	state State
}

func NewSession(store *storage.DB) *Session {
	return &Session{store: store}
}

// Start loads every card due as of now, most overdue first. An empty result
// is the Done state, not an error. Start may be called again at any point to
// begin a fresh session.
func (s *Session) Start() error {
	due, err := s.store.GetDueCards(time.Now())
	if err != nil {
		return fmt.Errorf("start review session: %w", err)
	}
	s.queue = due
	if len(due) == 0 {
		s.state = Done
	} else {
		s.state = Presenting
	}
	slog.Info("review session started", "due_cards", len(due))
	return nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Remaining returns how many cards are still queued, the current one included.
func (s *Session) Remaining() int {
	return len(s.queue)
}

// Current returns the card being reviewed, if any.
func (s *Session) Current() (domain.Card, bool) {
	if s.state != Presenting && s.state != AnswerShown {
		return domain.Card{}, false
	}
	return s.queue[0], true
}

// Reveal flips the current card to answer-shown. Without a current card it is
// a no-op, not a failure.
func (s *Session) Reveal() {
	if s.state == Presenting {
		s.state = AnswerShown
	}
}

// Grade applies g to the current card: the scheduler computes the card's next
// SM-2 state, the store persists it, and the session advances. Valid only
// while the answer is shown. If the store write fails the queue and current
// card are left exactly as they were, so the call is safe to retry.
func (s *Session) Grade(g sm2.Grade) error {
	switch s.state {
	case AnswerShown:
	case Presenting:
		return fmt.Errorf("grade card: %w", ErrAnswerHidden)
	default:
		return fmt.Errorf("grade card: %w", ErrNoCurrentCard)
	}

	card := s.queue[0]
	result, err := sm2.Schedule(sm2.State{
		Interval:    card.Interval,
		Repetitions: card.Repetitions,
		EaseFactor:  card.EaseFactor,
	}, g, time.Now())
	if err != nil {
		return fmt.Errorf("grade card %s: %w", card.ID, err)
	}

	err = s.store.UpdateCardScheduling(domain.SchedulingChange{
		ID:          card.ID,
		Interval:    result.Interval,
		Repetitions: result.Repetitions,
		EaseFactor:  result.EaseFactor,
		NextDueDate: result.NextDueDate,
	})
	if err != nil {
		return fmt.Errorf("grade card %s: %w", card.ID, err)
	}

	slog.Debug("card graded",
		"card_id", card.ID,
		"grade", g.String(),
		"interval_days", result.Interval,
		"repetitions", result.Repetitions,
		"next_due", result.NextDueDate,
	)

	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.state = Done
	} else {
		s.state = Presenting
	}
	return nil
}

// Skip rotates the current card to the back of the queue without grading it
// and presents the next one, answer hidden. With one card or fewer it is a
// no-op.
func (s *Session) Skip() {
	if (s.state != Presenting && s.state != AnswerShown) || len(s.queue) <= 1 {
		return
	}
	card := s.queue[0]
	s.queue = append(s.queue[1:], card)
	s.state = Presenting
}
