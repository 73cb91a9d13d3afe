// Package sm2 implements the SuperMemo-2 spaced-repetition algorithm: given a
// card's scheduling state and a recall grade, it computes the next interval,
// repetition count, ease factor and due date. Scheduling is a pure function;
// persistence belongs to the caller.
package sm2

import (
	"math"
	"time"
)

const (
	// Ease factor bounds. The floor is part of classic SM-2; the ceiling
	// keeps runaway schedules in check.
	minEaseFactor = 1.3
	maxEaseFactor = 3.5

	// Reviews are stamped due at a fixed early-morning hour so "due today"
	// comparisons are stable regardless of when the card was graded.
	dueHour = 5
)

// State is the SM-2 portion of a card's state, as input to scheduling.
type State struct {
	Interval    int // days
	Repetitions int
	EaseFactor  float64
}

// Result is the scheduling outcome to be persisted on the card.
type Result struct {
	Interval    int
	Repetitions int
	EaseFactor  float64
	NextDueDate time.Time
}

// Schedule applies one review with grade g at time now.
//
// Again resets: repetitions drop to zero, the stored interval becomes 0 so the
// card is due again today, and the ease factor is left untouched. Successful
// grades advance repetitions and grow the interval: 1 day, then 6, then
// round(interval × ease factor) with round-half-up. The ease factor moves by
// the classic SM-2 delta and is clamped to [1.3, 3.5].
func Schedule(s State, g Grade, now time.Time) (Result, error) {
	if !g.IsValid() {
		return Result{}, ErrInvalidGrade
	}
	q := gradeQuality[g]

	if q < 3 {
		// Repeat immediately: interval 0, ease unchanged.
		return Result{
			Interval:    0,
			Repetitions: 0,
			EaseFactor:  s.EaseFactor,
			NextDueDate: dueDate(now, 0),
		}, nil
	}

	ef := clampEase(s.EaseFactor + easeDelta(q))

	reps := s.Repetitions + 1
	var interval int
	switch reps {
	case 1:
		interval = 1
	case 2:
		interval = 6
	default:
		interval = int(math.Round(float64(s.Interval) * ef))
		if interval < 1 {
			interval = 1
		}
	}

	return Result{
		Interval:    interval,
		Repetitions: reps,
		EaseFactor:  ef,
		NextDueDate: dueDate(now, interval),
	}, nil
}

// easeDelta is the classic SM-2 ease-factor adjustment for quality q.
func easeDelta(q int) float64 {
	return 0.1 - float64(5-q)*(0.08+float64(5-q)*0.02)
}

func clampEase(ef float64) float64 {
	if ef < minEaseFactor {
		return minEaseFactor
	}
	if ef > maxEaseFactor {
		return maxEaseFactor
	}
	return ef
}

// dueDate is now shifted by interval days, normalized to 05:00 local time.
func dueDate(now time.Time, interval int) time.Time {
	d := now.AddDate(0, 0, interval)
	return time.Date(d.Year(), d.Month(), d.Day(), dueHour, 0, 0, 0, d.Location())
}
