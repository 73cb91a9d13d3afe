package sm2

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidGrade is returned when a grade outside Again..Easy is scheduled.
var ErrInvalidGrade = errors.New("sm2: invalid grade")

// Grade is the user's recall-quality response to a card.
type Grade int

const (
	Again Grade = iota // failed to recall
	Hard               // recalled with difficulty
	Good               // recalled after some hesitation
	Easy               // recalled without effort
)

var gradeNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

// The four user-facing grades collapse onto the six-point quality scale used
// by the classic SM-2 formula.
var gradeQuality = [...]int{Again: 0, Hard: 3, Good: 4, Easy: 5}

// String returns the grade's name, or "Grade(n)" for invalid values.
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// IsValid reports whether g is one of Again, Hard, Good, Easy.
func (g Grade) IsValid() bool {
	return g >= Again && g <= Easy
}

// ParseGrade converts the wire representation used by the review UI ("0".."3")
// into a Grade.
func ParseGrade(s string) (Grade, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !Grade(n).IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}
	return Grade(n), nil
}
