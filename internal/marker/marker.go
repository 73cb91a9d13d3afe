// Package marker implements the inline flashcard marker syntax embedded in
// note content:
//
//	[[card:<uuid>|q:<question>|a:<answer>]]
//
// The marker text is the wire format between the editor and the card store and
// must stay byte-for-byte stable for previously created cards to keep their
// identity.
package marker

import (
	"fmt"
	"strings"

	"github.com/conorfennell/memoria/internal/domain"
	"github.com/google/uuid"
)

const (
	openToken   = "[[card:"
	questionSep = "|q:"
	answerSep   = "|a:"
	closeToken  = "]]"

	idLen = 36 // canonical UUID text length
)

// Parse extracts every marker occurrence from content in left-to-right order.
// Question and answer take the shortest match up to the next "|a:" and "]]"
// respectively. Malformed candidates (bad id, missing delimiters) are skipped
// and remain literal text. Duplicate ids are reported as-is, one record per
// occurrence; deduplication is the synchronizer's concern.
//
// Char ranges are byte offsets into content, half-open [start, end).
func Parse(content string) []domain.ParsedCard {
	var cards []domain.ParsedCard
	pos := 0
	for {
		rel := strings.Index(content[pos:], openToken)
		if rel < 0 {
			return cards
		}
		start := pos + rel
		card, ok := matchAt(content, start)
		if !ok {
			// Resume one byte in so an overlapping candidate further
			// along can still match.
			pos = start + 1
			continue
		}
		cards = append(cards, card)
		pos = card.CharRangeEnd
	}
}

// matchAt attempts to match a complete marker beginning at start, which must
// point at an openToken occurrence.
func matchAt(content string, start int) (domain.ParsedCard, bool) {
	i := start + len(openToken)
	if i+idLen > len(content) {
		return domain.ParsedCard{}, false
	}
	id := content[i : i+idLen]
	if !validID(id) {
		return domain.ParsedCard{}, false
	}
	i += idLen

	if !strings.HasPrefix(content[i:], questionSep) {
		return domain.ParsedCard{}, false
	}
	i += len(questionSep)

	qEnd := strings.Index(content[i:], answerSep)
	if qEnd < 0 {
		return domain.ParsedCard{}, false
	}
	question := content[i : i+qEnd]
	i += qEnd + len(answerSep)

	aEnd := strings.Index(content[i:], closeToken)
	if aEnd < 0 {
		return domain.ParsedCard{}, false
	}
	answer := content[i : i+aEnd]
	end := i + aEnd + len(closeToken)

	return domain.ParsedCard{
		ID:             id,
		Question:       question,
		Answer:         answer,
		MarkerText:     content[start:end],
		CharRangeStart: start,
		CharRangeEnd:   end,
	}, true
}

// validID reports whether s looks like a 36-character UUID: hex digits and
// hyphens only. Hyphen positions are not checked, matching the lenient
// pattern historically used to create markers.
func validID(s string) bool {
	if len(s) != idLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// Build assembles marker text from its parts. Build then Parse round-trips
// exactly as long as question contains no "|a:" and answer contains no "]]".
func Build(id, question, answer string) string {
	return fmt.Sprintf("%s%s%s%s%s%s%s", openToken, id, questionSep, question, answerSep, answer, closeToken)
}

// Insert replaces content[selStart:selEnd] with a freshly minted marker and
// returns the new content plus the generated card id. This is the editor
// bridge: the editor hands over the selection, the next sync picks the new
// marker up.
func Insert(content string, selStart, selEnd int, question, answer string) (string, string) {
	id := uuid.NewString()
	m := Build(id, question, answer)
	return content[:selStart] + m + content[selEnd:], id
}
