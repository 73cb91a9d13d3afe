package marker

import (
	"reflect"
	"strings"
	"testing"

	"github.com/conorfennell/memoria/internal/domain"
)

const (
	idA = "11111111-1111-1111-1111-111111111111"
	idB = "22222222-2222-2222-2222-222222222222"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedQ     string
		expectedA     string
		expectedStart int
		expectedEnd   int
	}{
		{
			name:          "Single marker",
			input:         "[[card:" + idA + "|q:What is Go?|a:A programming language.]]",
			expectedCards: 1,
			expectedQ:     "What is Go?",
			expectedA:     "A programming language.",
			expectedStart: 0,
			expectedEnd:   7 + 36 + 3 + 11 + 3 + 23 + 2,
		},
		{
			name:          "Marker embedded in prose",
			input:         "Some intro text. [[card:" + idA + "|q:Q|a:A]] And a tail.",
			expectedCards: 1,
			expectedQ:     "Q",
			expectedA:     "A",
			expectedStart: 17,
			expectedEnd:   17 + 7 + 36 + 3 + 1 + 3 + 1 + 2,
		},
		{
			name:          "Empty question and answer are legal",
			input:         "[[card:" + idA + "|q:|a:]]",
			expectedCards: 1,
			expectedQ:     "",
			expectedA:     "",
			expectedStart: 0,
			expectedEnd:   7 + 36 + 3 + 3 + 2,
		},
		{
			name:          "Two markers",
			input:         "[[card:" + idA + "|q:first|a:1]]\n[[card:" + idB + "|q:second|a:2]]",
			expectedCards: 2,
		},
		{
			name:          "Truncated id is not matched",
			input:         "[[card:1234|q:Q|a:A]]",
			expectedCards: 0,
		},
		{
			name:          "Non-hex id is not matched",
			input:         "[[card:zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz|q:Q|a:A]]",
			expectedCards: 0,
		},
		{
			name:          "Missing answer delimiter is not matched",
			input:         "[[card:" + idA + "|q:Q]]",
			expectedCards: 0,
		},
		{
			name:          "Missing close is not matched",
			input:         "[[card:" + idA + "|q:Q|a:A",
			expectedCards: 0,
		},
		{
			name:          "Plain text, no markers",
			input:         "Nothing to see here.",
			expectedCards: 0,
		},
		{
			name:          "Question stops at first answer delimiter",
			input:         "[[card:" + idA + "|q:Q|a:extra|a:A]]",
			expectedCards: 1,
			expectedQ:     "Q",
			expectedA:     "extra|a:A",
			expectedStart: 0,
			expectedEnd:   7 + 36 + 3 + 1 + 3 + 9 + 2,
		},
		{
			name:          "Answer stops at first close",
			input:         "[[card:" + idA + "|q:Q|a:A]] trailing ]]",
			expectedCards: 1,
			expectedQ:     "Q",
			expectedA:     "A",
			expectedStart: 0,
			expectedEnd:   7 + 36 + 3 + 1 + 3 + 1 + 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards := Parse(tc.input)

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Question != tc.expectedQ {
					t.Errorf("Expected question '%s', but got '%s'", tc.expectedQ, card.Question)
				}
				if card.Answer != tc.expectedA {
					t.Errorf("Expected answer '%s', but got '%s'", tc.expectedA, card.Answer)
				}
				if card.CharRangeStart != tc.expectedStart || card.CharRangeEnd != tc.expectedEnd {
					t.Errorf("Expected span [%d, %d), but got [%d, %d)",
						tc.expectedStart, tc.expectedEnd, card.CharRangeStart, card.CharRangeEnd)
				}
				if got := tc.input[card.CharRangeStart:card.CharRangeEnd]; got != card.MarkerText {
					t.Errorf("Span does not cover marker text: %q vs %q", got, card.MarkerText)
				}
			}
		})
	}
}

func TestParseOrderAndDuplicates(t *testing.T) {
	input := "[[card:" + idB + "|q:one|a:1]] mid [[card:" + idA + "|q:two|a:2]] [[card:" + idB + "|q:three|a:3]]"
	cards := Parse(input)

	if len(cards) != 3 {
		t.Fatalf("Expected all 3 occurrences reported, got %d", len(cards))
	}
	if cards[0].ID != idB || cards[1].ID != idA || cards[2].ID != idB {
		t.Errorf("Expected left-to-right order, got %s, %s, %s", cards[0].ID, cards[1].ID, cards[2].ID)
	}
	if cards[2].Question != "three" {
		t.Errorf("Expected duplicate occurrence to keep its own question, got %q", cards[2].Question)
	}
}

func TestParseByteOffsetsWithMultibyteText(t *testing.T) {
	prefix := "héllo • "
	input := prefix + "[[card:" + idA + "|q:Q|a:A]]"
	cards := Parse(input)

	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(cards))
	}
	if cards[0].CharRangeStart != len(prefix) {
		t.Errorf("Expected byte offset %d, got %d", len(prefix), cards[0].CharRangeStart)
	}
	if !strings.HasPrefix(input[cards[0].CharRangeStart:], "[[card:") {
		t.Error("CharRangeStart does not point at the marker")
	}
}

func TestParseIdempotent(t *testing.T) {
	input := "text [[card:" + idA + "|q:Q|a:A]] more [[card:" + idB + "|q:X|a:Y]]"
	first := Parse(input)
	second := Parse(input)
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected repeated parses of the same content to be identical")
	}
}

func TestBuildParseRoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		question string
		answer   string
	}{
		{"Plain", "What is Go?", "A language."},
		{"Empty", "", ""},
		{"Markdown", "**bold** and _italic_", "`code`"},
		{"Multibyte", "日本語の質問", "答え"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Build(idA, tc.question, tc.answer)
			cards := Parse(m)
			if len(cards) != 1 {
				t.Fatalf("Expected built marker to parse as 1 card, got %d", len(cards))
			}
			got := cards[0]
			if got.ID != idA || got.Question != tc.question || got.Answer != tc.answer {
				t.Errorf("Round trip mismatch: got (%s, %q, %q)", got.ID, got.Question, got.Answer)
			}
			if got.MarkerText != m {
				t.Errorf("Expected marker text %q, got %q", m, got.MarkerText)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	content := "before SELECTED after"
	newContent, id := Insert(content, 7, 15, "Q", "A")

	if !strings.HasPrefix(newContent, "before ") || !strings.HasSuffix(newContent, " after") {
		t.Errorf("Insert damaged surrounding text: %q", newContent)
	}
	if strings.Contains(newContent, "SELECTED") {
		t.Error("Expected the selection to be replaced")
	}

	cards := Parse(newContent)
	if len(cards) != 1 {
		t.Fatalf("Expected inserted marker to parse, got %d cards", len(cards))
	}
	if cards[0].ID != id {
		t.Errorf("Expected returned id %s to match parsed id %s", id, cards[0].ID)
	}
	var zero domain.ParsedCard
	if cards[0] == zero {
		t.Error("Parsed card is empty")
	}
}
