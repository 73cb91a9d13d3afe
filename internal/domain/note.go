package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxTitleLen   = 50
	untitledTitle = "Untitled Note"
	starterBody   = "# New Note\n\nStart writing..."
)

// Note is a markdown document. Its title is derived from the content and
// recomputed on every content update.
type Note struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNote creates an empty note with starter content.
func NewNote(now time.Time) Note {
	return Note{
		ID:        uuid.NewString(),
		Title:     TitleOf(starterBody),
		Content:   starterBody,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TitleOf derives a note title from its content: the first line, truncated to
// 50 characters. An empty first line yields "Untitled Note".
func TitleOf(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	if line == "" {
		return untitledTitle
	}
	runes := []rune(line)
	if len(runes) > maxTitleLen {
		runes = runes[:maxTitleLen]
	}
	return string(runes)
}
