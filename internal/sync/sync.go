// Package sync reconciles the markers present in a note's content against the
// persisted card set for that note. After a successful sync the two are in
// bijection: every marker id has exactly one card and vice versa.
package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/memoria/internal/domain"
	"github.com/conorfennell/memoria/internal/marker"
	"github.com/conorfennell/memoria/internal/storage"
)

// Syncer diffs parsed markers against stored cards and applies the result.
// Callers are responsible for serializing syncs of the same note; the Syncer
// does not self-serialize.
type Syncer struct {
	store *storage.DB
}

func New(store *storage.DB) *Syncer {
	return &Syncer{store: store}
}

// Changes summarizes what one sync did. A second sync against unchanged
// content reports all zeros.
type Changes struct {
	Created int
	Updated int
	Deleted int
}

// Sync brings the stored card set for noteID into line with content. The
// three change groups are applied in one transaction; on error the store is
// left untouched and the call is safe to retry, since the diff is keyed by
// marker id rather than accumulated.
//
// Scheduling fields are never written here. New cards get default SM-2 state
// and are due immediately; existing cards keep their review progress even
// when their question or answer changed.
//
// Duplicate marker ids in one note are a parse ambiguity, not an error: the
// last occurrence wins for question/answer/span tracking, the id still counts
// as matched, and the duplication is logged.
func (s *Syncer) Sync(noteID, content string) (Changes, error) {
	parsed := marker.Parse(content)

	byID := make(map[string]domain.ParsedCard, len(parsed))
	order := make([]string, 0, len(parsed))
	for _, p := range parsed {
		if _, dup := byID[p.ID]; dup {
			slog.Warn("duplicate marker id in note, last occurrence wins",
				"note_id", noteID, "card_id", p.ID)
		} else {
			order = append(order, p.ID)
		}
		byID[p.ID] = p
	}

	existing, err := s.store.GetCardsByNoteID(noteID)
	if err != nil {
		return Changes{}, fmt.Errorf("sync note %s: %w", noteID, err)
	}
	existingByID := make(map[string]domain.Card, len(existing))
	for _, c := range existing {
		existingByID[c.ID] = c
	}

	now := time.Now()
	var creates []domain.Card
	var updates []domain.IdentityChange
	for _, id := range order {
		p := byID[id]
		c, ok := existingByID[id]
		if !ok {
			creates = append(creates, domain.NewCard(p, noteID, now))
			continue
		}
		if c.Front != p.Question || c.Back != p.Answer || c.MarkerText != p.MarkerText ||
			c.CharRangeStart != p.CharRangeStart || c.CharRangeEnd != p.CharRangeEnd {
			updates = append(updates, domain.IdentityChange{
				ID:             id,
				Front:          p.Question,
				Back:           p.Answer,
				MarkerText:     p.MarkerText,
				CharRangeStart: p.CharRangeStart,
				CharRangeEnd:   p.CharRangeEnd,
			})
		}
	}

	var deletes []string
	for _, c := range existing {
		if _, found := byID[c.ID]; !found {
			deletes = append(deletes, c.ID)
		}
	}

	ch := Changes{Created: len(creates), Updated: len(updates), Deleted: len(deletes)}
	if ch == (Changes{}) {
		return ch, nil
	}

	if err := s.store.ApplyCardChanges(noteID, creates, updates, deletes); err != nil {
		return Changes{}, fmt.Errorf("sync note %s: %w", noteID, err)
	}

	slog.Debug("synced note cards",
		"note_id", noteID,
		"created", ch.Created,
		"updated", ch.Updated,
		"deleted", ch.Deleted,
	)
	return ch, nil
}
