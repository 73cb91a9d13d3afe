// Package notes is the write path for note content. Every content update
// derives the note title and re-syncs the note's cards, so the card set only
// ever lags an edit until its save lands.
package notes

import (
	"fmt"
	"time"

	"github.com/conorfennell/memoria/internal/domain"
	"github.com/conorfennell/memoria/internal/storage"
	"github.com/conorfennell/memoria/internal/sync"
)

// Service mutates notes through the store and keeps cards in step.
type Service struct {
	store  *storage.DB
	syncer *sync.Syncer
}

func NewService(store *storage.DB, syncer *sync.Syncer) *Service {
	return &Service{store: store, syncer: syncer}
}

// Create makes a new note with starter content and returns it.
func (s *Service) Create() (domain.Note, error) {
	note := domain.NewNote(time.Now())
	if err := s.store.AddNote(note); err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// Get returns the note by id.
func (s *Service) Get(id string) (domain.Note, error) {
	return s.store.GetNote(id)
}

// List returns all notes, most recently updated first.
func (s *Service) List() ([]domain.Note, error) {
	return s.store.GetAllNotes()
}

// UpdateContent saves new content for a note, rederiving its title, then
// syncs the note's cards against the new content. Safe to call at any rate;
// debouncing rapid edits is the caller's optimization, not a correctness
// requirement.
func (s *Service) UpdateContent(id, content string) error {
	title := domain.TitleOf(content)
	if err := s.store.UpdateNoteContent(id, title, content); err != nil {
		return fmt.Errorf("update note %s: %w", id, err)
	}
	if _, err := s.syncer.Sync(id, content); err != nil {
		return fmt.Errorf("update note %s: %w", id, err)
	}
	return nil
}

// Delete removes the note and cascades to all of its cards.
func (s *Service) Delete(id string) error {
	return s.store.DeleteNote(id)
}
