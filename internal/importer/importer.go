// Package importer pulls markdown files from configured sources (local
// directories or git repositories) into the note store and syncs the cards
// embedded in them. Each file maps to one note with a deterministic id, so
// re-importing updates in place and files removed at the source have their
// notes (and cards) pruned.
package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/memoria/internal/domain"
	"github.com/conorfennell/memoria/internal/gitsource"
	"github.com/conorfennell/memoria/internal/storage"
	"github.com/conorfennell/memoria/internal/sync"
)

// noteNamespace seeds the deterministic note ids for imported files.
var noteNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("memoria://imported-note"))

// Importer reconciles import sources against the note store.
type Importer struct {
	store    *storage.DB
	syncer   *sync.Syncer
	reposDir string
}

func New(store *storage.DB, syncer *sync.Syncer, reposDir string) *Importer {
	return &Importer{store: store, syncer: syncer, reposDir: reposDir}
}

// DetectType classifies a source path as "git" or "local".
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// AddSource registers a new source, detecting its type from the path. Adding
// an already-registered path is a no-op.
func (imp *Importer) AddSource(path string) (int64, error) {
	existing, err := imp.store.FindSourceByPath(path)
	if err != nil {
		return 0, fmt.Errorf("add source %s: %w", path, err)
	}
	if existing != nil {
		return existing.ID, nil
	}
	id, err := imp.store.InsertSource(path, DetectType(path))
	if err != nil {
		return 0, fmt.Errorf("add source %s: %w", path, err)
	}
	slog.Info("source added", "id", id, "path", path, "type", DetectType(path))
	return id, nil
}

// Run imports every configured source. Failures in one source are logged and
// do not stop the others.
func (imp *Importer) Run() error {
	sources, err := imp.store.GetAllSources()
	if err != nil {
		return fmt.Errorf("run import: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no sources configured, nothing to import")
		return nil
	}

	if err := os.MkdirAll(imp.reposDir, 0o755); err != nil {
		return fmt.Errorf("run import: create repos dir: %w", err)
	}

	for _, source := range sources {
		slog.Info("importing source", "id", source.ID, "type", source.Type, "path", source.Path)
		if err := imp.runSource(source); err != nil {
			slog.Error("source import failed", "id", source.ID, "path", source.Path, "error", err)
			continue
		}
		if err := imp.store.UpdateSourceLastScanned(source.ID); err != nil {
			slog.Warn("failed to update last scanned for source", "id", source.ID, "error", err)
		}
	}
	return nil
}

func (imp *Importer) runSource(source storage.Source) error {
	root := source.Path
	if source.Type == "git" {
		localPath, err := gitsource.LocalPath(imp.reposDir, source.Path)
		if err != nil {
			return err
		}
		if err := gitsource.Sync(source.Path, localPath); err != nil {
			return err
		}
		root = localPath
	}

	seen := make(map[string]bool)
	var imported, updated int
	var fileErrs []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		noteID := NoteID(source.ID, rel)
		seen[noteID] = true

		raw, err := os.ReadFile(path)
		if err != nil {
			fileErrs = append(fileErrs, fmt.Errorf("reading %s: %w", path, err))
			return nil
		}
		content := string(raw)

		switch existing, err := imp.store.GetNote(noteID); {
		case errors.Is(err, storage.ErrNotFound):
			now := time.Now()
			note := domain.Note{
				ID:        noteID,
				Title:     domain.TitleOf(content),
				Content:   content,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := imp.store.AddImportedNote(note, source.ID); err != nil {
				fileErrs = append(fileErrs, fmt.Errorf("importing %s: %w", path, err))
				return nil
			}
			imported++
		case err != nil:
			fileErrs = append(fileErrs, fmt.Errorf("checking %s: %w", path, err))
			return nil
		case existing.Content == content:
			// Unchanged; still sync below so card state converges.
		default:
			if err := imp.store.UpdateNoteContent(noteID, domain.TitleOf(content), content); err != nil {
				fileErrs = append(fileErrs, fmt.Errorf("updating %s: %w", path, err))
				return nil
			}
			updated++
		}

		if _, err := imp.syncer.Sync(noteID, content); err != nil {
			fileErrs = append(fileErrs, fmt.Errorf("syncing cards for %s: %w", path, err))
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", root, walkErr)
	}

	// Prune notes whose source file disappeared; this cascades to cards.
	existingIDs, err := imp.store.GetNoteIDsBySourceID(source.ID)
	if err != nil {
		return err
	}
	var pruned int
	for _, id := range existingIDs {
		if !seen[id] {
			if err := imp.store.DeleteNote(id); err != nil {
				slog.Warn("failed to prune removed note", "note_id", id, "error", err)
				continue
			}
			pruned++
		}
	}

	slog.Info("source import complete",
		"path", source.Path,
		"imported", imported,
		"updated", updated,
		"pruned", pruned,
		"errors", len(fileErrs),
	)
	for _, e := range fileErrs {
		slog.Warn("import file error", "error", e)
	}
	return nil
}

// NoteID derives the stable note id for a file within a source.
func NoteID(sourceID int64, relPath string) string {
	key := fmt.Sprintf("%d:%s", sourceID, filepath.ToSlash(relPath))
	return uuid.NewSHA1(noteNamespace, []byte(key)).String()
}
