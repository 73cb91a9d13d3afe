package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/conorfennell/memoria/internal/debounce"
	"github.com/conorfennell/memoria/internal/domain"
	"github.com/conorfennell/memoria/internal/notes"
)

// saverPool debounces note saves per note id. The editor posts content on
// every change; the pool keeps only the latest content and writes it (with
// its card sync) once the quiet period passes.
type saverPool struct {
	notes *notes.Service
	quiet time.Duration

	mu     sync.Mutex
	savers map[string]*noteSaver
}

type noteSaver struct {
	deb *debounce.Debouncer

	mu      sync.Mutex
	content string

	// saveMu serializes saves of this note: a timer firing can overlap a
	// flush, and the sync triggered by each save must not interleave with
	// another sync of the same note.
	saveMu sync.Mutex
}

func newSaverPool(svc *notes.Service, quiet time.Duration) *saverPool {
	return &saverPool{
		notes:  svc,
		quiet:  quiet,
		savers: make(map[string]*noteSaver),
	}
}

// submit records the latest content for a note and (re)arms its save timer.
// It returns the title the content derives to, so callers can echo it without
// waiting for the save.
func (p *saverPool) submit(noteID, content string) string {
	p.mu.Lock()
	ns, ok := p.savers[noteID]
	if !ok {
		ns = &noteSaver{}
		ns.deb = debounce.New(p.quiet, func() { p.save(noteID, ns) })
		p.savers[noteID] = ns
	}
	p.mu.Unlock()

	ns.mu.Lock()
	ns.content = content
	ns.mu.Unlock()
	ns.deb.Trigger()

	return domain.TitleOf(content)
}

// flush writes any pending content for a note immediately.
func (p *saverPool) flush(noteID string) {
	p.mu.Lock()
	ns, ok := p.savers[noteID]
	p.mu.Unlock()
	if ok {
		ns.deb.Flush()
	}
}

// drop discards any pending save, for notes about to be deleted.
func (p *saverPool) drop(noteID string) {
	p.mu.Lock()
	ns, ok := p.savers[noteID]
	delete(p.savers, noteID)
	p.mu.Unlock()
	if ok {
		ns.deb.Stop()
	}
}

func (p *saverPool) save(noteID string, ns *noteSaver) {
	ns.saveMu.Lock()
	defer ns.saveMu.Unlock()

	ns.mu.Lock()
	content := ns.content
	ns.mu.Unlock()

	if err := p.notes.UpdateContent(noteID, content); err != nil {
		slog.Error("autosave failed", "note_id", noteID, "error", err)
	}
}
