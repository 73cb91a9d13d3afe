// Package web serves the HTMX UI: a notes list with an autosaving editor, the
// review flow, and import source management.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/conorfennell/memoria/internal/importer"
	"github.com/conorfennell/memoria/internal/marker"
	"github.com/conorfennell/memoria/internal/notes"
	"github.com/conorfennell/memoria/internal/review"
	"github.com/conorfennell/memoria/internal/sm2"
	"github.com/conorfennell/memoria/internal/storage"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	store     *storage.DB
	notes     *notes.Service
	importer  *importer.Importer
	router    *http.ServeMux
	templates *template.Template
	savers    *saverPool

	// sessionMu serializes all access to session: review.Session is not safe
	// for concurrent use, and handlers run on arbitrary goroutines.
	sessionMu sync.Mutex
	session   *review.Session
}

// NewServer creates and configures a new server. debounce is the autosave
// quiet period; the editor may post content at any rate.
func NewServer(store *storage.DB, noteSvc *notes.Service, imp *importer.Importer, debounce time.Duration) *Server {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		store:     store,
		notes:     noteSvc,
		importer:  imp,
		session:   review.NewSession(store),
		router:    http.NewServeMux(),
		templates: tpl,
		savers:    newSaverPool(noteSvc, debounce),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// HTMX-based routes
	s.router.HandleFunc("/notes", s.handleNotes())
	s.router.HandleFunc("/notes/", s.handleNote())

	s.router.HandleFunc("/deck", s.handleGetDeck())
	s.router.HandleFunc("/review/start", s.handleStartReview())
	s.router.HandleFunc("/review/reveal", s.handleReveal())
	s.router.HandleFunc("/review/grade", s.handleGrade())
	s.router.HandleFunc("/review/skip", s.handleSkip())

	// Source management routes
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

// --- notes ---

// handleNotes handles the note collection: GET lists, POST creates.
func (s *Server) handleNotes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.renderNoteList(w)
		case http.MethodPost:
			note, err := s.notes.Create()
			if err != nil {
				slog.Error("failed to create note", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			s.render(w, "note_editor", note)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleNote handles a single note: GET opens the editor, DELETE removes it,
// POST .../content autosaves, POST .../cards inserts a marker.
func (s *Server) handleNote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/notes/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			http.NotFound(w, r)
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			s.savers.flush(id)
			note, err := s.notes.Get(id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					http.NotFound(w, r)
					return
				}
				slog.Error("failed to load note", "note_id", id, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			s.render(w, "note_editor", note)

		case action == "" && r.Method == http.MethodDelete:
			s.savers.drop(id)
			if err := s.notes.Delete(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
				slog.Error("failed to delete note", "note_id", id, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			s.renderNoteList(w)

		case action == "content" && r.Method == http.MethodPost:
			s.handleAutosave(w, r, id)

		case action == "cards" && r.Method == http.MethodPost:
			s.handleInsertMarker(w, r, id)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleAutosave accepts the editor's latest content. The save (and the card
// sync it implies) is debounced; the response carries the derived title so
// the UI can update immediately.
func (s *Server) handleAutosave(w http.ResponseWriter, r *http.Request, id string) {
	content := r.PostFormValue("content")
	title := s.savers.submit(id, content)
	w.WriteHeader(http.StatusAccepted)
	s.render(w, "note_title", map[string]any{"ID": id, "Title": title})
}

// handleInsertMarker replaces the editor selection with a fresh card marker
// and schedules a save of the resulting content. The browser reports the
// selection in UTF-16 code units; it is mapped onto byte offsets before the
// content string is sliced.
func (s *Server) handleInsertMarker(w http.ResponseWriter, r *http.Request, id string) {
	content := r.PostFormValue("content")
	selStart, err1 := strconv.Atoi(r.PostFormValue("sel_start"))
	selEnd, err2 := strconv.Atoi(r.PostFormValue("sel_end"))
	if err1 != nil || err2 != nil || selStart < 0 || selEnd < selStart {
		http.Error(w, "Invalid selection", http.StatusBadRequest)
		return
	}
	start, okStart := utf16ToByteOffset(content, selStart)
	end, okEnd := utf16ToByteOffset(content, selEnd)
	if !okStart || !okEnd {
		http.Error(w, "Invalid selection", http.StatusBadRequest)
		return
	}

	newContent, cardID := marker.Insert(content, start, end,
		r.PostFormValue("front"), r.PostFormValue("back"))
	s.savers.submit(id, newContent)

	w.Header().Set("X-Card-Id", cardID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(newContent))
}

// utf16ToByteOffset maps a UTF-16 code-unit offset, as reported by a browser
// textarea selection, to a byte offset into s. The second return is false
// when the offset is out of range or falls between the halves of a surrogate
// pair, so a marker can never be inserted mid-rune.
func utf16ToByteOffset(s string, off int) (int, bool) {
	if off < 0 {
		return 0, false
	}
	units := 0
	for i, r := range s {
		if units == off {
			return i, true
		}
		units += utf16.RuneLen(r)
		if units > off {
			return 0, false
		}
	}
	if units == off {
		return len(s), true
	}
	return 0, false
}

func (s *Server) renderNoteList(w http.ResponseWriter) {
	all, err := s.notes.List()
	if err != nil {
		slog.Error("failed to list notes", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "note_list", map[string]any{"Notes": all})
}

// --- review ---

// handleGetDeck renders the deck view, showing the number of due cards.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dueCards, err := s.store.GetDueCards(time.Now())
		if err != nil {
			slog.Error("failed to get due cards for deck view", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.render(w, "deck", map[string]any{
			"DueCount":    len(dueCards),
			"HasDueCards": len(dueCards) > 0,
		})
	}
}

func (s *Server) handleStartReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.sessionMu.Lock()
		defer s.sessionMu.Unlock()
		if err := s.session.Start(); err != nil {
			slog.Error("failed to start review session", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderReviewState(w)
	}
}

func (s *Server) handleReveal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.sessionMu.Lock()
		defer s.sessionMu.Unlock()
		s.session.Reveal()
		s.renderReviewState(w)
	}
}

func (s *Server) handleGrade() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		grade, err := sm2.ParseGrade(r.PostFormValue("grade"))
		if err != nil {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}
		s.sessionMu.Lock()
		defer s.sessionMu.Unlock()
		if err := s.session.Grade(grade); err != nil {
			if errors.Is(err, review.ErrAnswerHidden) || errors.Is(err, review.ErrNoCurrentCard) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			slog.Error("failed to grade card", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.renderReviewState(w)
	}
}

func (s *Server) handleSkip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.sessionMu.Lock()
		defer s.sessionMu.Unlock()
		s.session.Skip()
		s.renderReviewState(w)
	}
}

// renderReviewState renders whatever the session should show next: the
// current card's front or back, or the done view. Callers must hold sessionMu.
func (s *Server) renderReviewState(w http.ResponseWriter) {
	card, ok := s.session.Current()
	if !ok {
		s.render(w, "review_done", nil)
		return
	}
	data := map[string]any{"Card": card, "Remaining": s.session.Remaining()}
	if s.session.State() == review.AnswerShown {
		s.render(w, "card_back", data)
		return
	}
	s.render(w, "card_front", data)
}

// --- sources ---

// handlePostSync triggers a manual import and re-renders the source list.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := s.importer.Run(); err != nil {
			slog.Error("import run failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		s.render(w, "sync_success", nil)
		s.renderSourceList(w)
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sources, err := s.store.GetAllSources()
			if err != nil {
				slog.Error("failed to get sources", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			s.render(w, "sources", map[string]any{"Sources": sources})
		case http.MethodPost:
			path := r.PostFormValue("path")
			if path == "" {
				http.Error(w, "Path cannot be empty", http.StatusBadRequest)
				return
			}
			if _, err := s.importer.AddSource(path); err != nil {
				slog.Error("failed to add source", "path", path, "error", err)
				http.Error(w, "Failed to add source", http.StatusInternalServerError)
				return
			}
			s.renderSourceList(w)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleDeleteSource deletes a source and re-renders the source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.store.DeleteSource(id); err != nil {
			slog.Error("failed to delete source", "source_id", id, "error", err)
			http.Error(w, "Failed to delete source", http.StatusInternalServerError)
			return
		}
		s.renderSourceList(w)
	}
}

func (s *Server) renderSourceList(w http.ResponseWriter) {
	sources, err := s.store.GetAllSources()
	if err != nil {
		slog.Error("failed to get sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "source_list", map[string]any{"Sources": sources})
}
