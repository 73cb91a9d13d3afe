package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/memoria/internal/domain"
	"github.com/conorfennell/memoria/internal/importer"
	"github.com/conorfennell/memoria/internal/notes"
	"github.com/conorfennell/memoria/internal/storage"
	cardsync "github.com/conorfennell/memoria/internal/sync"
)

func testServer(t *testing.T) (*Server, *storage.DB, *notes.Service) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "memoria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	syncer := cardsync.New(db)
	svc := notes.NewService(db, syncer)
	imp := importer.New(db, syncer, t.TempDir())
	return NewServer(db, svc, imp, time.Millisecond), db, svc
}

func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestUTF16ToByteOffset(t *testing.T) {
	// "héllo": 5 UTF-16 units, 6 bytes. "a𝔘b": 𝔘 is a surrogate pair
	// (2 units, 4 bytes).
	cases := []struct {
		name   string
		s      string
		off    int
		want   int
		wantOK bool
	}{
		{"empty start", "", 0, 0, true},
		{"empty past end", "", 1, 0, false},
		{"ascii", "hello", 3, 3, true},
		{"before multibyte", "héllo", 1, 1, true},
		{"after multibyte", "héllo", 2, 3, true},
		{"end", "héllo", 5, 6, true},
		{"past end", "héllo", 6, 0, false},
		{"negative", "héllo", -1, 0, false},
		{"after surrogate pair", "a𝔘b", 3, 5, true},
		{"end after surrogate pair", "a𝔘b", 4, 6, true},
		{"inside surrogate pair", "a𝔘b", 2, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := utf16ToByteOffset(tc.s, tc.off)
			if ok != tc.wantOK {
				t.Fatalf("utf16ToByteOffset(%q, %d) ok = %v, want %v", tc.s, tc.off, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("utf16ToByteOffset(%q, %d) = %d, want %d", tc.s, tc.off, got, tc.want)
			}
		})
	}
}

func TestInsertMarkerMultibyteSelection(t *testing.T) {
	s, _, svc := testServer(t)
	note, err := svc.Create()
	require.NoError(t, err)

	// A caret placed after the é sits at UTF-16 offset 2, which is byte
	// offset 3. The marker must land there, not between the é's bytes.
	rec := postForm(t, s, "/notes/"+note.ID+"/cards", url.Values{
		"content":   {"héllo"},
		"sel_start": {"2"},
		"sel_end":   {"2"},
		"front":     {"Q"},
		"back":      {"A"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, utf8.ValidString(body), "inserted marker must not split a rune")
	assert.True(t, strings.HasPrefix(body, "hé[[card:"), "marker should follow the é: %q", body)
	assert.True(t, strings.HasSuffix(body, "]]llo"), "text after the caret should be intact: %q", body)
	assert.NotEmpty(t, rec.Header().Get("X-Card-Id"))
}

func TestInsertMarkerRejectsMidRuneSelection(t *testing.T) {
	s, _, svc := testServer(t)
	note, err := svc.Create()
	require.NoError(t, err)

	// Offset 2 in "a𝔘b" falls between the halves of the surrogate pair.
	rec := postForm(t, s, "/notes/"+note.ID+"/cards", url.Values{
		"content":   {"a𝔘b"},
		"sel_start": {"2"},
		"sel_end":   {"2"},
		"front":     {"Q"},
		"back":      {"A"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderUnknownTemplate(t *testing.T) {
	s, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.render(rec, "no_such_template", nil)
	assert.Empty(t, rec.Body.String())
}

func TestReviewHandlersConcurrent(t *testing.T) {
	s, db, _ := testServer(t)

	now := time.Now()
	note := domain.Note{ID: "aaaaaaaa-0000-0000-0000-000000000001", Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.AddNote(note))
	var cards []domain.Card
	for i := 0; i < 6; i++ {
		cards = append(cards, domain.Card{
			ID:          fmt.Sprintf("cccccccc-0000-0000-0000-00000000000%d", i),
			NoteID:      note.ID,
			Front:       "f",
			Back:        "b",
			MarkerText:  "m",
			EaseFactor:  domain.DefaultEaseFactor,
			NextDueDate: now.Add(-time.Hour),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	require.NoError(t, db.BulkAddCards(cards))

	rec := postForm(t, s, "/review/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Hammer the session from several goroutines the way impatient
	// double-clicks would. Grades may be rejected (answer hidden, queue
	// drained); what matters is that the session never tears.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				postForm(t, s, "/review/reveal", nil)
				postForm(t, s, "/review/skip", nil)
				postForm(t, s, "/review/grade", url.Values{"grade": {"2"}})
			}
		}()
	}
	wg.Wait()

	remaining := s.session.Remaining()
	assert.GreaterOrEqual(t, remaining, 0)
	assert.LessOrEqual(t, remaining, len(cards))

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaverPoolConcurrentSubmitFlush(t *testing.T) {
	_, _, svc := testServer(t)
	note, err := svc.Create()
	require.NoError(t, err)

	// A long quiet period keeps the timer from firing on its own, so every
	// save runs through a synchronous flush and none are in flight after
	// the goroutines join.
	pool := newSaverPool(svc, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				pool.submit(note.ID, fmt.Sprintf("# note\n\nrevision %d-%d", i, j))
				pool.flush(note.ID)
			}
		}(i)
	}
	wg.Wait()
	pool.flush(note.ID)

	got, err := svc.Get(note.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Content, "revision", "some submitted revision must have landed")
}
