package ingest

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"novelhub/internal/entity"
	"novelhub/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// countingSink records invalidation traffic per id.
type countingSink struct {
	mu          sync.Mutex
	invalidated map[string]int
	rebuilt     map[string]int
}

func newCountingSink() *countingSink {
	return &countingSink{invalidated: make(map[string]int), rebuilt: make(map[string]int)}
}

func (s *countingSink) Invalidate(_ context.Context, id string) {
	s.mu.Lock()
	s.invalidated[id]++
	s.mu.Unlock()
}

func (s *countingSink) Rebuild(_ context.Context, id string) {
	s.mu.Lock()
	s.rebuilt[id]++
	s.mu.Unlock()
}

type engine struct {
	entities    *entity.Repo
	resolver    *Resolver
	reconciler  *Reconciler
	coordinator *Coordinator
	sink        *countingSink
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	entities := entity.NewRepo(openTestDB(t))
	resolver := NewResolver(entities)
	reconciler := NewReconciler(entities)
	sink := newCountingSink()
	return &engine{
		entities:    entities,
		resolver:    resolver,
		reconciler:  reconciler,
		coordinator: NewCoordinator(resolver, reconciler, sink),
		sink:        sink,
	}
}

func (e *engine) mustCreateStory(t *testing.T, url, title string) string {
	t.Helper()
	res, err := e.coordinator.IngestStory(context.Background(), StoryPayload{URL: url, Title: title})
	require.NoError(t, err)
	require.False(t, res.Existed)
	return res.ID
}

func intp(n int) *int { return &n }

func chapterPayload(storyID string, n int) ChapterPayload {
	s := strconv.Itoa(n)
	return ChapterPayload{
		URL:     "https://x/books/1/chapter_" + s,
		StoryID: storyID,
		Title:   "Chapter " + s,
		Content: "content " + s,
		Number:  intp(n),
	}
}
