package entity

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

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

func TestCreateAndGet(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, "story", Fields{Title: "Foo", Content: "desc"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "story", rec.Type)
	require.Equal(t, "Foo", rec.Title)
	require.Equal(t, "desc", rec.Content)
	require.Equal(t, "publish", rec.Status)
}

func TestGetMissing(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	rec, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestMetaRoundTrip(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, "story", Fields{Title: "Foo"})
	require.NoError(t, err)

	v, err := repo.GetMeta(ctx, id, "source_url")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, repo.SetMeta(ctx, id, "source_url", "https://x/1"))
	require.NoError(t, repo.SetMeta(ctx, id, "source_url", "https://x/2")) // overwrite

	v, err = repo.GetMeta(ctx, id, "source_url")
	require.NoError(t, err)
	require.Equal(t, "https://x/2", v)
}

func TestQueryByMeta(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, "chapter", Fields{Title: "Ch1"})
	require.NoError(t, err)
	require.NoError(t, repo.SetMeta(ctx, a, "source_url", "https://x/1/c1"))

	b, err := repo.Create(ctx, "chapter", Fields{Title: "Ch2"})
	require.NoError(t, err)
	require.NoError(t, repo.SetMeta(ctx, b, "source_url", "https://x/1/c2"))

	got, err := repo.QueryByMeta(ctx, "chapter", "source_url", "https://x/1/c2", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, b, got[0].ID)

	// type filter applies
	got, err = repo.QueryByMeta(ctx, "story", "source_url", "https://x/1/c2", 1)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestQueryByMetaLike(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	for _, u := range []string{"https://x/books/7/c1", "https://x/books/7/c2", "https://x/books/8/c1"} {
		id, err := repo.Create(ctx, "chapter", Fields{Title: u})
		require.NoError(t, err)
		require.NoError(t, repo.SetMeta(ctx, id, "source_url", u))
	}

	got, err := repo.QueryByMetaLike(ctx, "chapter", "source_url", "%books/7/%", 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestQueryByTitleExact(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, "story", Fields{Title: "Foo"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "story", Fields{Title: "Foo Bar"})
	require.NoError(t, err)

	got, err := repo.QueryByTitle(ctx, "story", "Foo", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].ID)
}

func TestUpdateSkipsEmptyFields(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, "story", Fields{Title: "Foo", Content: "desc"})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, id, Fields{Title: "Bar"}))

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Bar", rec.Title)
	require.Equal(t, "desc", rec.Content) // untouched
}

func TestInvalidateDropsCachedRecord(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, "story", Fields{Title: "Foo"})
	require.NoError(t, err)

	_, err = repo.Get(ctx, id) // warm the cache
	require.NoError(t, err)

	// mutate behind the repo's back, as an external consumer would
	_, err = db.ExecContext(ctx, `UPDATE posts SET title = 'Changed' WHERE id = ?`, id)
	require.NoError(t, err)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Foo", rec.Title) // stale, served from cache

	repo.Invalidate(id)

	rec, err = repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Changed", rec.Title)
}
