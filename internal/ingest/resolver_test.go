package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"novelhub/internal/invalidate"
	"novelhub/pkg/models"
)

func TestResolveStoryIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	first, err := e.resolver.ResolveStory(ctx, StoryPayload{URL: "https://x/1", Title: "Foo"}, invalidate.NewSession())
	require.NoError(t, err)
	require.False(t, first.Existed)

	second, err := e.resolver.ResolveStory(ctx, StoryPayload{URL: "https://x/1", Title: "Foo"}, invalidate.NewSession())
	require.NoError(t, err)
	require.True(t, second.Existed)
	require.Equal(t, first.ID, second.ID)
}

func TestResolveStoryValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.resolver.ResolveStory(ctx, StoryPayload{Title: "Foo"}, invalidate.NewSession())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "url", ve.Field)

	_, err = e.resolver.ResolveStory(ctx, StoryPayload{URL: "https://x/1"}, invalidate.NewSession())
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "title", ve.Field)
}

func TestResolveStoryTitleFallbackBackfillsSourceURL(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	first, err := e.resolver.ResolveStory(ctx, StoryPayload{URL: "https://source-a/1", Title: "Foo"}, invalidate.NewSession())
	require.NoError(t, err)

	// same work from a different source: matched by exact title
	second, err := e.resolver.ResolveStory(ctx, StoryPayload{URL: "https://source-b/9", Title: "Foo"}, invalidate.NewSession())
	require.NoError(t, err)
	require.True(t, second.Existed)
	require.Equal(t, first.ID, second.ID)

	// the new source URL was backfilled so the next lookup is direct
	url, err := e.entities.GetMeta(ctx, first.ID, models.MetaSourceURL)
	require.NoError(t, err)
	require.Equal(t, "https://source-b/9", url)
}

func TestResolveStoryDefaults(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	res, err := e.resolver.ResolveStory(ctx, StoryPayload{URL: "https://x/1", Title: "Foo"}, invalidate.NewSession())
	require.NoError(t, err)

	status, err := e.entities.GetMeta(ctx, res.ID, models.MetaStoryStatus)
	require.NoError(t, err)
	require.Equal(t, models.StoryOngoing, status)

	for _, key := range []string{models.MetaChaptersCrawled, models.MetaChaptersTotal, models.MetaLastChapter} {
		v, err := e.entities.GetMeta(ctx, res.ID, key)
		require.NoError(t, err)
		require.Equal(t, "0", v)
	}

	author, err := e.entities.GetMeta(ctx, res.ID, models.MetaAuthor)
	require.NoError(t, err)
	require.Empty(t, author)
}

func TestResolveStoryOverwriteRules(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	first, err := e.resolver.ResolveStory(ctx, StoryPayload{
		URL:         "https://x/1",
		Title:       "Machine Title",
		Description: "machine description",
		Author:      "A",
	}, invalidate.NewSession())
	require.NoError(t, err)

	// re-ingestion carrying corrected text and a new cover
	_, err = e.resolver.ResolveStory(ctx, StoryPayload{
		URL:         "https://x/1",
		Title:       "Corrected Title",
		Description: "corrected description",
		CoverURL:    "https://x/cover.jpg",
	}, invalidate.NewSession())
	require.NoError(t, err)

	rec, err := e.entities.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Corrected Title", rec.Title)
	require.Equal(t, "corrected description", rec.Content)

	cover, err := e.entities.GetMeta(ctx, first.ID, models.MetaCoverURL)
	require.NoError(t, err)
	require.Equal(t, "https://x/cover.jpg", cover)

	// author omitted in the second payload: prior value stays
	author, err := e.entities.GetMeta(ctx, first.ID, models.MetaAuthor)
	require.NoError(t, err)
	require.Equal(t, "A", author)
}

func TestResolveChapterRequiresValidStory(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.resolver.ResolveChapter(ctx, ChapterPayload{
		URL:     "https://x/1/c1",
		StoryID: "missing",
		Title:   "Ch1",
		Content: "...",
	}, invalidate.NewSession())
	var pe *InvalidParentError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "missing", pe.StoryID)

	// a chapter id is not a valid parent either
	storyID := e.mustCreateStory(t, "https://x/1", "Foo")
	chRes, err := e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), invalidate.NewSession())
	require.NoError(t, err)

	_, err = e.resolver.ResolveChapter(ctx, ChapterPayload{
		URL:     "https://x/1/c2",
		StoryID: chRes.ID,
		Title:   "Ch2",
		Content: "...",
	}, invalidate.NewSession())
	require.ErrorAs(t, err, &pe)
}

func TestResolveChapterIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	storyID := e.mustCreateStory(t, "https://x/1", "Foo")

	first, err := e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), invalidate.NewSession())
	require.NoError(t, err)
	require.False(t, first.Existed)

	second, err := e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), invalidate.NewSession())
	require.NoError(t, err)
	require.True(t, second.Existed)
	require.Equal(t, first.ID, second.ID)
}

func TestResolveChapterWritesBothAssociationSlots(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	storyID := e.mustCreateStory(t, "https://x/1", "Foo")

	res, err := e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), invalidate.NewSession())
	require.NoError(t, err)

	primary, err := e.entities.GetMeta(ctx, res.ID, models.MetaChapterStory)
	require.NoError(t, err)
	require.Equal(t, storyID, primary)

	backup, err := e.entities.GetMeta(ctx, res.ID, models.MetaChapterStoryBackup)
	require.NoError(t, err)
	require.Equal(t, storyID, backup)
}

func TestResolveChapterRepairsAssociation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	storyID := e.mustCreateStory(t, "https://x/1", "Foo")

	res, err := e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), invalidate.NewSession())
	require.NoError(t, err)

	// simulate a consumer wiping the association
	require.NoError(t, e.entities.SetMeta(ctx, res.ID, models.MetaChapterStory, "0"))

	// primary is zeroed: StoryRef falls back to the backup slot
	ref, err := StoryRef(ctx, e.entities, res.ID)
	require.NoError(t, err)
	require.Equal(t, storyID, ref)

	// re-ingestion restores the primary
	_, err = e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), invalidate.NewSession())
	require.NoError(t, err)

	primary, err := e.entities.GetMeta(ctx, res.ID, models.MetaChapterStory)
	require.NoError(t, err)
	require.Equal(t, storyID, primary)
}

func TestResolveChapterDeferredAssociationRewrite(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	storyID := e.mustCreateStory(t, "https://x/1", "Foo")

	sess := invalidate.NewSession()
	res, err := e.resolver.ResolveChapter(ctx, chapterPayload(storyID, 1), sess)
	require.NoError(t, err)

	// an async consumer overwrites the association mid-batch
	require.NoError(t, e.entities.SetMeta(ctx, res.ID, models.MetaChapterStory, "0"))

	// the scheduled re-write restores it at flush time
	sess.Flush(ctx, e.sink)

	primary, err := e.entities.GetMeta(ctx, res.ID, models.MetaChapterStory)
	require.NoError(t, err)
	require.Equal(t, storyID, primary)
}
