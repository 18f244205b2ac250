package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"novelhub/internal/entity"
	"novelhub/internal/invalidate"
	"novelhub/pkg/models"
)

// Resolver decides create-vs-update for incoming stories and chapters.
//
// Stories match primarily on source URL and secondarily on exact title (the
// same work re-crawled from a different source); a title match backfills the
// source URL so the next lookup takes the fast path. Chapters match on source
// URL only, since chapter titles repeat across stories.
type Resolver struct {
	Entities *entity.Repo
}

func NewResolver(entities *entity.Repo) *Resolver {
	return &Resolver{Entities: entities}
}

func (r *Resolver) ResolveStory(ctx context.Context, p StoryPayload, sess *invalidate.Session) (Result, error) {
	if strings.TrimSpace(p.URL) == "" {
		return Result{}, validationErr("url", "required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return Result{}, validationErr("title", "required")
	}

	matches, err := r.Entities.QueryByMeta(ctx, models.TypeStory, models.MetaSourceURL, p.URL, 1)
	if err != nil {
		return Result{}, persistErr("find story by source url", err)
	}

	var existing *entity.Record
	if len(matches) > 0 {
		existing = &matches[0]
	} else {
		// Fallback: exact title match, so switching sources for the same work
		// does not create a duplicate. Titles are not unique, so this can in
		// principle attach to the wrong record; the source URL match above is
		// always preferred.
		candidates, err := r.Entities.QueryByTitle(ctx, models.TypeStory, p.Title, 5)
		if err != nil {
			return Result{}, persistErr("find story by title", err)
		}
		for i := range candidates {
			if candidates[i].Title == p.Title {
				existing = &candidates[i]
				if err := r.Entities.SetMeta(ctx, existing.ID, models.MetaSourceURL, p.URL); err != nil {
					return Result{}, persistErr("backfill source url", err)
				}
				break
			}
		}
	}

	if existing != nil {
		if err := r.refreshStory(ctx, existing, p, sess); err != nil {
			return Result{}, err
		}
		return Result{ID: existing.ID, Existed: true}, nil
	}

	id, err := r.createStory(ctx, p, sess)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id}, nil
}

// refreshStory applies payload fields onto a matched story. Title and
// description only overwrite when the payload carries a different non-empty
// value (re-ingestion with corrected text); the remaining optional fields
// overwrite whenever provided.
func (r *Resolver) refreshStory(ctx context.Context, rec *entity.Record, p StoryPayload, sess *invalidate.Session) error {
	changed := false

	var f entity.Fields
	if p.Title != "" && p.Title != rec.Title {
		f.Title = p.Title
	}
	if p.Description != "" && p.Description != rec.Content {
		f.Content = p.Description
	}
	if f.Title != "" || f.Content != "" {
		if err := r.Entities.Update(ctx, rec.ID, f); err != nil {
			return persistErr("update story", err)
		}
		changed = true
	}

	for key, value := range optionalStoryMeta(p) {
		if value == "" {
			continue
		}
		if err := r.Entities.SetMeta(ctx, rec.ID, key, value); err != nil {
			return persistErr("update story meta", err)
		}
		changed = true
	}

	if changed {
		sess.MarkStory(rec.ID)
	}
	return nil
}

func (r *Resolver) createStory(ctx context.Context, p StoryPayload, sess *invalidate.Session) (string, error) {
	id, err := r.Entities.Create(ctx, models.TypeStory, entity.Fields{
		Title:   p.Title,
		Content: p.Description,
	})
	if err != nil {
		return "", persistErr("create story", err)
	}

	meta := map[string]string{
		models.MetaSourceURL:       p.URL,
		models.MetaStoryStatus:     models.StoryOngoing,
		models.MetaChaptersCrawled: "0",
		models.MetaChaptersTotal:   "0",
		models.MetaLastChapter:     "0",
	}
	for key, value := range optionalStoryMeta(p) {
		if value != "" {
			meta[key] = value
		}
	}
	for key, value := range meta {
		if err := r.Entities.SetMeta(ctx, id, key, value); err != nil {
			return "", persistErr("set story meta", err)
		}
	}

	sess.MarkStory(id)
	return id, nil
}

func optionalStoryMeta(p StoryPayload) map[string]string {
	return map[string]string{
		models.MetaTitleOriginal: p.TitleOriginal,
		models.MetaAuthor:        p.Author,
		models.MetaCoverURL:      p.CoverURL,
		models.MetaGenres:        jsonList(p.Genres),
		models.MetaTags:          jsonList(p.Tags),
		models.MetaGlossary:      p.Glossary,
	}
}

func (r *Resolver) ResolveChapter(ctx context.Context, p ChapterPayload, sess *invalidate.Session) (Result, error) {
	if strings.TrimSpace(p.URL) == "" {
		return Result{}, validationErr("url", "required")
	}
	if strings.TrimSpace(p.StoryID) == "" {
		return Result{}, validationErr("story_id", "required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return Result{}, validationErr("title", "required")
	}
	if p.Content == "" {
		return Result{}, validationErr("content", "required")
	}

	story, err := r.Entities.Get(ctx, p.StoryID)
	if err != nil {
		return Result{}, persistErr("load story", err)
	}
	if story == nil || story.Type != models.TypeStory {
		return Result{}, &InvalidParentError{StoryID: p.StoryID}
	}

	matches, err := r.Entities.QueryByMeta(ctx, models.TypeChapter, models.MetaSourceURL, p.URL, 1)
	if err != nil {
		return Result{}, persistErr("find chapter by source url", err)
	}

	if len(matches) > 0 {
		id := matches[0].ID
		// Re-point the association for existing chapters too: this repairs
		// chapters mis-linked by earlier partial ingestions.
		if err := r.writeStoryAssociation(ctx, id, p.StoryID); err != nil {
			return Result{}, err
		}
		sess.MarkChapter(id)
		return Result{ID: id, Existed: true}, nil
	}

	id, err := r.Entities.Create(ctx, models.TypeChapter, entity.Fields{
		Title:   p.Title,
		Content: p.Content,
	})
	if err != nil {
		return Result{}, persistErr("create chapter", err)
	}

	if err := r.writeStoryAssociation(ctx, id, p.StoryID); err != nil {
		return Result{}, err
	}

	meta := map[string]string{
		models.MetaSourceURL:  p.URL,
		models.MetaChapterURL: p.URL,
	}
	if p.TitleOriginal != "" {
		meta[models.MetaTitleOriginal] = p.TitleOriginal
	}
	if p.Number != nil {
		meta[models.MetaChapterNumber] = strconv.Itoa(*p.Number)
	}
	for key, value := range meta {
		if err := r.Entities.SetMeta(ctx, id, key, value); err != nil {
			return Result{}, persistErr("set chapter meta", err)
		}
	}

	// Unrelated consumers of the record have been observed overwriting the
	// association after creation, so schedule one more write for after the
	// batch completes.
	storyID := p.StoryID
	sess.Defer(func(ctx context.Context) {
		_ = r.writeStoryAssociation(ctx, id, storyID)
	})

	sess.MarkChapter(id)
	return Result{ID: id}, nil
}

// writeStoryAssociation writes the owning-story id to both physical slots.
// They back one logical field and are always written together; reads go
// primary first, then the backup (see StoryRef).
func (r *Resolver) writeStoryAssociation(ctx context.Context, chapterID, storyID string) error {
	if err := r.Entities.SetMeta(ctx, chapterID, models.MetaChapterStory, storyID); err != nil {
		return persistErr("set chapter story", err)
	}
	if err := r.Entities.SetMeta(ctx, chapterID, models.MetaChapterStoryBackup, storyID); err != nil {
		return persistErr("set chapter story backup", err)
	}
	return nil
}

// StoryRef resolves a chapter's owning story with primary-then-fallback
// precedence over the two association slots.
func StoryRef(ctx context.Context, entities *entity.Repo, chapterID string) (string, error) {
	primary, err := entities.GetMeta(ctx, chapterID, models.MetaChapterStory)
	if err != nil {
		return "", err
	}
	if primary != "" && primary != "0" {
		return primary, nil
	}
	return entities.GetMeta(ctx, chapterID, models.MetaChapterStoryBackup)
}

func jsonList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}
