package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"novelhub/internal/entity"
	"novelhub/internal/invalidate"
	"novelhub/pkg/models"
)

// AttachResult reports what Attach did.
type AttachResult int

const (
	Added AttachResult = iota
	AlreadyPresent
)

// Reconciler is the single writer of the story-to-chapters relationship. The
// chapter-id list and the progress counters are read-modify-write state, so
// concurrent attaches to the same story serialize on a per-story mutex;
// attaches to different stories do not contend.
type Reconciler struct {
	Entities *entity.Repo

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReconciler(entities *entity.Repo) *Reconciler {
	return &Reconciler{Entities: entities, locks: make(map[string]*sync.Mutex)}
}

func (rc *Reconciler) lockFor(storyID string) *sync.Mutex {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	l, ok := rc.locks[storyID]
	if !ok {
		l = &sync.Mutex{}
		rc.locks[storyID] = l
	}
	return l
}

// Attach appends chapterID to the story's ordered chapter list exactly once
// and keeps the counters consistent: chapters_crawled always equals the list
// length, and last_chapter tracks the highest processed sequence number when
// one is known. A nil number leaves last_chapter untouched.
func (rc *Reconciler) Attach(ctx context.Context, storyID, chapterID string, number *int, sess *invalidate.Session) (AttachResult, error) {
	l := rc.lockFor(storyID)
	l.Lock()
	defer l.Unlock()

	chapterIDs, err := rc.chapterList(ctx, storyID)
	if err != nil {
		return 0, persistErr("read chapter list", err)
	}

	for _, id := range chapterIDs {
		if id == chapterID {
			return AlreadyPresent, nil
		}
	}

	chapterIDs = append(chapterIDs, chapterID)
	b, err := json.Marshal(chapterIDs)
	if err != nil {
		return 0, persistErr("encode chapter list", err)
	}
	if err := rc.Entities.SetMeta(ctx, storyID, models.MetaChapters, string(b)); err != nil {
		return 0, persistErr("write chapter list", err)
	}

	if err := rc.Entities.SetMeta(ctx, storyID, models.MetaChaptersCrawled, strconv.Itoa(len(chapterIDs))); err != nil {
		return 0, persistErr("update crawled counter", err)
	}
	if number != nil {
		if err := rc.Entities.SetMeta(ctx, storyID, models.MetaLastChapter, strconv.Itoa(*number)); err != nil {
			return 0, persistErr("update last chapter", err)
		}
	}

	sess.MarkStory(storyID)
	return Added, nil
}

// ChapterList returns the story's ordered chapter ids.
func (rc *Reconciler) ChapterList(ctx context.Context, storyID string) ([]string, error) {
	return rc.chapterList(ctx, storyID)
}

func (rc *Reconciler) chapterList(ctx context.Context, storyID string) ([]string, error) {
	raw, err := rc.Entities.GetMeta(ctx, storyID, models.MetaChapters)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
