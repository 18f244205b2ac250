package ingest

import (
	"context"
	"fmt"
	"sort"

	"novelhub/internal/invalidate"
)

// Coordinator ties the resolver and reconciler together under one
// invalidation session per request. Single-item requests are degenerate
// one-item batches: same path, one flush.
type Coordinator struct {
	Resolver   *Resolver
	Reconciler *Reconciler
	Sink       invalidate.Sink
}

func NewCoordinator(res *Resolver, rec *Reconciler, sink invalidate.Sink) *Coordinator {
	return &Coordinator{Resolver: res, Reconciler: rec, Sink: sink}
}

// ItemResult is the per-chapter outcome within a bulk request.
type ItemResult struct {
	ChapterNumber int    `json:"chapter_number"`
	ChapterID     string `json:"chapter_id,omitempty"`
	Success       bool   `json:"success"`
	Existed       bool   `json:"existed,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BulkResult summarizes a bulk ingestion.
type BulkResult struct {
	Total   int          `json:"total"`
	Created int          `json:"created"`
	Existed int          `json:"existed"`
	Failed  int          `json:"failed"`
	Results []ItemResult `json:"results"`
}

// IngestStory runs one story upsert with an immediate flush.
func (c *Coordinator) IngestStory(ctx context.Context, p StoryPayload) (Result, error) {
	sess := invalidate.NewSession()
	res, err := c.Resolver.ResolveStory(ctx, p, sess)
	if err != nil {
		return Result{}, err
	}
	sess.Flush(ctx, c.Sink)
	return res, nil
}

// IngestChapter runs one chapter upsert plus attach with an immediate flush.
func (c *Coordinator) IngestChapter(ctx context.Context, p ChapterPayload) (Result, error) {
	sess := invalidate.NewSession()
	res, err := c.ingestChapterWith(ctx, p, sess)
	if err != nil {
		return Result{}, err
	}
	sess.Flush(ctx, c.Sink)
	return res, nil
}

func (c *Coordinator) ingestChapterWith(ctx context.Context, p ChapterPayload, sess *invalidate.Session) (Result, error) {
	res, err := c.Resolver.ResolveChapter(ctx, p, sess)
	if err != nil {
		return Result{}, err
	}
	if _, err := c.Reconciler.Attach(ctx, p.StoryID, res.ID, p.Number, sess); err != nil {
		return Result{}, err
	}
	return res, nil
}

// IngestChapters applies a whole batch: items are stably sorted by sequence
// number first (missing numbers sort as 0) because readers derive next/prev
// navigation from list position, then applied strictly one after another. A
// failing item is recorded and skipped, never aborting the rest. All side
// effects are deferred into one session and flushed once at the end.
func (c *Coordinator) IngestChapters(ctx context.Context, items []ChapterPayload) BulkResult {
	sorted := make([]ChapterPayload, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return seqOf(sorted[i]) < seqOf(sorted[j])
	})

	sess := invalidate.NewSession()
	out := BulkResult{Total: len(sorted), Results: make([]ItemResult, 0, len(sorted))}

	for _, p := range sorted {
		res, err := c.applyItem(ctx, p, sess)
		item := ItemResult{ChapterNumber: seqOf(p)}
		if err != nil {
			item.Error = err.Error()
			out.Failed++
		} else {
			item.ChapterID = res.ID
			item.Success = true
			item.Existed = res.Existed
			if res.Existed {
				out.Existed++
			} else {
				out.Created++
			}
		}
		out.Results = append(out.Results, item)
	}

	sess.Flush(ctx, c.Sink)
	return out
}

// applyItem isolates one item so that even a panic in the machinery below is
// reported per item instead of taking the batch down.
func (c *Coordinator) applyItem(ctx context.Context, p ChapterPayload, sess *invalidate.Session) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chapter ingest panic: %v", r)
		}
	}()
	return c.ingestChapterWith(ctx, p, sess)
}

func seqOf(p ChapterPayload) int {
	if p.Number == nil {
		return 0
	}
	return *p.Number
}
