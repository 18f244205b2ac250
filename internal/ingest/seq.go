package ingest

import (
	"context"
	"regexp"
	"strconv"

	"novelhub/internal/entity"
	"novelhub/pkg/models"
)

var (
	titleSeqRe = regexp.MustCompile(`(?i)chapter\s+(\d+)`)
	urlSeqRe   = regexp.MustCompile(`(?i)chapter[_-]?(\d+)`)
)

// ChapterNumber recovers a chapter's sequence number: the stored metadata
// wins; older records crawled before the number was stored fall back to the
// title ("Chapter 12") and finally to the source URL ("chapter_12"). Returns
// 0 when nothing yields a number.
func ChapterNumber(ctx context.Context, entities *entity.Repo, chapterID string) int {
	if v, err := entities.GetMeta(ctx, chapterID, models.MetaChapterNumber); err == nil && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}

	if rec, err := entities.Get(ctx, chapterID); err == nil && rec != nil {
		if m := titleSeqRe.FindStringSubmatch(rec.Title); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}

	if u, err := entities.GetMeta(ctx, chapterID, models.MetaChapterURL); err == nil && u != "" {
		if m := urlSeqRe.FindStringSubmatch(u); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}

	return 0
}
