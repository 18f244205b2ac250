package invalidate

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"novelhub/internal/entity"
	"novelhub/internal/events"
	"novelhub/pkg/models"
)

// Notifier is the production Sink: it purges the entity read cache and, for
// stories, walks the full chapter list to rewrite the derived state readers
// depend on. That walk is the expensive part the session exists to coalesce.
type Notifier struct {
	Entities *entity.Repo
	Hub      *events.Hub
	Logger   *log.Logger
}

func NewNotifier(entities *entity.Repo, hub *events.Hub, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{Entities: entities, Hub: hub, Logger: logger}
}

func (n *Notifier) Invalidate(ctx context.Context, id string) {
	n.Entities.Invalidate(id)
}

// Rebuild recomputes a story's derived state from its chapter list: prev/next
// links per chapter (readers navigate by list position, not sequence number)
// and the crawled counter. Best effort; errors are logged and swallowed.
func (n *Notifier) Rebuild(ctx context.Context, storyID string) {
	raw, err := n.Entities.GetMeta(ctx, storyID, models.MetaChapters)
	if err != nil {
		n.Logger.Printf("[rebuild] story %s: read chapter list: %v", storyID, err)
		return
	}

	var chapterIDs []string
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &chapterIDs); err != nil {
			n.Logger.Printf("[rebuild] story %s: bad chapter list: %v", storyID, err)
			return
		}
	}

	for i, id := range chapterIDs {
		prev, next := "", ""
		if i > 0 {
			prev = chapterIDs[i-1]
		}
		if i < len(chapterIDs)-1 {
			next = chapterIDs[i+1]
		}
		if err := n.Entities.SetMeta(ctx, id, models.MetaChapterPrev, prev); err != nil {
			n.Logger.Printf("[rebuild] chapter %s: set prev: %v", id, err)
		}
		if err := n.Entities.SetMeta(ctx, id, models.MetaChapterNext, next); err != nil {
			n.Logger.Printf("[rebuild] chapter %s: set next: %v", id, err)
		}
		n.Entities.Invalidate(id)
	}

	if err := n.Entities.SetMeta(ctx, storyID, models.MetaChaptersCrawled, strconv.Itoa(len(chapterIDs))); err != nil {
		n.Logger.Printf("[rebuild] story %s: set crawled: %v", storyID, err)
	}
	n.Entities.Invalidate(storyID)

	if n.Hub != nil {
		n.Hub.Broadcast(events.Event{
			Type:     events.StoryRebuilt,
			StoryID:  storyID,
			Chapters: len(chapterIDs),
		})
	}
}
