// repair-story rebuilds a story's chapter list from the chapter records
// themselves, for stories whose list was lost or truncated by a partial
// ingestion. Chapters are matched by the novel id embedded in their source
// URL, associations are re-pointed at the story, counters are recomputed and
// a rebuild pass is triggered.
//
// Usage: repair-story STORY_ID
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"

	"novelhub/internal/entity"
	"novelhub/internal/invalidate"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

var novelIDRe = regexp.MustCompile(`books/(\d+)`)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: repair-story STORY_ID")
		os.Exit(1)
	}
	storyID := os.Args[1]

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	ctx := context.Background()
	entities := entity.NewRepo(db)

	story, err := entities.Get(ctx, storyID)
	if err != nil {
		log.Fatalf("load story: %v", err)
	}
	if story == nil || story.Type != models.TypeStory {
		log.Fatalf("story %s not found", storyID)
	}
	fmt.Printf("Repairing story %s (%s)\n", storyID, story.Title)

	sourceURL, err := entities.GetMeta(ctx, storyID, models.MetaSourceURL)
	if err != nil {
		log.Fatalf("read source url: %v", err)
	}
	m := novelIDRe.FindStringSubmatch(sourceURL)
	if m == nil {
		log.Fatalf("could not extract novel id from story URL: %s", sourceURL)
	}
	novelID := m[1]
	fmt.Printf("Novel ID: %s\n", novelID)

	// Every chapter crawled from this novel shares the books/<id>/ path
	// segment in its source URL, even when the association meta was lost.
	chapters, err := entities.QueryByMetaLike(ctx, models.TypeChapter, models.MetaSourceURL, "%books/"+novelID+"/%", 10000)
	if err != nil {
		log.Fatalf("find chapters: %v", err)
	}
	if len(chapters) == 0 {
		log.Fatalf("no chapters found for this story")
	}
	fmt.Printf("Found %d chapters\n", len(chapters))

	chapterIDs := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		chapterIDs = append(chapterIDs, ch.ID)

		if err := entities.SetMeta(ctx, ch.ID, models.MetaChapterStory, storyID); err != nil {
			log.Fatalf("fix association for %s: %v", ch.ID, err)
		}
		if err := entities.SetMeta(ctx, ch.ID, models.MetaChapterStoryBackup, storyID); err != nil {
			log.Fatalf("fix backup association for %s: %v", ch.ID, err)
		}
		fmt.Printf("  chapter %s: %s\n", ch.ID, ch.Title)
	}

	b, err := json.Marshal(chapterIDs)
	if err != nil {
		log.Fatalf("encode chapter list: %v", err)
	}
	if err := entities.SetMeta(ctx, storyID, models.MetaChapters, string(b)); err != nil {
		log.Fatalf("write chapter list: %v", err)
	}
	if err := entities.SetMeta(ctx, storyID, models.MetaChaptersCrawled, strconv.Itoa(len(chapterIDs))); err != nil {
		log.Fatalf("write crawled counter: %v", err)
	}
	if err := entities.SetMeta(ctx, storyID, models.MetaChaptersTotal, strconv.Itoa(len(chapterIDs))); err != nil {
		log.Fatalf("write total counter: %v", err)
	}

	notifier := invalidate.NewNotifier(entities, nil, nil)
	notifier.Invalidate(ctx, storyID)
	notifier.Rebuild(ctx, storyID)

	fmt.Printf("Updated story with %d chapters\n", len(chapterIDs))
}
