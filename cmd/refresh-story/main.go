// refresh-story forces one invalidate+rebuild pass for a story, for when the
// derived chapter links have drifted from the stored list.
//
// Usage: refresh-story STORY_ID
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"novelhub/internal/entity"
	"novelhub/internal/ingest"
	"novelhub/internal/invalidate"
	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: refresh-story STORY_ID")
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
	fmt.Printf("Refreshing story %s (%s)\n", storyID, story.Title)

	reconciler := ingest.NewReconciler(entities)
	chapterIDs, err := reconciler.ChapterList(ctx, storyID)
	if err != nil {
		log.Fatalf("read chapter list: %v", err)
	}
	fmt.Printf("Chapters in list: %d\n", len(chapterIDs))

	notifier := invalidate.NewNotifier(entities, nil, nil)
	notifier.Invalidate(ctx, storyID)
	notifier.Rebuild(ctx, storyID)

	fmt.Println("Done")
}
