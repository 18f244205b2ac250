// import-csv restores an export-csv dump through the regular ingestion path,
// so it is idempotent by source URL and keeps chapter lists and counters
// consistent. Ids are not preserved: rows are matched the same way the
// crawler's uploads are.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"novelhub/internal/entity"
	"novelhub/internal/ingest"
	"novelhub/internal/invalidate"
	"novelhub/pkg/database"
)

func main() {
	var (
		storiesIn  = flag.String("stories", "data/stories.csv", "input CSV path for stories")
		chaptersIn = flag.String("chapters", "data/chapters.csv", "input CSV path for chapters")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	entities := entity.NewRepo(db)
	resolver := ingest.NewResolver(entities)
	reconciler := ingest.NewReconciler(entities)
	coordinator := ingest.NewCoordinator(resolver, reconciler, invalidate.NewNotifier(entities, nil, nil))

	storyIDs, err := importStories(ctx, coordinator, *storiesIn)
	if err != nil {
		log.Fatalf("import stories failed: %v", err)
	}
	if err := importChapters(ctx, coordinator, *chaptersIn, storyIDs); err != nil {
		log.Fatalf("import chapters failed: %v", err)
	}

	log.Printf("imported %d stories from %s", len(storyIDs), *storiesIn)
}

// importStories upserts each story row and returns exported-id to new-id.
func importStories(ctx context.Context, coord *ingest.Coordinator, path string) (map[string]string, error) {
	header, r, f, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ids := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		oldID := valueAt(header, row, "id")
		p := ingest.StoryPayload{
			URL:         valueAt(header, row, "source_url"),
			Title:       valueAt(header, row, "title"),
			Description: valueAt(header, row, "description"),
			Author:      valueAt(header, row, "author"),
			CoverURL:    valueAt(header, row, "cover_url"),
		}
		if oldID == "" || p.URL == "" || p.Title == "" {
			continue
		}

		res, err := coord.IngestStory(ctx, p)
		if err != nil {
			log.Printf("[import] story %q skipped: %v", p.Title, err)
			continue
		}
		ids[oldID] = res.ID
	}
	return ids, nil
}

func importChapters(ctx context.Context, coord *ingest.Coordinator, path string, storyIDs map[string]string) error {
	header, r, f, err := openReader(path)
	if err != nil {
		return err
	}
	defer f.Close()

	batches := make(map[string][]ingest.ChapterPayload)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		storyID, ok := storyIDs[valueAt(header, row, "story_id")]
		if !ok {
			log.Printf("[import] chapter %q has no imported story, skipped", valueAt(header, row, "title"))
			continue
		}

		p := ingest.ChapterPayload{
			URL:     valueAt(header, row, "source_url"),
			StoryID: storyID,
			Title:   valueAt(header, row, "title"),
			Content: valueAt(header, row, "content"),
		}
		if n, err := strconv.Atoi(valueAt(header, row, "chapter_number")); err == nil && n > 0 {
			p.Number = &n
		}
		batches[storyID] = append(batches[storyID], p)
	}

	for storyID, items := range batches {
		out := coord.IngestChapters(ctx, items)
		log.Printf("[import] story %s: %d created, %d existed, %d failed", storyID, out.Created, out.Existed, out.Failed)
	}
	return nil
}

func openReader(path string) (map[string]int, *csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	row, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, r, f, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
