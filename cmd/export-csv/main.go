// export-csv dumps the store to two CSV files: stories with their progress
// counters and chapters with their owning story. The pair round-trips through
// import-csv for backups and migrations between installs.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

func main() {
	var (
		storiesOut  = flag.String("stories", "data/stories.csv", "output CSV path for stories")
		chaptersOut = flag.String("chapters", "data/chapters.csv", "output CSV path for chapters")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportStories(ctx, db, *storiesOut); err != nil {
		log.Fatalf("export stories failed: %v", err)
	}
	if err := exportChapters(ctx, db, *chaptersOut); err != nil {
		log.Fatalf("export chapters failed: %v", err)
	}

	log.Printf("exported stories to %s and chapters to %s", *storiesOut, *chaptersOut)
}

func exportStories(ctx context.Context, db *sql.DB, outPath string) error {
	w, f, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"id", "title", "description", "author", "status", "source_url", "cover_url", "chapters_crawled", "last_chapter"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.title, p.content,
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), '')
		FROM posts p
		WHERE p.type = ?
		ORDER BY p.title
	`,
		models.MetaAuthor, models.MetaStoryStatus, models.MetaSourceURL,
		models.MetaCoverURL, models.MetaChaptersCrawled, models.MetaLastChapter,
		models.TypeStory,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, title, description, author, status, sourceURL, coverURL, crawled, last string
		if err := rows.Scan(&id, &title, &description, &author, &status, &sourceURL, &coverURL, &crawled, &last); err != nil {
			return err
		}
		if err := w.Write([]string{id, title, description, author, status, sourceURL, coverURL, crawled, last}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportChapters(ctx context.Context, db *sql.DB, outPath string) error {
	w, f, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"id", "story_id", "chapter_number", "title", "source_url", "content"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.id,
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       p.title,
		       COALESCE((SELECT value FROM post_meta WHERE post_id = p.id AND key = ?), ''),
		       p.content
		FROM posts p
		WHERE p.type = ?
		ORDER BY p.created_at
	`,
		models.MetaChapterStory, models.MetaChapterNumber, models.MetaSourceURL,
		models.TypeChapter,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, storyID, number, title, sourceURL, content string
		if err := rows.Scan(&id, &storyID, &number, &title, &sourceURL, &content); err != nil {
			return err
		}
		if err := w.Write([]string{id, storyID, number, title, sourceURL, content}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func openWriter(outPath string) (*csv.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(f), f, nil
}
