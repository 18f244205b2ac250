package events

import "time"

// Event types broadcast while a crawl is running.
const (
	StoryCreated   = "story.created"
	ChapterCreated = "chapter.created"
	StoryRebuilt   = "story.rebuilt"
	JobUpdated     = "job.updated"
)

type Event struct {
	Type      string    `json:"type"`
	StoryID   string    `json:"story_id,omitempty"`
	ChapterID string    `json:"chapter_id,omitempty"`
	Chapter   int       `json:"chapter,omitempty"`
	Chapters  int       `json:"chapters,omitempty"` // list length after a rebuild
	Status    string    `json:"status,omitempty"`   // job status transitions
	At        time.Time `json:"at"`
}
