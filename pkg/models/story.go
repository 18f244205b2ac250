package models

// Story is the API-facing view of an ingested story record.
//
// The canonical state lives in the entity store as a post row plus metadata;
// this struct is only assembled for responses (status, debug).
type Story struct {
	ID            string   `json:"id"`
	SourceURL     string   `json:"source_url"`
	Title         string   `json:"title"`
	TitleOriginal string   `json:"title_original,omitempty"`
	Author        string   `json:"author,omitempty"`
	Description   string   `json:"description,omitempty"`
	Status        string   `json:"status,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Tags          []string `json:"tags,omitempty"`

	ChapterIDs      []string `json:"chapter_ids,omitempty"`
	ChaptersCrawled int      `json:"chapters_crawled"`
	ChaptersTotal   int      `json:"chapters_total"`
	LastChapter     int      `json:"last_chapter"`
}

// Story status values mirrored from the host theme.
const (
	StoryOngoing   = "Ongoing"
	StoryCompleted = "Completed"
)
