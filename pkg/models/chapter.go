package models

// Chapter is the API-facing view of an ingested chapter record.
type Chapter struct {
	ID            string `json:"id"`
	StoryID       string `json:"story_id"`
	SourceURL     string `json:"source_url"`
	Title         string `json:"title"`
	TitleOriginal string `json:"title_original,omitempty"`
	Content       string `json:"content,omitempty"`
	Number        *int   `json:"number,omitempty"`
}
