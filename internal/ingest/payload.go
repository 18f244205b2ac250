package ingest

// StoryPayload is the inbound shape of a story upsert.
type StoryPayload struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	TitleOriginal string   `json:"title_original,omitempty"`
	Author        string   `json:"author,omitempty"`
	Description   string   `json:"description,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Glossary      string   `json:"glossary,omitempty"`
}

// ChapterPayload is the inbound shape of a chapter upsert. Number is nullable:
// a crawler that cannot determine the ordinal omits it rather than sending 0.
type ChapterPayload struct {
	URL           string `json:"url"`
	StoryID       string `json:"story_id"`
	Title         string `json:"title"`
	TitleOriginal string `json:"title_original,omitempty"`
	Content       string `json:"content"`
	Number        *int   `json:"chapter_number,omitempty"`
}

// Result is the outcome of a single story or chapter resolution.
type Result struct {
	ID      string
	Existed bool
}
