package models

import "time"

// Job types and statuses for the single-slot crawl job.
const (
	JobTypeWeb  = "web"
	JobTypeEpub = "epub"

	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// IngestionJob describes the currently active crawl request. At most one job
// exists at a time; the store hands out a nil pointer for an empty slot.
type IngestionJob struct {
	JobType     string    `json:"job_type"` // "web" or "epub"
	URL         string    `json:"url,omitempty"`
	EpubURL     string    `json:"epub_url,omitempty"`
	SourceLang  string    `json:"source_lang,omitempty"`
	TargetLang  string    `json:"target_lang,omitempty"`
	Model       string    `json:"model,omitempty"`
	MaxChapters int       `json:"max_chapters,omitempty"`
	BatchSize   int       `json:"batch_size,omitempty"`
	Glossary    bool      `json:"glossary,omitempty"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	LastUpdated time.Time `json:"last_updated"`
}

// ValidJobStatus reports whether s is one of the known job statuses.
func ValidJobStatus(s string) bool {
	switch s {
	case JobPending, JobRunning, JobCompleted, JobFailed:
		return true
	}
	return false
}
