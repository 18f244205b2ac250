package models

// Post types stored in the entity repository.
const (
	TypeStory   = "story"
	TypeChapter = "chapter"
)

// Metadata keys shared between the ingestion engine, the rebuild pass and the
// repair tools. The chapter-to-story association is written to two slots:
// MetaChapterStory is authoritative, MetaChapterStoryBackup is a redundant copy
// read when the primary is missing or zeroed (a downstream consumer of the
// record has been observed wiping the primary).
const (
	MetaSourceURL     = "source_url"
	MetaTitleOriginal = "title_original"
	MetaAuthor        = "author"
	MetaStoryStatus   = "story_status"
	MetaCoverURL      = "cover_url"
	MetaGenres        = "genres"
	MetaTags          = "tags"
	MetaGlossary      = "glossary"

	MetaChapters        = "chapters"
	MetaChaptersCrawled = "chapters_crawled"
	MetaChaptersTotal   = "chapters_total"
	MetaLastChapter     = "last_chapter"

	MetaChapterStory       = "story_id"
	MetaChapterStoryBackup = "story_id_backup"
	MetaChapterNumber      = "chapter_number"
	MetaChapterURL         = "chapter_url"
	MetaChapterPrev        = "chapter_prev"
	MetaChapterNext        = "chapter_next"
)
