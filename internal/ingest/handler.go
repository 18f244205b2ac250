package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"novelhub/internal/entity"
	"novelhub/internal/events"
	"novelhub/pkg/models"
)

type Handler struct {
	Coordinator *Coordinator
	Entities    *entity.Repo
	Reconciler  *Reconciler
	Hub         *events.Hub
}

func NewHandler(coord *Coordinator, entities *entity.Repo, rec *Reconciler, hub *events.Hub) *Handler {
	return &Handler{Coordinator: coord, Entities: entities, Reconciler: rec, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/story", h.createStory)
	rg.POST("/chapter", h.createChapter)
	rg.POST("/chapters/bulk", h.createChaptersBulk)
	rg.GET("/chapter/exists", h.chapterExists)
	rg.GET("/story/:id", h.getStory)
	rg.GET("/story/:id/chapters", h.storyChapterStatus)
	rg.GET("/story/:id/chapter/:num", h.getChapter)
	rg.GET("/story/:id/debug", h.debugStory)
}

// getStory assembles the full story view from the record and its metadata.
func (h *Handler) getStory(c *gin.Context) {
	storyID := c.Param("id")
	ctx := c.Request.Context()

	rec, err := h.Entities.Get(ctx, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if rec == nil || rec.Type != models.TypeStory {
		c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
		return
	}

	chapterIDs, err := h.Reconciler.ChapterList(ctx, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	meta := func(key string) string {
		v, _ := h.Entities.GetMeta(ctx, storyID, key)
		return v
	}

	s := models.Story{
		ID:              rec.ID,
		SourceURL:       meta(models.MetaSourceURL),
		Title:           rec.Title,
		TitleOriginal:   meta(models.MetaTitleOriginal),
		Author:          meta(models.MetaAuthor),
		Description:     rec.Content,
		Status:          meta(models.MetaStoryStatus),
		CoverURL:        meta(models.MetaCoverURL),
		Genres:          parseList(meta(models.MetaGenres)),
		Tags:            parseList(meta(models.MetaTags)),
		ChapterIDs:      chapterIDs,
		ChaptersCrawled: parseInt(meta(models.MetaChaptersCrawled), 0),
		ChaptersTotal:   parseInt(meta(models.MetaChaptersTotal), 0),
		LastChapter:     parseInt(meta(models.MetaLastChapter), 0),
	}
	c.JSON(http.StatusOK, s)
}

// getChapter returns a chapter of the story by sequence number, for crawlers
// re-fetching what a previous run uploaded.
func (h *Handler) getChapter(c *gin.Context) {
	storyID := c.Param("id")
	number, err := strconv.Atoi(c.Param("num"))
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapter number must be a positive integer"})
		return
	}

	ctx := c.Request.Context()
	chapterIDs, err := h.Reconciler.ChapterList(ctx, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	for _, id := range chapterIDs {
		if ChapterNumber(ctx, h.Entities, id) != number {
			continue
		}
		rec, err := h.Entities.Get(ctx, id)
		if err != nil || rec == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		url, _ := h.Entities.GetMeta(ctx, id, models.MetaChapterURL)
		orig, _ := h.Entities.GetMeta(ctx, id, models.MetaTitleOriginal)
		n := number
		c.JSON(http.StatusOK, models.Chapter{
			ID:            rec.ID,
			StoryID:       storyID,
			SourceURL:     url,
			Title:         rec.Title,
			TitleOriginal: orig,
			Content:       rec.Content,
			Number:        &n,
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
}

func (h *Handler) createStory(c *gin.Context) {
	var p StoryPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Coordinator.IngestStory(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	msg := "Story created successfully"
	if res.Existed {
		msg = "Story already exists"
	} else if h.Hub != nil {
		h.Hub.Broadcast(events.Event{Type: events.StoryCreated, StoryID: res.ID})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"story_id": res.ID,
		"message":  msg,
		"existed":  res.Existed,
	})
}

func (h *Handler) createChapter(c *gin.Context) {
	var p ChapterPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Coordinator.IngestChapter(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	msg := "Chapter created successfully"
	if res.Existed {
		msg = "Chapter already exists"
	} else if h.Hub != nil {
		ev := events.Event{Type: events.ChapterCreated, StoryID: p.StoryID, ChapterID: res.ID}
		if p.Number != nil {
			ev.Chapter = *p.Number
		}
		h.Hub.Broadcast(ev)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"chapter_id": res.ID,
		"message":    msg,
		"existed":    res.Existed,
	})
}

type bulkReq struct {
	Chapters []ChapterPayload `json:"chapters"`
}

func (h *Handler) createChaptersBulk(c *gin.Context) {
	var req bulkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Chapters) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapters array required"})
		return
	}

	out := h.Coordinator.IngestChapters(c.Request.Context(), req.Chapters)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   out.Total,
		"created": out.Created,
		"existed": out.Existed,
		"failed":  out.Failed,
		"results": out.Results,
	})
}

func (h *Handler) chapterExists(c *gin.Context) {
	storyID := strings.TrimSpace(c.Query("story_id"))
	number, err := strconv.Atoi(c.Query("chapter_number"))
	if storyID == "" || err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story_id and chapter_number required"})
		return
	}

	ctx := c.Request.Context()
	chapterIDs, listErr := h.Reconciler.ChapterList(ctx, storyID)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	for _, id := range chapterIDs {
		if ChapterNumber(ctx, h.Entities, id) == number {
			c.JSON(http.StatusOK, gin.H{"exists": true, "chapter_id": id})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"exists": false, "chapter_id": nil})
}

func (h *Handler) storyChapterStatus(c *gin.Context) {
	storyID := c.Param("id")
	totalWanted := parseInt(c.Query("total_chapters"), 0)

	ctx := c.Request.Context()
	chapterIDs, err := h.Reconciler.ChapterList(ctx, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	numbers := make([]int, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		if n := ChapterNumber(ctx, h.Entities, id); n > 0 {
			numbers = append(numbers, n)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"chapters_count":    len(chapterIDs),
		"is_complete":       totalWanted > 0 && len(chapterIDs) >= totalWanted,
		"existing_chapters": numbers,
	})
}

// debugStory reports every chapter's association state so mis-linked chapters
// can be spotted without shell access to the store.
func (h *Handler) debugStory(c *gin.Context) {
	storyID := c.Param("id")
	ctx := c.Request.Context()

	story, err := h.Entities.Get(ctx, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if story == nil || story.Type != models.TypeStory {
		c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
		return
	}

	chapterIDs, err := h.Reconciler.ChapterList(ctx, storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	details := make([]gin.H, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		rec, _ := h.Entities.Get(ctx, id)
		primary, _ := h.Entities.GetMeta(ctx, id, models.MetaChapterStory)
		backup, _ := h.Entities.GetMeta(ctx, id, models.MetaChapterStoryBackup)
		resolved, _ := StoryRef(ctx, h.Entities, id)

		title, status := "Not found", "N/A"
		if rec != nil {
			title, status = rec.Title, rec.Status
		}
		details = append(details, gin.H{
			"id":                id,
			"title":             title,
			"status":            status,
			"story_id":          primary,
			"story_id_backup":   backup,
			"resolved_story_id": resolved,
			"association_ok":    resolved == storyID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"story_id":        storyID,
		"story_title":     story.Title,
		"story_status":    story.Status,
		"chapters_count":  len(chapterIDs),
		"chapter_details": details,
	})
}

func writeError(c *gin.Context, err error) {
	var ve *ValidationError
	var pe *InvalidParentError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.As(err, &pe):
		c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
