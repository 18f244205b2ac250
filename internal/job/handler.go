package job

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"novelhub/internal/events"
	"novelhub/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *events.Hub
}

func NewHandler(repo *Repo, hub *events.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

// RegisterRoutes mounts the crawler-facing job endpoints (API-key group).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/job", h.getJob)
	rg.POST("/job/status", h.updateStatus)
}

// RegisterAdminRoutes mounts job management for the admin panel (JWT group).
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/job", h.setJob)
	rg.DELETE("/job", h.deleteJob)
}

func (h *Handler) getJob(c *gin.Context) {
	j, err := h.Repo.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if j == nil {
		c.JSON(http.StatusOK, gin.H{"job_available": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_available": true, "job": j})
}

type statusReq struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Status = strings.TrimSpace(req.Status)
	if !models.ValidJobStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	j, err := h.Repo.UpdateStatus(c.Request.Context(), req.Status, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	if h.Hub != nil {
		h.Hub.Broadcast(events.Event{Type: events.JobUpdated, Status: j.Status})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "job": j})
}

func (h *Handler) setJob(c *gin.Context) {
	var j models.IngestionJob
	if err := c.ShouldBindJSON(&j); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	switch j.JobType {
	case models.JobTypeWeb:
		if strings.TrimSpace(j.URL) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "url required for web job"})
			return
		}
	case models.JobTypeEpub:
		if strings.TrimSpace(j.EpubURL) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "epub_url required for epub job"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_type must be web or epub"})
		return
	}

	j.Status = models.JobPending
	j.Timestamp = time.Now().UTC()
	j.LastUpdated = j.Timestamp

	if err := h.Repo.Set(c.Request.Context(), &j); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	log.Printf("[job] queued %s job", j.JobType)
	if h.Hub != nil {
		h.Hub.Broadcast(events.Event{Type: events.JobUpdated, Status: j.Status})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "job": j})
}

func (h *Handler) deleteJob(c *gin.Context) {
	if err := h.Repo.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
