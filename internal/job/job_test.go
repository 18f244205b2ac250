package job

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func TestEmptySlot(t *testing.T) {
	repo := newTestRepo(t)

	j, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, j)
}

func TestSetReplacesSlot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, &models.IngestionJob{JobType: models.JobTypeWeb, URL: "https://x/books/1/", Status: models.JobPending}))
	require.NoError(t, repo.Set(ctx, &models.IngestionJob{JobType: models.JobTypeEpub, EpubURL: "https://x/a.epub", Status: models.JobPending}))

	j, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, j)
	require.Equal(t, models.JobTypeEpub, j.JobType)
	require.Equal(t, "https://x/a.epub", j.EpubURL)
}

func TestClearEmptiesSlot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, &models.IngestionJob{JobType: models.JobTypeWeb, URL: "https://x/books/1/"}))
	require.NoError(t, repo.Clear(ctx))

	j, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Nil(t, j)

	// clearing an already empty slot is fine
	require.NoError(t, repo.Clear(ctx))
}

func TestUpdateStatusPatches(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, &models.IngestionJob{JobType: models.JobTypeWeb, URL: "https://x/books/1/", Status: models.JobPending}))

	j, err := repo.UpdateStatus(ctx, models.JobRunning, "chapter 5 of 20")
	require.NoError(t, err)
	require.Equal(t, models.JobRunning, j.Status)
	require.Equal(t, "chapter 5 of 20", j.Message)
	require.Equal(t, "https://x/books/1/", j.URL)
	require.False(t, j.LastUpdated.IsZero())

	// empty message keeps the previous one
	j, err = repo.UpdateStatus(ctx, models.JobCompleted, "")
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, j.Status)
	require.Equal(t, "chapter 5 of 20", j.Message)
}

func TestUpdateStatusInitializesEmptySlot(t *testing.T) {
	repo := newTestRepo(t)

	j, err := repo.UpdateStatus(context.Background(), models.JobFailed, "source gone")
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, j.Status)
	require.False(t, j.Timestamp.IsZero())
}

func newJobRouter(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newTestRepo(t)
	h := NewHandler(repo, nil)

	r := gin.New()
	h.RegisterRoutes(r.Group("/crawler/v1"))
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestGetJobEndpoint(t *testing.T) {
	r, repo := newJobRouter(t)

	code, out := doJSON(t, r, http.MethodGet, "/crawler/v1/job", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, out["job_available"])

	require.NoError(t, repo.Set(context.Background(), &models.IngestionJob{JobType: models.JobTypeWeb, URL: "https://x/books/1/", Status: models.JobPending}))

	code, out = doJSON(t, r, http.MethodGet, "/crawler/v1/job", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, out["job_available"])
	job, ok := out["job"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "web", job["job_type"])
}

func TestUpdateStatusEndpointValidates(t *testing.T) {
	r, _ := newJobRouter(t)

	code, _ := doJSON(t, r, http.MethodPost, "/crawler/v1/job/status", gin.H{"status": "exploded"})
	require.Equal(t, http.StatusBadRequest, code)

	code, out := doJSON(t, r, http.MethodPost, "/crawler/v1/job/status", gin.H{"status": "running", "message": "going"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, out["success"])
}

func TestSetJobEndpointValidates(t *testing.T) {
	r, repo := newJobRouter(t)

	code, _ := doJSON(t, r, http.MethodPut, "/admin/job", gin.H{"job_type": "web"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, r, http.MethodPut, "/admin/job", gin.H{"job_type": "epub"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, r, http.MethodPut, "/admin/job", gin.H{"job_type": "tape"})
	require.Equal(t, http.StatusBadRequest, code)

	code, out := doJSON(t, r, http.MethodPut, "/admin/job", gin.H{
		"job_type":     "web",
		"url":          "https://x/books/1/",
		"max_chapters": 20,
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, out["success"])

	j, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.JobPending, j.Status)
	require.Equal(t, 20, j.MaxChapters)
}

func TestDeleteJobEndpoint(t *testing.T) {
	r, repo := newJobRouter(t)
	require.NoError(t, repo.Set(context.Background(), &models.IngestionJob{JobType: models.JobTypeWeb, URL: "https://x/books/1/"}))

	code, out := doJSON(t, r, http.MethodDelete, "/admin/job", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, out["success"])

	j, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, j)
}
