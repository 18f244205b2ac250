package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"novelhub/pkg/models"
)

const slotOption = "crawler_current_job"

// Repo stores the single crawl job slot as one JSON value in the options
// table. There is no job history: Set replaces, Clear empties, and Get
// returns nil when the slot is empty.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Get(ctx context.Context) (*models.IngestionJob, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, slotOption)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get job slot: %w", err)
	}

	var j models.IngestionJob
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, fmt.Errorf("decode job slot: %w", err)
	}
	return &j, nil
}

func (r *Repo) Set(ctx context.Context, j *models.IngestionJob) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, slotOption, string(b))
	if err != nil {
		return fmt.Errorf("set job slot: %w", err)
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, slotOption); err != nil {
		return fmt.Errorf("clear job slot: %w", err)
	}
	return nil
}

// UpdateStatus patches status and message on the current job. An empty slot
// is initialized rather than rejected: the crawler may report status for a
// job created before the store was wiped.
func (r *Repo) UpdateStatus(ctx context.Context, status, message string) (*models.IngestionJob, error) {
	j, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if j == nil {
		j = &models.IngestionJob{Timestamp: time.Now().UTC()}
	}

	j.Status = status
	if message != "" {
		j.Message = message
	}
	j.LastUpdated = time.Now().UTC()

	if err := r.Set(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}
