package entity

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one row of the keyed post store. Everything beyond the core
// fields lives in metadata.
type Record struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields is the writable subset of a record.
type Fields struct {
	Title   string
	Content string
	Status  string // defaults to "publish"
}

// Repo is the narrow adapter over the post store: create/read a record,
// key-value metadata per record, and lookups by metadata or exact title.
//
// Reads of full records go through a small in-process cache; Invalidate
// drops a record from it after external mutations.
type Repo struct {
	DB *sql.DB

	mu    sync.RWMutex
	cache map[string]*Record
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, cache: make(map[string]*Record)}
}

// Create inserts a new record and returns its id. Metadata is attached
// separately via SetMeta, so a failed create leaves nothing behind.
func (r *Repo) Create(ctx context.Context, typ string, f Fields) (string, error) {
	id := uuid.NewString()
	status := f.Status
	if status == "" {
		status = "publish"
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO posts (id, type, title, content, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, typ, f.Title, f.Content, status)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", typ, err)
	}
	return id, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Record, error) {
	r.mu.RLock()
	if rec, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return rec, nil
	}
	r.mu.RUnlock()

	row := r.DB.QueryRowContext(ctx, `
		SELECT id, type, title, content, status, created_at, updated_at
		FROM posts
		WHERE id = ?
	`, id)

	var rec Record
	if err := row.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Content, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	r.mu.Lock()
	r.cache[id] = &rec
	r.mu.Unlock()
	return &rec, nil
}

// Update overwrites the given fields of an existing record. Empty strings in
// Title/Content are skipped so a partial payload cannot blank stored text;
// Status is only written when provided.
func (r *Repo) Update(ctx context.Context, id string, f Fields) error {
	set := "updated_at = CURRENT_TIMESTAMP"
	args := []any{}
	if f.Title != "" {
		set += ", title = ?"
		args = append(args, f.Title)
	}
	if f.Content != "" {
		set += ", content = ?"
		args = append(args, f.Content)
	}
	if f.Status != "" {
		set += ", status = ?"
		args = append(args, f.Status)
	}
	args = append(args, id)

	if _, err := r.DB.ExecContext(ctx, `UPDATE posts SET `+set+` WHERE id = ?`, args...); err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	r.Invalidate(id)
	return nil
}

func (r *Repo) SetMeta(ctx context.Context, id, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO post_meta (post_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(post_id, key) DO UPDATE SET value = excluded.value
	`, id, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta returns the stored value, or "" when the key is absent.
func (r *Repo) GetMeta(ctx context.Context, id, key string) (string, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT value FROM post_meta WHERE post_id = ? AND key = ?
	`, id, key)

	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return v, nil
}

// QueryByMeta returns records of the given type whose metadata key equals value.
func (r *Repo) QueryByMeta(ctx context.Context, typ, key, value string, limit int) ([]Record, error) {
	return r.queryJoin(ctx, typ, key, "m.value = ?", value, limit)
}

// QueryByMetaLike is QueryByMeta with a LIKE pattern, used by the repair tool
// to collect all chapters sharing a source prefix.
func (r *Repo) QueryByMetaLike(ctx context.Context, typ, key, pattern string, limit int) ([]Record, error) {
	return r.queryJoin(ctx, typ, key, "m.value LIKE ?", pattern, limit)
}

func (r *Repo) queryJoin(ctx context.Context, typ, key, cond, value string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.id, p.type, p.title, p.content, p.status, p.created_at, p.updated_at
		FROM posts p
		JOIN post_meta m ON m.post_id = p.id
		WHERE p.type = ? AND m.key = ? AND `+cond+`
		ORDER BY p.created_at ASC
		LIMIT ?
	`, typ, key, value, limit)
	if err != nil {
		return nil, fmt.Errorf("query by meta: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// QueryByTitle returns records of the given type with exactly this title.
func (r *Repo) QueryByTitle(ctx context.Context, typ, title string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, type, title, content, status, created_at, updated_at
		FROM posts
		WHERE type = ? AND title = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, typ, title, limit)
	if err != nil {
		return nil, fmt.Errorf("query by title: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Invalidate drops a record from the read cache.
func (r *Repo) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Content, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
