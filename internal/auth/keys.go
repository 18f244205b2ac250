package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
)

const keyOption = "crawler_api_key"

// KeyService owns the pre-shared crawler API key. The key lives in the
// options table and is generated on first use; NOVELHUB_API_KEY overrides the
// stored key (useful for tests and containerized deploys).
type KeyService struct {
	DB *sql.DB
}

func NewKeyService(db *sql.DB) *KeyService {
	return &KeyService{DB: db}
}

// Current returns the active API key, generating and storing one if none
// exists yet.
func (s *KeyService) Current(ctx context.Context) (string, error) {
	if k := os.Getenv("NOVELHUB_API_KEY"); k != "" {
		return k, nil
	}

	row := s.DB.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, keyOption)
	var key string
	err := row.Scan(&key)
	if err == nil && key != "" {
		return key, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("read api key: %w", err)
	}

	key, err = generateKey()
	if err != nil {
		return "", err
	}
	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, keyOption, key); err != nil {
		return "", fmt.Errorf("store api key: %w", err)
	}
	return key, nil
}

// Verify compares a presented key against the stored one in constant time.
func (s *KeyService) Verify(ctx context.Context, presented string) (bool, error) {
	stored, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1, nil
}

func generateKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
