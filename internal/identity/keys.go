package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"coachline/internal/domain"
	"coachline/internal/sheet"
)

const keyCols = 5

// ErrKeyNotFound reports that no stored API key matches the given hash or id.
var ErrKeyNotFound = errors.New("api key not found")

var keyHeader = sheet.Row{"id", "subject", "name", "key_hash", "created_at"}

// HashAPIKey returns a stable SHA-256 hex digest for the provided key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// Keys manages API keys stored as rows in the Credentials sheet. Only the
// hash of the key material is persisted.
type Keys struct {
	Store sheet.Store
	Lock  *sheet.Locker
	Now   func() time.Time
	Sheet string
}

// Mint creates a new key for subject and returns the record together with
// the plaintext key. The plaintext is never stored.
func (k Keys) Mint(ctx context.Context, subject, name string) (domain.APIKey, string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.APIKey{}, "", errors.New("subject required")
	}
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return domain.APIKey{}, "", err
	}
	plain := "cl_" + hex.EncodeToString(raw)
	rec := domain.APIKey{
		ID:        uuid.NewString(),
		Subject:   subject,
		Name:      name,
		KeyHash:   HashAPIKey(plain),
		CreatedAt: k.now().UTC().Format(time.RFC3339),
	}
	err := k.Lock.WithLock(ctx, func() error {
		grid, err := sheet.ReadAll(ctx, k.Store, k.Sheet, keyCols)
		if err != nil {
			return err
		}
		if len(grid) == 0 {
			if err := k.Store.AppendRow(ctx, k.Sheet, keyHeader); err != nil {
				return err
			}
		}
		return k.Store.AppendRow(ctx, k.Sheet, encodeKey(rec))
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return rec, plain, nil
}

// GetByHash finds the key record matching a hashed value.
func (k Keys) GetByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	keys, err := k.List(ctx)
	if err != nil {
		return domain.APIKey{}, err
	}
	for _, rec := range keys {
		if rec.KeyHash == hash {
			return rec, nil
		}
	}
	return domain.APIKey{}, ErrKeyNotFound
}

// List returns all stored keys.
func (k Keys) List(ctx context.Context) ([]domain.APIKey, error) {
	grid, err := sheet.ReadAll(ctx, k.Store, k.Sheet, keyCols)
	if err != nil {
		return nil, err
	}
	var keys []domain.APIKey
	for _, row := range grid {
		if rec, ok := decodeKey(row); ok {
			keys = append(keys, rec)
		}
	}
	return keys, nil
}

// Revoke deletes the key row with the given id.
func (k Keys) Revoke(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	return k.Lock.WithLock(ctx, func() error {
		grid, err := sheet.ReadAll(ctx, k.Store, k.Sheet, keyCols)
		if err != nil {
			return err
		}
		for i, row := range grid {
			rec, ok := decodeKey(row)
			if ok && rec.ID == id {
				return k.Store.DeleteRow(ctx, k.Sheet, i+1)
			}
		}
		return ErrKeyNotFound
	})
}

func (k Keys) now() time.Time {
	if k.Now != nil {
		return k.Now()
	}
	return time.Now()
}

func encodeKey(rec domain.APIKey) sheet.Row {
	return sheet.Row{rec.ID, rec.Subject, rec.Name, rec.KeyHash, rec.CreatedAt}
}

func decodeKey(row sheet.Row) (domain.APIKey, bool) {
	if len(row) < keyCols || row[0] == "" || row[0] == "id" {
		return domain.APIKey{}, false
	}
	return domain.APIKey{
		ID:        row[0],
		Subject:   row[1],
		Name:      row[2],
		KeyHash:   row[3],
		CreatedAt: row[4],
	}, true
}
