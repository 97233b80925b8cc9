package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/SherlinC/livecuecard/models"
)

const (
	stateBucket = "state"
	historyKey  = "cardHistory"
)

// HistoryRepository persists the history list as a single JSON array under one
// well-known key, mirroring the browser localStorage record it replaces. No
// versioning or migration: a corrupt or incompatible payload reads as "no
// history" rather than erroring.
type HistoryRepository struct {
	db *bolt.DB
}

// Ensure HistoryRepository implements HistoryRepositoryInterface
var _ HistoryRepositoryInterface = (*HistoryRepository)(nil)

// NewHistoryRepository opens (creating if needed) the bolt file at path.
func NewHistoryRepository(path string) (*HistoryRepository, error) {
	if path == "" {
		path = filepath.Join("data", "livecuecard.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}
	return &HistoryRepository{db: db}, nil
}

// Load reads the stored history. A missing or unparseable payload yields an
// empty list and no error.
func (r *HistoryRepository) Load() ([]models.CardHistoryEntry, error) {
	var raw []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(historyKey)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || len(raw) == 0 {
		return []models.CardHistoryEntry{}, err
	}
	var entries []models.CardHistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Incompatible payload: treat as no history.
		return []models.CardHistoryEntry{}, nil
	}
	return entries, nil
}

// Save writes the full history list, replacing whatever was stored.
func (r *HistoryRepository) Save(entries []models.CardHistoryEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(stateBucket))
		if b == nil {
			return fmt.Errorf("state bucket missing")
		}
		return b.Put([]byte(historyKey), raw)
	})
}

// Close closes the underlying bolt file.
func (r *HistoryRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
