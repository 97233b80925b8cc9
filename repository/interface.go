package repository

import (
	"github.com/SherlinC/livecuecard/models"
)

// HistoryRepositoryInterface defines the contract for durable card-history storage.
// Implementations are best-effort: the in-memory store stays authoritative for
// the session even when writes fail.
type HistoryRepositoryInterface interface {
	Load() ([]models.CardHistoryEntry, error)
	Save(entries []models.CardHistoryEntry) error
	Close() error
}
