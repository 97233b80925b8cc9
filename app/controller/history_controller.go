package controller

import (
	"net/http"
	"strings"

	"github.com/SherlinC/livecuecard/store"
)

// HistoryController handles HTTP requests for the saved-card history.
type HistoryController struct {
	store *store.CardStore
}

// NewHistoryController creates a new HistoryController.
func NewHistoryController(cardStore *store.CardStore) *HistoryController {
	return &HistoryController{store: cardStore}
}

// List handles GET /admin/history, newest first.
func (c *HistoryController) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, c.store.History())
}

// Delete handles DELETE /admin/history/{id}.
func (c *HistoryController) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/admin/history/")
	if id == "" {
		http.Error(w, "History entry id is required", http.StatusBadRequest)
		return
	}
	c.store.RemoveHistoryEntry(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted", "id": id})
}
