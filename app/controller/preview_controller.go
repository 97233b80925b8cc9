package controller

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/SherlinC/livecuecard/service"
	"github.com/SherlinC/livecuecard/store"
)

// PreviewController serves the rendered card HTML. The headless browser
// navigates here during snapshot and bulk generation.
type PreviewController struct {
	store   *store.CardStore
	preview *service.PreviewService
}

// NewPreviewController creates a new PreviewController.
func NewPreviewController(cardStore *store.CardStore, preview *service.PreviewService) *PreviewController {
	return &PreviewController{
		store:   cardStore,
		preview: preview,
	}
}

// Render handles GET /render?template=portrait|landscape. It renders the bulk
// preview override when one is set, otherwise the live draft.
func (c *PreviewController) Render(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	templateType := strings.TrimSpace(r.URL.Query().Get("template"))
	if templateType == "" {
		templateType = service.TemplatePortrait
	}
	if !service.ValidTemplates[templateType] {
		http.Error(w, "Invalid template. Valid templates: portrait, landscape", http.StatusBadRequest)
		return
	}

	html, err := c.preview.RenderCardHTML(c.store.PreviewCard(), templateType)
	if err != nil {
		log.Printf("❌ Render: error rendering card HTML: %v", err)
		http.Error(w, fmt.Sprintf("Failed to render card: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		log.Printf("❌ Render: error writing HTML response: %v", err)
	}
}
