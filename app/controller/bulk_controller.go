package controller

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/SherlinC/livecuecard/models"
	"github.com/SherlinC/livecuecard/service"
	"github.com/SherlinC/livecuecard/store"
)

// maxImportSize caps the uploaded spreadsheet at 20 MB.
const maxImportSize = 20 << 20

// BulkController handles spreadsheet import, template download and batch
// generation. Imported rows are cached in memory between the import call and
// the generate call; they bypass the live draft entirely.
type BulkController struct {
	store *store.CardStore
	excel *service.ExcelService
	bulk  *service.BulkService

	mu   sync.Mutex
	rows []models.CardData
}

// NewBulkController creates a new BulkController.
func NewBulkController(cardStore *store.CardStore, excel *service.ExcelService, bulk *service.BulkService) *BulkController {
	return &BulkController{
		store: cardStore,
		excel: excel,
		bulk:  bulk,
	}
}

// DownloadTemplate handles GET /admin/bulk/template. Fixed filename, one
// sample row.
func (c *BulkController) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := c.excel.WriteTemplate()
	if err != nil {
		log.Printf("❌ DownloadTemplate: %v", err)
		http.Error(w, fmt.Sprintf("Failed to build template: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", service.TemplateFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("❌ DownloadTemplate: error writing response: %v", err)
	}
}

// Import handles POST /admin/bulk/import with a multipart "file" field. Every
// row is returned, including ones with errors; the caller decides how to
// surface the error list.
func (c *BulkController) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		http.Error(w, fmt.Sprintf("Invalid multipart upload: %v", err), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := c.excel.ParseWorkbook(file)
	if err != nil {
		log.Printf("❌ Import: failed to parse %s: %v", header.Filename, err)
		http.Error(w, fmt.Sprintf("Failed to parse workbook: %v", err), http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	c.rows = result.Rows
	c.mu.Unlock()

	log.Printf("✓ Import: %s parsed, %d rows, %d errors", header.Filename, len(result.Rows), len(result.Errors))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileName": header.Filename,
		"count":    len(result.Rows),
		"rows":     result.Rows,
		"errors":   result.Errors,
	})
}

// Generate handles POST /admin/bulk/generate?template=portrait|landscape and
// streams back the finished ZIP archive.
func (c *BulkController) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
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

	c.mu.Lock()
	rows := c.rows
	c.mu.Unlock()
	if len(rows) == 0 {
		http.Error(w, "No imported rows. Upload a spreadsheet first.", http.StatusBadRequest)
		return
	}
	if !c.store.TryBeginGenerating() {
		http.Error(w, "A batch run is already in progress", http.StatusConflict)
		return
	}
	c.store.SetProgress(0)
	defer c.store.SetGenerating(false)

	result, err := c.bulk.Generate(r.Context(), rows, templateType)
	if err != nil {
		log.Printf("❌ Generate: batch failed: %v", err)
		http.Error(w, fmt.Sprintf("Failed to generate batch: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	w.Header().Set("X-Generated-Count", fmt.Sprintf("%d", result.Generated))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Archive); err != nil {
		log.Printf("❌ Generate: error writing archive response: %v", err)
	}
}

// Progress handles GET /admin/bulk/progress.
func (c *BulkController) Progress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generating": c.store.IsGenerating(),
		"progress":   c.store.Progress(),
	})
}
