package router

import (
	"net/http"
	"strings"

	"github.com/SherlinC/livecuecard/app/controller"
)

type Controllers struct {
	Card    *controller.CardController
	History *controller.HistoryController
	Preview *controller.PreviewController
	Bulk    *controller.BulkController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func SetupRoutes(controllers *Controllers) {
	// Ping endpoint
	http.HandleFunc("/ping", pingHandler)

	// Preview render endpoint (navigated by the headless browser during export)
	http.HandleFunc("/render", controllers.Preview.Render)

	// Card draft routes
	http.HandleFunc("/admin/card", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			controllers.Card.GetCard(w, r)
		} else if r.Method == http.MethodPost {
			controllers.Card.PatchCard(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/admin/card/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/admin/card/")

		// Route to specific actions first
		switch path {
		case "reset":
			controllers.Card.ResetCard(w, r)
			return
		case "status":
			controllers.Card.Status(w, r)
			return
		case "export":
			controllers.Card.Export(w, r)
			return
		case "save":
			controllers.Card.Save(w, r)
			return
		}

		// Otherwise, treat as a slice update (PUT /admin/card/{slice})
		controllers.Card.UpdateSlice(w, r)
	})

	// History routes
	http.HandleFunc("/admin/history", controllers.History.List)
	http.HandleFunc("/admin/history/", controllers.History.Delete)

	// Bulk routes
	http.HandleFunc("/admin/bulk/template", controllers.Bulk.DownloadTemplate)
	http.HandleFunc("/admin/bulk/import", controllers.Bulk.Import)
	http.HandleFunc("/admin/bulk/generate", controllers.Bulk.Generate)
	http.HandleFunc("/admin/bulk/progress", controllers.Bulk.Progress)
}
