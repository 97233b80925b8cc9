package app

import (
	"fmt"
	"os"

	"github.com/SherlinC/livecuecard/app/controller"
	"github.com/SherlinC/livecuecard/app/router"
	"github.com/SherlinC/livecuecard/repository"
	"github.com/SherlinC/livecuecard/service"
	"github.com/SherlinC/livecuecard/store"
)

// Initialize wires the application: history storage, the card store, the
// render/snapshot services and the HTTP routes. The returned closer shuts the
// history store down.
func Initialize(baseURL string) (func() error, error) {
	// Open the durable history store
	historyRepo, err := repository.NewHistoryRepository(os.Getenv("DATA_PATH"))
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	// The card store is created here and passed down explicitly; nothing else
	// holds global state.
	cardStore := store.NewCardStore(historyRepo)

	// One image fetcher shared between bulk prefetch and preview inlining, so
	// prefetched images are served from its cache at render time.
	imageFetcher := service.NewImageFetcher()
	previewService := service.NewPreviewService(os.Getenv("TEMPLATES_DIR"), imageFetcher)
	snapshotService := service.NewSnapshotService(baseURL)
	excelService := service.NewExcelService()
	bulkService := service.NewBulkService(cardStore, snapshotService, imageFetcher)

	controllers := &router.Controllers{
		Card:    controller.NewCardController(cardStore, snapshotService),
		History: controller.NewHistoryController(cardStore),
		Preview: controller.NewPreviewController(cardStore, previewService),
		Bulk:    controller.NewBulkController(cardStore, excelService, bulkService),
	}

	router.SetupRoutes(controllers)

	return historyRepo.Close, nil
}
