package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/SherlinC/livecuecard/models"
	"github.com/SherlinC/livecuecard/store"
	"github.com/SherlinC/livecuecard/utils"
)

// BulkResult is the outcome of one batch run: the finished archive plus how
// many of the input rows made it in.
type BulkResult struct {
	Archive   []byte
	Filename  string
	Generated int
	Total     int
}

// BulkService drives the batch loop: for each imported row, point the shared
// preview region at it, let layout settle, snapshot it, and accumulate the
// result into a ZIP archive. The loop is strictly sequential because the
// preview region is a single mutable resource; output files correspond 1:1
// with input row order where successful.
type BulkService struct {
	store    *store.CardStore
	snapshot SnapshotServiceInterface
	images   *ImageFetcher

	settleDelay time.Duration
}

// NewBulkService creates a new BulkService. Pass the fetcher shared with the
// preview renderer so prefetched row images are inlined from cache; nil gets
// a private one.
func NewBulkService(cardStore *store.CardStore, snapshot SnapshotServiceInterface, images *ImageFetcher) *BulkService {
	if images == nil {
		images = NewImageFetcher()
	}
	return &BulkService{
		store:       cardStore,
		snapshot:    snapshot,
		images:      images,
		settleDelay: 80 * time.Millisecond,
	}
}

// entryName derives the archive filename for a row: the product title truncated
// to 20 runes, or a positional fallback. Duplicate names get a numeric suffix
// so later rows do not overwrite earlier ones inside the archive.
func entryName(row models.CardData, index int, used map[string]bool) string {
	base := utils.TruncateRunes(strings.TrimSpace(row.ProductTitle), 20)
	if base == "" {
		base = fmt.Sprintf("手卡_%d", index+1)
	}
	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	used[name] = true
	return name
}

// archiveFilename builds the overall archive name from the detected common
// brand (sanitized) and the template orientation.
func archiveFilename(rows []models.CardData, templateType string) string {
	label := "竖版"
	if templateType == TemplateLandscape {
		label = "横版"
	}
	brands := make([]string, 0, len(rows))
	for _, r := range rows {
		brands = append(brands, r.BrandName)
	}
	brand := utils.SanitizeFilename(utils.DetectCommonBrand(brands))
	if brand == "" {
		return fmt.Sprintf("%s手卡批量.zip", label)
	}
	return fmt.Sprintf("%s_%s手卡批量.zip", brand, label)
}

// Generate runs the batch. A single row's snapshot failure is skipped and the
// loop continues; the archive simply contains fewer files than input rows.
// Progress is reported through the store as round(100 * completed / total) and
// reaches 100 even when rows fail. There is no cancellation once started
// beyond the passed context's own expiry.
func (s *BulkService) Generate(ctx context.Context, rows []models.CardData, templateType string) (*BulkResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to generate")
	}
	if !ValidTemplates[templateType] {
		return nil, fmt.Errorf("invalid template %q", templateType)
	}

	// One browser context for the whole batch, with a per-row time budget.
	timeout := time.Duration(20+len(rows)*10) * time.Second
	if timeout > 10*time.Minute {
		timeout = 10 * time.Minute
	}
	log.Printf("📸 Bulk generate: rows=%d template=%s timeout=%s", len(rows), templateType, timeout)

	chromedpCtx, cancel := s.snapshot.NewBrowserContext(ctx, timeout)
	defer cancel()
	defer s.store.ClearPreviewOverride()

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	used := make(map[string]bool, len(rows))
	generated := 0

	for i := range rows {
		row := rows[i]

		// Warm the row's images so the render inlines them from cache.
		s.images.Prefetch(row.MainImage, row.BackImage)

		// The preview region renders whichever row the override points at;
		// the settle delay lets the renderer catch up before capture.
		s.store.SetPreviewOverride(&row)
		time.Sleep(s.settleDelay)

		result := s.snapshot.CaptureCard(chromedpCtx, templateType)
		if result.Success && len(result.PNG) > 0 {
			name := entryName(row, i, used)
			w, err := zw.Create(name + ".png")
			if err == nil {
				if _, err := w.Write(result.PNG); err != nil {
					log.Printf("❌ Bulk generate: failed to write archive entry for row %d: %v", i+1, err)
				} else {
					generated++
				}
			} else {
				log.Printf("❌ Bulk generate: failed to create archive entry for row %d: %v", i+1, err)
			}
		} else {
			log.Printf("⚠️  Bulk generate: row %d snapshot failed, skipping: %v", i+1, result.Err)
		}

		progress := int(math.Round(100 * float64(i+1) / float64(len(rows))))
		s.store.SetProgress(progress)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	log.Printf("🎉 Bulk generate completed: %d/%d cards archived", generated, len(rows))
	return &BulkResult{
		Archive:   zipBuf.Bytes(),
		Filename:  archiveFilename(rows, templateType),
		Generated: generated,
		Total:     len(rows),
	}, nil
}
