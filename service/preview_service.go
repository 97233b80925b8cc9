package service

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SherlinC/livecuecard/models"
)

// Template orientation values.
const (
	TemplatePortrait  = "portrait"
	TemplateLandscape = "landscape"
)

// ValidTemplates maps the accepted template orientation values.
var ValidTemplates = map[string]bool{
	TemplatePortrait:  true,
	TemplateLandscape: true,
}

// PreviewService renders a card as styled HTML, one template file per
// orientation. The output is what the snapshot pipeline rasterizes.
type PreviewService struct {
	templatesDir string
	images       *ImageFetcher
}

// NewPreviewService creates a PreviewService reading templates from dir
// ("templates" when empty). Pass the fetcher shared with the bulk orchestrator
// so prefetched images are inlined from cache; nil gets a private one.
func NewPreviewService(dir string, images *ImageFetcher) *PreviewService {
	if dir == "" {
		dir = "templates"
	}
	if images == nil {
		images = NewImageFetcher()
	}
	return &PreviewService{
		templatesDir: dir,
		images:       images,
	}
}

// chartRow is one rendered size-chart line: the label plus the values for each
// header after the first (the label column itself).
type chartRow struct {
	Size   string
	Values []string
}

type previewData struct {
	Card      models.CardData
	ChartRows []chartRow
	Saved     string
	OffPct    string
}

// RenderCardHTML renders the card with the given template orientation.
func (s *PreviewService) RenderCardHTML(card models.CardData, templateType string) (string, error) {
	if !ValidTemplates[templateType] {
		return "", fmt.Errorf("invalid template %q: valid templates are portrait, landscape", templateType)
	}

	// Inline remote images as data URIs so the headless browser needs no
	// network. Failures leave the original URL in place.
	s.inlineImages(&card)

	data := previewData{
		Card:      card,
		ChartRows: buildChartRows(card.SizeChart),
	}
	if card.MarketPrice > card.LivePrice && card.MarketPrice > 0 {
		data.Saved = fmt.Sprintf("%.2f", card.MarketPrice-card.LivePrice)
		data.OffPct = fmt.Sprintf("%.1f", (1-card.LivePrice/card.MarketPrice)*100)
	}

	name := fmt.Sprintf("card_%s.html", templateType)
	tmpl, err := template.ParseFiles(filepath.Join(s.templatesDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// buildChartRows orders the size-chart map into stable rows. A chart with zero
// entries yields zero rows and renders without error.
func buildChartRows(chart models.SizeChart) []chartRow {
	keys := make([]string, 0, len(chart.Sizes))
	for k := range chart.Sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	valueHeaders := chart.Headers
	if len(valueHeaders) > 0 {
		valueHeaders = valueHeaders[1:] // first header is the label column
	}

	rows := make([]chartRow, 0, len(keys))
	for _, k := range keys {
		row := chartRow{Size: k}
		for _, h := range valueHeaders {
			v := chart.Sizes[k][h]
			if v == "" {
				v = "-"
			}
			row.Values = append(row.Values, v)
		}
		rows = append(rows, row)
	}
	return rows
}

// inlineImages converts the card's remote image URLs to base64 data URIs.
// Best-effort: a fetch failure keeps the URL and the snapshot pipeline's
// load-or-error wait covers it.
func (s *PreviewService) inlineImages(card *models.CardData) {
	for _, p := range []*string{&card.MainImage, &card.BackImage, &card.BrandLogo} {
		if *p == "" || strings.HasPrefix(*p, "data:") {
			continue
		}
		uri, err := s.images.DataURI(*p)
		if err != nil {
			log.Printf("⚠️  Warning: failed to inline image %s: %v", *p, err)
			continue
		}
		*p = uri
	}
}
