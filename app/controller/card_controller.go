package controller

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/SherlinC/livecuecard/models"
	"github.com/SherlinC/livecuecard/service"
	"github.com/SherlinC/livecuecard/store"
	"github.com/SherlinC/livecuecard/utils"
)

// CardController handles HTTP requests for the live card draft: reading it,
// slice updates, reset, status and single-card export.
type CardController struct {
	store    *store.CardStore
	snapshot service.SnapshotServiceInterface
}

// NewCardController creates a new CardController.
func NewCardController(cardStore *store.CardStore, snapshot service.SnapshotServiceInterface) *CardController {
	return &CardController{
		store:    cardStore,
		snapshot: snapshot,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// GetCard handles GET /admin/card
func (c *CardController) GetCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, c.store.CardData())
}

// PatchCard handles POST /admin/card with a shallow-merge partial record.
func (c *CardController) PatchCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var patch models.CardPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	c.store.UpdateCardData(patch)
	writeJSON(w, http.StatusOK, c.store.CardData())
}

// UpdateSlice handles PUT /admin/card/{slice}. Each slice endpoint takes the
// full new value for its slice and replaces it, never an incremental patch.
func (c *CardController) UpdateSlice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	slice := strings.TrimPrefix(r.URL.Path, "/admin/card/")

	switch slice {
	case "basic":
		var body struct {
			Platforms    []string `json:"platforms"`
			ProductTitle string   `json:"productTitle"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateBasicInfo(body.Platforms, body.ProductTitle)

	case "materials":
		var body struct {
			Materials []models.MaterialItem `json:"materials"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateMaterials(body.Materials)

	case "designs":
		var body struct {
			Designs []models.DesignItem `json:"designs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateDesigns(body.Designs)

	case "price":
		var body struct {
			MarketPrice float64  `json:"marketPrice"`
			LivePrice   *float64 `json:"livePrice"`
			Discount    string   `json:"discount"`
			ZhDiscount  *float64 `json:"zhDiscount"`
			Commission  float64  `json:"commission"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		// A Chinese discount rate (e.g. 8.8 折) is converted into the "% OFF"
		// annotation unless an explicit annotation was sent with it.
		if body.Discount == "" && body.ZhDiscount != nil {
			body.Discount = utils.ZhDiscountText(*body.ZhDiscount)
		}
		// When no explicit live price is sent, derive one from the discount
		// annotation; an unrecognizable annotation leaves it unchanged.
		live := c.store.CardData().LivePrice
		if body.LivePrice != nil {
			live = *body.LivePrice
		} else if computed, ok := utils.ComputeLiveFromDiscount(body.MarketPrice, body.Discount); ok {
			live = computed
		}
		c.store.UpdatePriceInfo(body.MarketPrice, live, body.Discount, body.Commission)

	case "images":
		var body struct {
			MainImage string `json:"mainImage"`
			BackImage string `json:"backImage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateImages(body.MainImage, body.BackImage)

	case "size-info":
		var body struct {
			SizeChart           models.SizeChart            `json:"sizeChart"`
			SizeRecommendations []models.SizeRecommendation `json:"sizeRecommendations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if body.SizeChart.Sizes == nil {
			body.SizeChart.Sizes = map[string]map[string]string{}
		}
		c.store.UpdateSizeInfo(body.SizeChart, body.SizeRecommendations)

	case "colors":
		var body struct {
			Colors []string `json:"colors"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateColors(body.Colors)

	case "sizes":
		var body struct {
			Sizes []string `json:"sizes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateSizes(body.Sizes)

	case "benefits":
		var body struct {
			Benefits     []string            `json:"benefits"`
			ActivityTime string              `json:"activityTime"`
			ShippingInfo models.ShippingInfo `json:"shippingInfo"`
			Command      string              `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		c.store.UpdateBenefits(body.Benefits, body.ActivityTime, body.ShippingInfo, body.Command)

	default:
		http.Error(w, fmt.Sprintf("Unknown card slice: %s", slice), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, c.store.CardData())
}

// ResetCard handles POST /admin/card/reset
func (c *CardController) ResetCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	c.store.ResetCardData()
	writeJSON(w, http.StatusOK, c.store.CardData())
}

// Status handles GET /admin/card/status
func (c *CardController) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generating": c.store.IsGenerating(),
		"progress":   c.store.Progress(),
		"previewUrl": c.store.PreviewURL(),
	})
}

// Export handles POST /admin/card/export?format=png|pdf&template=portrait|landscape
//
// PNG is the default; when the PNG encode comes out implausibly small it is
// automatically substituted with a PDF carrying the same raster at native
// pixel dimensions.
func (c *CardController) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "pdf" {
		http.Error(w, "Invalid format. Valid formats: png, pdf", http.StatusBadRequest)
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
	// Claim the generation slot atomically so an export cannot slip in while
	// a bulk run owns the preview region.
	if !c.store.TryBeginGenerating() {
		http.Error(w, "Another export is already in progress", http.StatusConflict)
		return
	}
	defer c.store.SetGenerating(false)

	result := c.snapshot.CaptureCardOnce(r.Context(), templateType)
	if !result.Success {
		log.Printf("❌ Export: snapshot failed: %v", result.Err)
		http.Error(w, fmt.Sprintf("Failed to generate card image: %v", result.Err), http.StatusInternalServerError)
		return
	}
	c.store.SetPreviewURL(service.PNGDataURL(result.PNG))

	stamp := time.Now().UnixMilli()
	if format == "png" && len(result.PNG) >= 1000 {
		filename := fmt.Sprintf("直播手卡_%d.png", stamp)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.PNG); err != nil {
			log.Printf("❌ Export: error writing PNG response: %v", err)
		}
		return
	}

	pdfData, err := c.snapshot.PDFFromPNG(result.PNG)
	if err != nil {
		log.Printf("❌ Export: error generating PDF: %v", err)
		http.Error(w, fmt.Sprintf("Failed to generate PDF: %v", err), http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("直播手卡_%d.pdf", stamp)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdfData); err != nil {
		log.Printf("❌ Export: error writing PDF response: %v", err)
	}
}

// Save handles POST /admin/card/save: snapshots the preview (best-effort) and
// upserts the card into history under its product title.
func (c *CardController) Save(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	card := c.store.CardData()
	name := strings.TrimSpace(card.ProductTitle)
	if name == "" {
		name = store.DefaultHistoryName
	}

	preview := ""
	result := c.snapshot.CaptureCardOnce(r.Context(), service.TemplatePortrait)
	if result.Success {
		thumb, err := service.MakePreviewThumbnail(result.PNG)
		if err != nil {
			log.Printf("⚠️  Save: failed to build preview thumbnail: %v", err)
		} else {
			preview = thumb
		}
	} else {
		log.Printf("⚠️  Save: preview snapshot failed, saving without preview: %v", result.Err)
	}

	c.store.UpsertHistoryByName(name, card, preview)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "saved",
		"name":   name,
	})
}
