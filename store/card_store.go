package store

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/SherlinC/livecuecard/models"
	"github.com/SherlinC/livecuecard/repository"
	"github.com/SherlinC/livecuecard/utils"
)

// DefaultHistoryName is used when a card is saved without a product title.
const DefaultHistoryName = "未命名手卡"

// CardStore is the single source of truth for the in-progress card, the
// generation status flags and the history list. It is created once at startup
// and passed to whoever needs it; there is no package-level instance.
//
// Every history mutation is written through to the repository synchronously.
// Persistence failures are logged and swallowed: the in-memory state stays
// authoritative for the session.
type CardStore struct {
	mu sync.RWMutex

	cardData     models.CardData
	isGenerating bool
	progress     int
	previewURL   string
	history      []models.CardHistoryEntry

	// previewOverride points the shared preview region at a bulk row instead of
	// the live draft. Owned exclusively by the bulk orchestrator while set.
	previewOverride *models.CardData

	repo repository.HistoryRepositoryInterface
}

// NewCardStore creates a store with the default empty card and the history
// loaded from the repository. A failed read yields an empty history.
func NewCardStore(repo repository.HistoryRepositoryInterface) *CardStore {
	s := &CardStore{
		cardData: models.DefaultCardData(),
		history:  []models.CardHistoryEntry{},
		repo:     repo,
	}
	if repo != nil {
		entries, err := repo.Load()
		if err != nil {
			log.Printf("⚠️  Failed to load history, starting empty: %v", err)
		} else {
			s.history = entries
			sortNewestFirst(s.history)
		}
	}
	return s
}

func sortNewestFirst(entries []models.CardHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})
}

// persist writes the history through to durable storage. Best-effort.
func (s *CardStore) persist() {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(s.history); err != nil {
		log.Printf("⚠️  Failed to persist history: %v", err)
	}
}

// CardData returns a copy of the live card.
func (s *CardStore) CardData() models.CardData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cardData
}

// UpdateCardData shallow-merges a partial record into the live card. No
// validation; the caller maintains invariants.
func (s *CardStore) UpdateCardData(patch models.CardPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patch.Apply(&s.cardData)
}

// UpdateBasicInfo replaces the platform set and product title.
func (s *CardStore) UpdateBasicInfo(platforms []string, productTitle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.Platforms = platforms
	s.cardData.ProductTitle = productTitle
}

// UpdateMaterials replaces the full materials list.
func (s *CardStore) UpdateMaterials(materials []models.MaterialItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.Materials = materials
}

// UpdateDesigns replaces the full design-feature list.
func (s *CardStore) UpdateDesigns(designs []models.DesignItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.Designs = designs
}

// UpdatePriceInfo replaces the price slice. Commission is clamped into [0,100].
func (s *CardStore) UpdatePriceInfo(marketPrice, livePrice float64, discount string, commission float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.MarketPrice = marketPrice
	s.cardData.LivePrice = livePrice
	s.cardData.Discount = discount
	s.cardData.Commission = utils.ClampCommission(commission)
}

// UpdateImages replaces the main and back product images.
func (s *CardStore) UpdateImages(mainImage, backImage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.MainImage = mainImage
	s.cardData.BackImage = backImage
}

// UpdateSizeInfo replaces the size chart and size recommendations. The chart's
// size keys are managed independently of the Sizes list.
func (s *CardStore) UpdateSizeInfo(chart models.SizeChart, recs []models.SizeRecommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.SizeChart = chart
	s.cardData.SizeRecommendations = recs
}

// UpdateColors replaces the color list and keeps the legacy single Color field
// synchronized with Colors[0].
func (s *CardStore) UpdateColors(colors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.Colors = colors
	if len(colors) > 0 {
		s.cardData.Color = colors[0]
	} else {
		s.cardData.Color = ""
	}
}

// UpdateSizes replaces the size label list, normalizing pure-alphabetic labels
// to uppercase and deduplicating case-insensitively.
func (s *CardStore) UpdateSizes(sizes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.Sizes = utils.NormalizeSizes(sizes)
}

// UpdateBenefits replaces the benefits slice along with activity time, shipping
// info and the livestream command.
func (s *CardStore) UpdateBenefits(benefits []string, activityTime string, shipping models.ShippingInfo, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData.Benefits = benefits
	s.cardData.ActivityTime = activityTime
	s.cardData.ShippingInfo = shipping
	s.cardData.Command = command
}

// ResetCardData replaces the live card with the default empty record. History
// is untouched.
func (s *CardStore) ResetCardData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardData = models.DefaultCardData()
}

// TryBeginGenerating claims the generation slot, check and set under one lock
// hold. Returns false when a run is already in flight. Release by calling
// SetGenerating(false).
func (s *CardStore) TryBeginGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isGenerating {
		return false
	}
	s.isGenerating = true
	return true
}

// SetGenerating flips the generation-in-progress flag.
func (s *CardStore) SetGenerating(generating bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isGenerating = generating
	if !generating {
		s.progress = 0
	}
}

// IsGenerating reports whether an export is in flight.
func (s *CardStore) IsGenerating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isGenerating
}

// SetProgress records the bulk percentage-complete counter.
func (s *CardStore) SetProgress(progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = progress
}

// Progress returns the bulk percentage-complete counter.
func (s *CardStore) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// SetPreviewURL records the last rendered preview image (data URL). Pass "" to
// clear it.
func (s *CardStore) SetPreviewURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewURL = url
}

// PreviewURL returns the last rendered preview image, or "".
func (s *CardStore) PreviewURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previewURL
}

// SetPreviewOverride points the shared preview region at the given card instead
// of the live draft. Used by the bulk orchestrator, one row at a time.
func (s *CardStore) SetPreviewOverride(card *models.CardData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewOverride = card
}

// ClearPreviewOverride hands the preview region back to the live draft.
func (s *CardStore) ClearPreviewOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewOverride = nil
}

// PreviewCard returns the card the preview region should render: the bulk
// override when one is set, otherwise the live draft.
func (s *CardStore) PreviewCard() models.CardData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.previewOverride != nil {
		return *s.previewOverride
	}
	return s.cardData
}

// History returns a copy of the history list, newest first.
func (s *CardStore) History() []models.CardHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CardHistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// AddHistoryEntry prepends an entry and writes through.
func (s *CardStore) AddHistoryEntry(entry models.CardHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]models.CardHistoryEntry{entry}, s.history...)
	sortNewestFirst(s.history)
	s.persist()
}

// RemoveHistoryEntry deletes the entry with the given id, if present, and
// writes through.
func (s *CardStore) RemoveHistoryEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.history[:0]
	for _, e := range s.history {
		if e.ID != id {
			next = append(next, e)
		}
	}
	s.history = next
	s.persist()
}

// UpsertHistoryByName saves the card under the given name, overwriting any
// existing entry with that name. An empty name falls back to the default
// placeholder. The list stays sorted newest-first.
func (s *CardStore) UpsertHistoryByName(name string, data models.CardData, previewURL string) {
	if name == "" {
		name = DefaultHistoryName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := models.CardHistoryEntry{
		ID:         name,
		Name:       name,
		CreatedAt:  time.Now().UnixMilli(),
		Data:       data,
		PreviewURL: previewURL,
	}
	replaced := false
	for i, e := range s.history {
		key := e.Name
		if key == "" {
			key = e.Data.ProductTitle
		}
		if key == name {
			s.history[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		s.history = append([]models.CardHistoryEntry{entry}, s.history...)
	}
	sortNewestFirst(s.history)
	s.persist()
}
