package models

// MaterialItem is one ordered material line on a card.
type MaterialItem struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight,omitempty"`
}

// DesignItem is one ordered design-feature line on a card.
type DesignItem struct {
	Text string `json:"text"`
}

// SizeChart maps size labels to measurement values, column order given by Headers.
// The first header is the size-label column itself.
type SizeChart struct {
	Headers []string                     `json:"headers"`
	Sizes   map[string]map[string]string `json:"sizes"`
}

// SizeRecommendation maps a height/weight combination to a recommended size label.
type SizeRecommendation struct {
	Height          int    `json:"height"`
	Weight          int    `json:"weight"`
	RecommendedSize string `json:"recommendedSize"`
}

// Shipping type values.
const (
	ShippingPresale = "presale"
	ShippingInstock = "instock"
)

// ShippingInfo describes how a product ships.
type ShippingInfo struct {
	Type         string `json:"type"` // presale | instock
	ShippingTime string `json:"shippingTime"`
	ReturnPolicy string `json:"returnPolicy"`
	Insurance    bool   `json:"insurance"`
}

// CardData is one product's livestream sales card. It is an identity-free value
// object: identity comes from context (the live draft, a history entry name, or
// a row index in a bulk batch).
type CardData struct {
	// Basic info
	Platforms    []string       `json:"platforms"`
	ProductTitle string         `json:"productTitle"`
	BrandName    string         `json:"brandName"`
	BrandLogo    string         `json:"brandLogo"`
	Materials    []MaterialItem `json:"materials"`
	Designs      []DesignItem   `json:"designs"`

	// Price info
	MarketPrice float64 `json:"marketPrice"`
	LivePrice   float64 `json:"livePrice"`
	Discount    string  `json:"discount"` // display text, not authoritative
	Commission  float64 `json:"commission"`

	// Images
	MainImage string `json:"mainImage"`
	BackImage string `json:"backImage,omitempty"`

	// Size info
	SizeChart           SizeChart            `json:"sizeChart"`
	SizeRecommendations []SizeRecommendation `json:"sizeRecommendations"`

	// Benefits / activity
	Benefits     []string     `json:"benefits"`
	ActivityTime string       `json:"activityTime"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
	Command      string       `json:"command"`

	// Other info. Color mirrors Colors[0] for backward compatibility; the store
	// keeps them synchronized on every colors mutation.
	Color     string            `json:"color"`
	Colors    []string          `json:"colors"`
	Sizes     []string          `json:"sizes"`
	SizeNotes map[string]string `json:"sizeNotes,omitempty"` // optional free-text note per size label
}

// DefaultSizeChartHeaders is the column set used when a card has no explicit chart.
func DefaultSizeChartHeaders() []string {
	return []string{"尺码", "衣长", "胸围(外/拉伸)", "肩宽"}
}

// DefaultCardData returns the all-empty card a new draft starts from.
func DefaultCardData() CardData {
	return CardData{
		Platforms: []string{"小红书"},
		Materials: []MaterialItem{},
		Designs:   []DesignItem{},
		SizeChart: SizeChart{
			Headers: DefaultSizeChartHeaders(),
			Sizes:   map[string]map[string]string{},
		},
		SizeRecommendations: []SizeRecommendation{},
		Benefits:            []string{},
		ShippingInfo: ShippingInfo{
			Type: ShippingPresale,
		},
		Colors: []string{},
		Sizes:  []string{},
	}
}

// CardPatch is a shallow-merge partial update of CardData. Nil fields are left
// untouched; non-nil fields replace the whole slice of state they cover.
type CardPatch struct {
	Platforms           *[]string             `json:"platforms,omitempty"`
	ProductTitle        *string               `json:"productTitle,omitempty"`
	BrandName           *string               `json:"brandName,omitempty"`
	BrandLogo           *string               `json:"brandLogo,omitempty"`
	Materials           *[]MaterialItem       `json:"materials,omitempty"`
	Designs             *[]DesignItem         `json:"designs,omitempty"`
	MarketPrice         *float64              `json:"marketPrice,omitempty"`
	LivePrice           *float64              `json:"livePrice,omitempty"`
	Discount            *string               `json:"discount,omitempty"`
	Commission          *float64              `json:"commission,omitempty"`
	MainImage           *string               `json:"mainImage,omitempty"`
	BackImage           *string               `json:"backImage,omitempty"`
	SizeChart           *SizeChart            `json:"sizeChart,omitempty"`
	SizeRecommendations *[]SizeRecommendation `json:"sizeRecommendations,omitempty"`
	Benefits            *[]string             `json:"benefits,omitempty"`
	ActivityTime        *string               `json:"activityTime,omitempty"`
	ShippingInfo        *ShippingInfo         `json:"shippingInfo,omitempty"`
	Command             *string               `json:"command,omitempty"`
	Color               *string               `json:"color,omitempty"`
	Colors              *[]string             `json:"colors,omitempty"`
	Sizes               *[]string             `json:"sizes,omitempty"`
	SizeNotes           *map[string]string    `json:"sizeNotes,omitempty"`
}

// Apply merges the patch into the card. No validation is performed; callers are
// responsible for invariant maintenance (e.g. keeping Color and Colors[0] in sync).
func (p *CardPatch) Apply(c *CardData) {
	if p.Platforms != nil {
		c.Platforms = *p.Platforms
	}
	if p.ProductTitle != nil {
		c.ProductTitle = *p.ProductTitle
	}
	if p.BrandName != nil {
		c.BrandName = *p.BrandName
	}
	if p.BrandLogo != nil {
		c.BrandLogo = *p.BrandLogo
	}
	if p.Materials != nil {
		c.Materials = *p.Materials
	}
	if p.Designs != nil {
		c.Designs = *p.Designs
	}
	if p.MarketPrice != nil {
		c.MarketPrice = *p.MarketPrice
	}
	if p.LivePrice != nil {
		c.LivePrice = *p.LivePrice
	}
	if p.Discount != nil {
		c.Discount = *p.Discount
	}
	if p.Commission != nil {
		c.Commission = *p.Commission
	}
	if p.MainImage != nil {
		c.MainImage = *p.MainImage
	}
	if p.BackImage != nil {
		c.BackImage = *p.BackImage
	}
	if p.SizeChart != nil {
		c.SizeChart = *p.SizeChart
	}
	if p.SizeRecommendations != nil {
		c.SizeRecommendations = *p.SizeRecommendations
	}
	if p.Benefits != nil {
		c.Benefits = *p.Benefits
	}
	if p.ActivityTime != nil {
		c.ActivityTime = *p.ActivityTime
	}
	if p.ShippingInfo != nil {
		c.ShippingInfo = *p.ShippingInfo
	}
	if p.Command != nil {
		c.Command = *p.Command
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Colors != nil {
		c.Colors = *p.Colors
	}
	if p.Sizes != nil {
		c.Sizes = *p.Sizes
	}
	if p.SizeNotes != nil {
		c.SizeNotes = *p.SizeNotes
	}
}
