package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherlinC/livecuecard/models"
)

func previewCard() models.CardData {
	card := SampleCard()
	// Keep render offline: no remote images to inline.
	card.MainImage = ""
	card.BackImage = ""
	card.BrandLogo = ""
	return card
}

func TestRenderCardHTML(t *testing.T) {
	svc := NewPreviewService("../templates", nil)

	t.Run("portrait renders the card element", func(t *testing.T) {
		html, err := svc.RenderCardHTML(previewCard(), TemplatePortrait)
		require.NoError(t, err)

		assert.Contains(t, html, `id="card"`)
		assert.Contains(t, html, `data-template="portrait"`)
		assert.Contains(t, html, "毛领奢美人马甲")
		assert.Contains(t, html, "WEIQIN")
	})

	t.Run("landscape renders with its own layout", func(t *testing.T) {
		html, err := svc.RenderCardHTML(previewCard(), TemplateLandscape)
		require.NoError(t, err)
		assert.Contains(t, html, `data-template="landscape"`)
	})

	t.Run("market over live price shows the savings line", func(t *testing.T) {
		html, err := svc.RenderCardHTML(previewCard(), TemplatePortrait)
		require.NoError(t, err)
		assert.Contains(t, html, "节省 ¥188.00")
	})

	t.Run("empty size chart renders without error", func(t *testing.T) {
		card := previewCard()
		card.SizeChart = models.SizeChart{Headers: models.DefaultSizeChartHeaders(), Sizes: map[string]map[string]string{}}
		_, err := svc.RenderCardHTML(card, TemplatePortrait)
		assert.NoError(t, err)
	})

	t.Run("invalid template is rejected", func(t *testing.T) {
		_, err := svc.RenderCardHTML(previewCard(), "square")
		assert.Error(t, err)
	})
}

func TestBuildChartRows(t *testing.T) {
	t.Run("rows sort by size label with dashes for gaps", func(t *testing.T) {
		chart := models.SizeChart{
			Headers: []string{"尺码", "衣长", "胸围"},
			Sizes: map[string]map[string]string{
				"M": {"衣长": "62"},
				"S": {"衣长": "60", "胸围": "88"},
			},
		}
		rows := buildChartRows(chart)
		require.Len(t, rows, 2)
		assert.Equal(t, "M", rows[0].Size)
		assert.Equal(t, []string{"62", "-"}, rows[0].Values)
		assert.Equal(t, "S", rows[1].Size)
		assert.Equal(t, []string{"60", "88"}, rows[1].Values)
	})

	t.Run("zero entries yield zero rows", func(t *testing.T) {
		assert.Empty(t, buildChartRows(models.SizeChart{Headers: models.DefaultSizeChartHeaders()}))
	})
}
