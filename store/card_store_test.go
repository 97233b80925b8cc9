package store

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SherlinC/livecuecard/models"
)

// fakeRepo records saves in memory so persistence can be asserted without a
// database file.
type fakeRepo struct {
	entries []models.CardHistoryEntry
	loadErr error
	saves   int
}

func (f *fakeRepo) Load() ([]models.CardHistoryEntry, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.entries, nil
}

func (f *fakeRepo) Save(entries []models.CardHistoryEntry) error {
	f.entries = entries
	f.saves++
	return nil
}

func (f *fakeRepo) Close() error { return nil }

func TestUpsertHistoryByName(t *testing.T) {
	t.Run("same name replaces instead of appending", func(t *testing.T) {
		repo := &fakeRepo{}
		s := NewCardStore(repo)

		card := models.DefaultCardData()
		card.ProductTitle = "马甲"
		s.UpsertHistoryByName("马甲", card, "")
		require.Len(t, s.History(), 1)

		card.LivePrice = 914
		s.UpsertHistoryByName("马甲", card, "")

		history := s.History()
		require.Len(t, history, 1)
		assert.Equal(t, 914.0, history[0].Data.LivePrice)
		assert.Equal(t, 2, repo.saves)
	})

	t.Run("different names keep separate entries", func(t *testing.T) {
		s := NewCardStore(&fakeRepo{})
		s.UpsertHistoryByName("A", models.DefaultCardData(), "")
		s.UpsertHistoryByName("B", models.DefaultCardData(), "")
		assert.Len(t, s.History(), 2)
	})

	t.Run("empty name falls back to placeholder", func(t *testing.T) {
		s := NewCardStore(&fakeRepo{})
		s.UpsertHistoryByName("", models.DefaultCardData(), "")
		history := s.History()
		require.Len(t, history, 1)
		assert.Equal(t, DefaultHistoryName, history[0].Name)
	})

	t.Run("legacy entries without a name match by product title", func(t *testing.T) {
		repo := &fakeRepo{entries: []models.CardHistoryEntry{
			{ID: "old", CreatedAt: 1, Data: models.CardData{ProductTitle: "马甲"}},
		}}
		s := NewCardStore(repo)

		card := models.DefaultCardData()
		card.ProductTitle = "马甲"
		s.UpsertHistoryByName("马甲", card, "")
		assert.Len(t, s.History(), 1)
	})
}

func TestHistoryLoadAndRemove(t *testing.T) {
	t.Run("load failure starts empty", func(t *testing.T) {
		s := NewCardStore(&fakeRepo{loadErr: assert.AnError})
		assert.Empty(t, s.History())
	})

	t.Run("loaded history sorts newest first", func(t *testing.T) {
		repo := &fakeRepo{entries: []models.CardHistoryEntry{
			{ID: "a", Name: "a", CreatedAt: 10},
			{ID: "b", Name: "b", CreatedAt: 30},
			{ID: "c", Name: "c", CreatedAt: 20},
		}}
		s := NewCardStore(repo)
		history := s.History()
		require.Len(t, history, 3)
		assert.Equal(t, "b", history[0].ID)
		assert.Equal(t, "c", history[1].ID)
		assert.Equal(t, "a", history[2].ID)
	})

	t.Run("remove by id persists", func(t *testing.T) {
		repo := &fakeRepo{entries: []models.CardHistoryEntry{
			{ID: "a", Name: "a", CreatedAt: 10},
			{ID: "b", Name: "b", CreatedAt: 20},
		}}
		s := NewCardStore(repo)
		s.RemoveHistoryEntry("a")

		history := s.History()
		require.Len(t, history, 1)
		assert.Equal(t, "b", history[0].ID)
		assert.Equal(t, 1, repo.saves)
	})
}

func TestSliceUpdaters(t *testing.T) {
	t.Run("colors sync the single color field", func(t *testing.T) {
		s := NewCardStore(nil)
		s.UpdateColors([]string{"黑色", "白色"})
		assert.Equal(t, "黑色", s.CardData().Color)

		s.UpdateColors(nil)
		assert.Equal(t, "", s.CardData().Color)
	})

	t.Run("sizes normalize and dedupe", func(t *testing.T) {
		s := NewCardStore(nil)
		s.UpdateSizes([]string{"s", "S", "m", "均码"})
		assert.Equal(t, []string{"S", "M", "均码"}, s.CardData().Sizes)
	})

	t.Run("commission clamps", func(t *testing.T) {
		s := NewCardStore(nil)
		s.UpdatePriceInfo(100, 80, "", 150)
		assert.Equal(t, 100.0, s.CardData().Commission)

		s.UpdatePriceInfo(100, 80, "", -3)
		assert.Equal(t, 0.0, s.CardData().Commission)
	})

	t.Run("reset restores defaults but keeps history", func(t *testing.T) {
		s := NewCardStore(&fakeRepo{})
		s.UpdateBasicInfo([]string{"淘宝"}, "某商品")
		s.UpsertHistoryByName("某商品", s.CardData(), "")

		s.ResetCardData()
		assert.Equal(t, models.DefaultCardData(), s.CardData())
		assert.Len(t, s.History(), 1)
	})
}

func TestUpdateCardDataMerge(t *testing.T) {
	s := NewCardStore(nil)
	title := "外套"
	s.UpdateCardData(models.CardPatch{ProductTitle: &title})

	card := s.CardData()
	assert.Equal(t, "外套", card.ProductTitle)
	// Untouched fields keep their defaults.
	assert.Equal(t, models.DefaultCardData().Platforms, card.Platforms)

	// Re-applying the same patch is a no-op.
	s.UpdateCardData(models.CardPatch{ProductTitle: &title})
	assert.Equal(t, card, s.CardData())
}

func TestPreviewOverride(t *testing.T) {
	s := NewCardStore(nil)
	s.UpdateBasicInfo(nil, "草稿")

	row := models.DefaultCardData()
	row.ProductTitle = "批量行"
	s.SetPreviewOverride(&row)
	assert.Equal(t, "批量行", s.PreviewCard().ProductTitle)

	s.ClearPreviewOverride()
	assert.Equal(t, "草稿", s.PreviewCard().ProductTitle)
}

func TestTryBeginGenerating(t *testing.T) {
	t.Run("second claim fails until released", func(t *testing.T) {
		s := NewCardStore(nil)
		require.True(t, s.TryBeginGenerating())
		assert.False(t, s.TryBeginGenerating())

		s.SetGenerating(false)
		assert.True(t, s.TryBeginGenerating())
	})

	t.Run("exactly one concurrent claimer wins", func(t *testing.T) {
		s := NewCardStore(nil)

		const claimers = 16
		var wg sync.WaitGroup
		var wins int32
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.TryBeginGenerating() {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
		assert.True(t, s.IsGenerating())
	})
}

func TestGeneratingFlag(t *testing.T) {
	s := NewCardStore(nil)
	s.SetGenerating(true)
	s.SetProgress(60)
	assert.True(t, s.IsGenerating())
	assert.Equal(t, 60, s.Progress())

	s.SetGenerating(false)
	assert.False(t, s.IsGenerating())
	assert.Equal(t, 0, s.Progress())
}
