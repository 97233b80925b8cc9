package service

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingImageServer serves a fixed payload and counts requests.
func countingImageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-payload"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImageFetcher(t *testing.T) {
	t.Run("data URI is cached after the first fetch", func(t *testing.T) {
		var hits int32
		srv := countingImageServer(t, &hits)
		f := NewImageFetcher()

		want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-payload"))
		for i := 0; i < 3; i++ {
			uri, err := f.DataURI(srv.URL + "/main.png")
			require.NoError(t, err)
			assert.Equal(t, want, uri)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("prefetch warms the cache the renderer reads", func(t *testing.T) {
		var hits int32
		srv := countingImageServer(t, &hits)
		f := NewImageFetcher()

		f.Prefetch(srv.URL+"/main.png", "", "not-a-url")
		require.Equal(t, int32(1), atomic.LoadInt32(&hits))

		uri, err := f.DataURI(srv.URL + "/main.png")
		require.NoError(t, err)
		assert.Contains(t, uri, "data:image/png;base64,")
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "render-time inline must hit the cache, not the network")
	})

	t.Run("prefetch skips already-cached URLs", func(t *testing.T) {
		var hits int32
		srv := countingImageServer(t, &hits)
		f := NewImageFetcher()

		f.Prefetch(srv.URL + "/a.png")
		f.Prefetch(srv.URL + "/a.png")
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("non-http scheme errors", func(t *testing.T) {
		f := NewImageFetcher()
		_, err := f.DataURI("file:///etc/passwd")
		assert.Error(t, err)
	})

	t.Run("non-200 response errors and is not cached", func(t *testing.T) {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()
		f := NewImageFetcher()

		_, err := f.DataURI(srv.URL + "/gone.png")
		assert.Error(t, err)
		_, err = f.DataURI(srv.URL + "/gone.png")
		assert.Error(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})
}

func TestSharedFetcherInliningAfterPrefetch(t *testing.T) {
	var hits int32
	srv := countingImageServer(t, &hits)
	fetcher := NewImageFetcher()
	preview := NewPreviewService("../templates", fetcher)

	// Bulk-loop order: prefetch the row's images, then render it.
	fetcher.Prefetch(srv.URL + "/main.png")

	card := SampleCard()
	card.MainImage = srv.URL + "/main.png"
	card.BackImage = ""
	card.BrandLogo = ""
	html, err := preview.RenderCardHTML(card, TemplatePortrait)
	require.NoError(t, err)

	assert.Contains(t, html, "data:image/png;base64,")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "inlining must reuse the prefetched bytes")
}
