package service

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// imageCacheLimit bounds the cache. Batches are one-shot, so the eviction
// policy is a full reset once the limit is hit.
const imageCacheLimit = 64

// ImageFetcher downloads remote images and caches them as data URIs. One
// instance is shared between the bulk orchestrator (which prefetches each
// row's images) and the preview renderer (which inlines them), so a prefetch
// actually saves the render-time round trip.
type ImageFetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]string // URL → data URI
}

// NewImageFetcher creates an ImageFetcher with an empty cache.
func NewImageFetcher() *ImageFetcher {
	return &ImageFetcher{
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  map[string]string{},
	}
}

// DataURI returns the image at url as a base64 data URI, serving from the
// cache when warm.
func (f *ImageFetcher) DataURI(url string) (string, error) {
	f.mu.Lock()
	if uri, ok := f.cache[url]; ok {
		f.mu.Unlock()
		return uri, nil
	}
	f.mu.Unlock()

	uri, err := f.fetch(url)
	if err != nil {
		return "", err
	}
	f.store(url, uri)
	return uri, nil
}

// Prefetch warms the cache for the given URLs, all in parallel. Errors count
// as done; a dead image URL must not block the batch.
func (f *ImageFetcher) Prefetch(urls ...string) {
	var wg sync.WaitGroup
	for _, url := range urls {
		if url == "" || !strings.HasPrefix(url, "http") {
			continue
		}
		f.mu.Lock()
		_, cached := f.cache[url]
		f.mu.Unlock()
		if cached {
			continue
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			uri, err := f.fetch(u)
			if err != nil {
				return
			}
			f.store(u, uri)
		}(url)
	}
	wg.Wait()
}

func (f *ImageFetcher) store(url, uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cache) >= imageCacheLimit {
		f.cache = map[string]string{}
	}
	f.cache[url] = uri
}

func (f *ImageFetcher) fetch(url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("unsupported image URL scheme")
	}
	resp, err := f.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
