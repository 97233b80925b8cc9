package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyPNG encodes a 100x100 image with per-pixel noise so the result is large
// enough to pass the size check, with the center pixel set explicitly.
func noisyPNG(t *testing.T, center color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x*7 + y*13) % 256),
				G: uint8((x*11 + y*3) % 256),
				B: uint8((x*5 + y*17) % 256),
				A: 255,
			})
		}
	}
	img.SetNRGBA(50, 50, center)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.Greater(t, buf.Len(), minPlausiblePNG)
	return buf.Bytes()
}

func TestIsBlank(t *testing.T) {
	svc := NewSnapshotService("http://localhost:8080")

	t.Run("implausibly small data is blank", func(t *testing.T) {
		assert.True(t, svc.isBlank([]byte("tiny")))
		assert.True(t, svc.isBlank(nil))
	})

	t.Run("undecodable data is blank", func(t *testing.T) {
		big := bytes.Repeat([]byte("x"), 2*minPlausiblePNG)
		assert.True(t, svc.isBlank(big))
	})

	t.Run("opaque near-white center pixel is blank", func(t *testing.T) {
		data := noisyPNG(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		assert.True(t, svc.isBlank(data))
	})

	t.Run("colored center pixel is not blank", func(t *testing.T) {
		data := noisyPNG(t, color.NRGBA{R: 30, G: 144, B: 255, A: 255})
		assert.False(t, svc.isBlank(data))
	})

	t.Run("transparent white center pixel is not blank", func(t *testing.T) {
		data := noisyPNG(t, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
		assert.False(t, svc.isBlank(data))
	})
}

func TestPDFFromPNG(t *testing.T) {
	svc := NewSnapshotService("http://localhost:8080")

	t.Run("wraps the image in a single-page PDF", func(t *testing.T) {
		data := noisyPNG(t, color.NRGBA{A: 255})
		pdf, err := svc.PDFFromPNG(data)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	})

	t.Run("non-PNG input errors", func(t *testing.T) {
		_, err := svc.PDFFromPNG([]byte("not a png"))
		assert.Error(t, err)
	})
}

func TestDataURLToBytes(t *testing.T) {
	t.Run("valid data URL round-trips", func(t *testing.T) {
		raw := []byte{0x89, 0x50, 0x4e, 0x47}
		url := PNGDataURL(raw)

		got, mime := DataURLToBytes(url)
		assert.Equal(t, raw, got)
		assert.Equal(t, "image/png", mime)
	})

	t.Run("malformed inputs yield nil", func(t *testing.T) {
		for _, s := range []string{
			"",
			"data:image/png;base64",
			"http://example.com/a.png",
			"data:image/png,plain-not-base64-marker",
			"data:image/png;base64,!!!not-base64!!!",
		} {
			got, mime := DataURLToBytes(s)
			assert.Nil(t, got, "input %q", s)
			assert.Equal(t, "", mime, "input %q", s)
		}
	})
}
