package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	// History previews are stored inside the bolt file as data URLs, so they
	// are downscaled and re-encoded as JPEG to keep the store small.
	thumbMaxDim  = 300
	thumbQuality = 60
)

// MakePreviewThumbnail downscales a rendered card PNG to a thumbnail and
// returns it as a JPEG data URL.
func MakePreviewThumbnail(imageData []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > thumbMaxDim || bounds.Dy() > thumbMaxDim {
		img = imaging.Fit(img, thumbMaxDim, thumbMaxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
