package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// ThumbnailSize caps image thumbnails when the caller supplies no override.
	ThumbnailSize = 256
	// PosterSize caps the poster frame extracted from a video.
	PosterSize = 1024
)

// IsConvertible reports whether the primary asset may be resized and
// re-encoded. Everything else is stored byte for byte.
func IsConvertible(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png":
		return true
	}
	return false
}

// DecodeImage decodes jpeg, png, gif, bmp, tiff and webp, applying the EXIF
// orientation so derivatives come out upright.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Resize fits img inside a limit x limit box, keeping the aspect ratio. Images
// already inside the box are returned unchanged; nothing is enlarged.
func Resize(img image.Image, limit int) image.Image {
	if limit <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return img
	}
	return imaging.Fit(img, limit, limit, imaging.Lanczos)
}

// EncodeAs re-encodes img in the format named by contentType.
func EncodeAs(img image.Image, contentType string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch contentType {
	case "image/jpeg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90))
	case "image/png":
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, fmt.Errorf("cannot encode %s", contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", contentType, err)
	}
	return buf.Bytes(), nil
}

// Longest returns the longest side of img in pixels.
func Longest(img image.Image) int {
	b := img.Bounds()
	if b.Dx() > b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}
