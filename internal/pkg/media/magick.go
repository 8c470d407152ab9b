package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultJPEGQuality is the quality HEIC stills are re-encoded at.
const DefaultJPEGQuality = 70

// MagickConverter drives the ImageMagick CLI for formats the Go decoders
// cannot read: HEIC/HEIF stills become JPEG, vector and newer raster formats
// (SVG, AVIF) become PNG.
type MagickConverter struct {
	Binary  string
	Quality int
}

func NewMagickConverter(binary string, quality int) *MagickConverter {
	if binary == "" {
		binary = "magick"
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &MagickConverter{Binary: binary, Quality: quality}
}

func (m *MagickConverter) ToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	out, err := m.convert(ctx, data, ".heic", "output.jpg", "-quality", strconv.Itoa(m.Quality))
	if err != nil {
		return nil, fmt.Errorf("heic conversion failed: %w", err)
	}
	return out, nil
}

// ToPNG rasterises data into a PNG. contentType picks the input extension so
// ImageMagick selects the right delegate (SVG has no reliable magic bytes).
func (m *MagickConverter) ToPNG(ctx context.Context, data []byte, contentType string) ([]byte, error) {
	ext := ""
	if mt := mimetype.Lookup(contentType); mt != nil {
		ext = mt.Extension()
	}
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}
	out, err := m.convert(ctx, data, ext, "output.png", "-background", "none")
	if err != nil {
		return nil, fmt.Errorf("rasterise %s: %w", contentType, err)
	}
	return out, nil
}

func (m *MagickConverter) convert(ctx context.Context, data []byte, inExt, outName string, args ...string) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "magick-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	in := filepath.Join(tempDir, "input"+inExt)
	out := filepath.Join(tempDir, outName)
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write converter input: %w", err)
	}

	// Settings precede the input so they apply while it is read.
	cmdArgs := append(append(args, in), out)
	if _, err := runCommandBytes(ctx, m.Binary, cmdArgs...); err != nil {
		return nil, err
	}

	converted, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%s not created: %w", outName, err)
	}
	return converted, nil
}
