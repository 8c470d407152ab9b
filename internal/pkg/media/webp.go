package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// WebPEncoder turns a decoded image into WebP bytes.
type WebPEncoder interface {
	Encode(ctx context.Context, img image.Image, preserveAlpha bool) ([]byte, error)
}

// CWebPEncoder shells out to the cwebp CLI (no CGO required).
type CWebPEncoder struct {
	Binary  string
	Quality int
}

func NewCWebPEncoder(binary string, quality int) *CWebPEncoder {
	if binary == "" {
		binary = "cwebp"
	}
	if quality <= 0 || quality > 100 {
		quality = 75
	}
	return &CWebPEncoder{Binary: binary, Quality: quality}
}

func (e *CWebPEncoder) Encode(ctx context.Context, img image.Image, preserveAlpha bool) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "webp-encode-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	in := filepath.Join(tempDir, "input.png")
	out := filepath.Join(tempDir, "output.webp")
	if err := imaging.Save(img, in); err != nil {
		return nil, fmt.Errorf("failed to write encoder input: %w", err)
	}

	args := []string{"-quiet", "-q", strconv.Itoa(e.Quality)}
	if preserveAlpha {
		args = append(args, "-alpha_q", "100")
	} else {
		args = append(args, "-noalpha")
	}
	args = append(args, in, "-o", out)

	if _, err := runCommandBytes(ctx, e.Binary, args...); err != nil {
		return nil, fmt.Errorf("cwebp conversion failed: %w", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("webp file not created: %w", err)
	}
	return data, nil
}
