package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// FrameExtractor pulls a representative still frame out of a video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, video []byte, ext string) (image.Image, error)
}

// FFmpegExtractor grabs the frame at one second using ffmpeg.
type FFmpegExtractor struct {
	Binary string
}

func NewFFmpegExtractor(binary string) *FFmpegExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegExtractor{Binary: binary}
}

func (f *FFmpegExtractor) ExtractFrame(ctx context.Context, video []byte, ext string) (image.Image, error) {
	tempDir, err := os.MkdirTemp("", "poster-extract-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp4"
	}
	in := filepath.Join(tempDir, "input."+ext)
	out := filepath.Join(tempDir, "poster.png")
	if err := os.WriteFile(in, video, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	if _, err := runCommandBytes(ctx, f.Binary,
		"-y",
		"-loglevel", "error",
		"-ss", "00:00:01",
		"-i", in,
		"-vframes", "1",
		out,
	); err != nil {
		return nil, fmt.Errorf("failed to extract poster frame: %w", err)
	}

	img, err := imaging.Open(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read poster frame: %w", err)
	}
	return img, nil
}
