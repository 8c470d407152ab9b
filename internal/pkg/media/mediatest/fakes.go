// Package mediatest provides in-process stand-ins for the external encoders
// so pipelines can be tested without cwebp, ffmpeg or magick installed.
package mediatest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"sync"
)

// Encoder "encodes" to PNG and records every call. Decode its output with
// image.DecodeConfig to check derivative dimensions.
type Encoder struct {
	mu    sync.Mutex
	Calls []EncodeCall
	Err   error
	// Before runs at the start of every Encode.
	Before func()
}

type EncodeCall struct {
	Width, Height int
	PreserveAlpha bool
}

func (e *Encoder) Encode(ctx context.Context, img image.Image, preserveAlpha bool) ([]byte, error) {
	if e.Before != nil {
		e.Before()
	}
	e.mu.Lock()
	b := img.Bounds()
	e.Calls = append(e.Calls, EncodeCall{Width: b.Dx(), Height: b.Dy(), PreserveAlpha: preserveAlpha})
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extractor returns a solid frame of the configured size.
type Extractor struct {
	Width, Height int
	Err           error
}

func (x *Extractor) ExtractFrame(ctx context.Context, video []byte, ext string) (image.Image, error) {
	if x.Err != nil {
		return nil, x.Err
	}
	if len(video) == 0 {
		return nil, errors.New("empty video")
	}
	return SolidImage(x.Width, x.Height, color.RGBA{R: 40, G: 90, B: 160, A: 255}), nil
}

// Rasterizer renders any input as a transparent PNG of the configured size.
type Rasterizer struct {
	Width, Height int
	Err           error

	mu    sync.Mutex
	Types []string
}

func (r *Rasterizer) ToPNG(ctx context.Context, data []byte, contentType string) ([]byte, error) {
	r.mu.Lock()
	r.Types = append(r.Types, contentType)
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, SolidImage(r.Width, r.Height, color.NRGBA{R: 200, A: 120})); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SolidImage builds a w x h image filled with c.
func SolidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// Dimensions decodes the header of an encoded image.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
