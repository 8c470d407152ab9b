package media

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrUnsupportedFormat marks an image no decoder or rasteriser could read.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Rasterizer turns formats the Go decoders cannot read into PNG;
// MagickConverter is one.
type Rasterizer interface {
	ToPNG(ctx context.Context, data []byte, contentType string) ([]byte, error)
}

// Processor produces the derivatives of one upload. All methods are
// stateless: bytes in, bytes out.
type Processor struct {
	webp          WebPEncoder
	frames        FrameExtractor
	raster        Rasterizer
	thumbnailSize int
	posterSize    int
}

type ProcessorOption func(*Processor)

func WithThumbnailSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.thumbnailSize = n
		}
	}
}

func WithPosterSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.posterSize = n
		}
	}
}

// WithRasterizer enables thumbnails for SVG, AVIF and other formats the
// built-in decoders reject.
func WithRasterizer(r Rasterizer) ProcessorOption {
	return func(p *Processor) {
		p.raster = r
	}
}

func NewProcessor(webp WebPEncoder, frames FrameExtractor, opts ...ProcessorOption) *Processor {
	p := &Processor{
		webp:          webp,
		frames:        frames,
		thumbnailSize: ThumbnailSize,
		posterSize:    PosterSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Thumbnail renders an image thumbnail capped at limit (the default cap when
// limit <= 0). Transparency survives for PNG sources and rasterised ones.
// Images nothing can read fail with ErrUnsupportedFormat.
func (p *Processor) Thumbnail(ctx context.Context, data []byte, contentType string, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = p.thumbnailSize
	}
	img, rasterised, err := p.decodeAny(ctx, data, contentType)
	if err != nil {
		return nil, err
	}
	out, err := p.webp.Encode(ctx, Resize(img, limit), contentType == "image/png" || rasterised)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	return out, nil
}

func (p *Processor) decodeAny(ctx context.Context, data []byte, contentType string) (image.Image, bool, error) {
	img, err := DecodeImage(data)
	if err == nil {
		return img, false, nil
	}
	if !errors.Is(err, image.ErrFormat) {
		return nil, false, err
	}
	if p.raster == nil {
		return nil, false, fmt.Errorf("%s: %w", contentType, ErrUnsupportedFormat)
	}
	png, rerr := p.raster.ToPNG(ctx, data, contentType)
	if rerr != nil {
		return nil, false, fmt.Errorf("%s: %w: %w", contentType, ErrUnsupportedFormat, rerr)
	}
	img, err = DecodeImage(png)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w: %w", contentType, ErrUnsupportedFormat, err)
	}
	return img, true, nil
}

// Poster extracts a frame from a video and renders it as an opaque WebP.
func (p *Processor) Poster(ctx context.Context, video []byte, ext string) ([]byte, error) {
	frame, err := p.frames.ExtractFrame(ctx, video, ext)
	if err != nil {
		return nil, err
	}
	out, err := p.webp.Encode(ctx, Resize(frame, p.posterSize), false)
	if err != nil {
		return nil, fmt.Errorf("poster: %w", err)
	}
	return out, nil
}

// LimitDimensions shrinks a convertible image so its longest side is at most
// limit, keeping its format. Data already inside the limit is returned as is.
func (p *Processor) LimitDimensions(data []byte, contentType string, limit int) ([]byte, error) {
	if limit <= 0 || !IsConvertible(contentType) {
		return data, nil
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if Longest(img) <= limit {
		return data, nil
	}
	return EncodeAs(Resize(img, limit), contentType)
}

// ToWebP re-encodes the primary asset, keeping any alpha channel.
func (p *Processor) ToWebP(ctx context.Context, data []byte) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	out, err := p.webp.Encode(ctx, img, true)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	return out, nil
}
