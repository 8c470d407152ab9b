package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/observability"
	"github.com/beamdash/backend/internal/pkg/media"
	"github.com/beamdash/backend/internal/pkg/saga"
	"github.com/beamdash/backend/internal/storage"
	"github.com/beamdash/backend/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	webpContentType   = "image/webp"
	quicktimeMIME     = "video/quicktime"
	quicktimeStoredAs = "video/mp4"
)

// UploadOptions are the string-encoded multipart options of an upload.
type UploadOptions struct {
	ConvertImagesToWebp     bool
	LimitMaxWidthHeight     int
	ThumbnailMaxWidthHeight int
	UsedElsewhere           string
}

type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Options     UploadOptions
}

type UploadResult struct {
	Message          string    `json:"message"`
	FilePath         string    `json:"filePath"`
	OriginalFilename string    `json:"original_filename"`
	URL              string    `json:"url"`
	ThumbnailURL     string    `json:"thumbnail_url"`
	MediaID          uuid.UUID `json:"media_id"`
}

// UploadService ingests one file: placeholder row, derivatives, object
// store writes, finalized row. Every step is undone if a later one fails.
type UploadService struct {
	media     *MediaService
	store     storage.ObjectStore
	processor *media.Processor
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewUploadService(mediaService *MediaService, store storage.ObjectStore, processor *media.Processor, metrics *observability.Metrics, logger *zap.Logger) *UploadService {
	return &UploadService{
		media:     mediaService,
		store:     store,
		processor: processor,
		metrics:   metrics,
		logger:    logger,
	}
}

// uploadRun is the state threaded through the steps of one upload.
type uploadRun struct {
	req         UploadRequest
	userID      uuid.UUID
	contentType string
	origExt     string
	ext         string
	convert     bool

	row           *models.MediaUpload
	baseName      string
	filePath      string
	thumbnailPath string
	primary       []byte
}

func (s *UploadService) Upload(ctx context.Context, userID uuid.UUID, req UploadRequest) (*UploadResult, error) {
	origExt := validation.FileExtension(req.FileName)
	if origExt == "" {
		return nil, invalid("File extension missing")
	}
	if len(req.Data) == 0 {
		return nil, invalid("Invalid file data")
	}

	run := &uploadRun{
		req:         req,
		userID:      userID,
		contentType: validation.ResolveContentType(req.ContentType, req.Data),
		origExt:     origExt,
		ext:         origExt,
		primary:     req.Data,
	}
	run.convert = req.Options.ConvertImagesToWebp && media.IsConvertible(run.contentType)
	if run.convert {
		run.ext = "webp"
	}

	kind := "other"
	switch {
	case validation.IsVideo(run.contentType):
		kind = "video"
	case validation.IsImage(run.contentType):
		kind = "image"
	}

	sg := saga.New("upload", s.logger).
		Add(saga.Step{Name: "placeholder", Do: run.placeholder(s), Compensate: run.dropPlaceholder(s)})
	if kind == "video" {
		sg.Add(saga.Step{Name: "poster", Do: run.poster(s), Compensate: run.deleteThumbnail(s)})
	}
	if kind == "image" {
		sg.Add(saga.Step{Name: "thumbnail", Do: run.thumbnail(s), Compensate: run.deleteThumbnail(s)})
	}
	sg.Add(saga.Step{Name: "limit", Do: run.limit(s)}).
		Add(saga.Step{Name: "primary", Do: run.storePrimary(s), Compensate: run.deletePrimary(s)}).
		Add(saga.Step{Name: "finalize", Do: run.finalize(s)})

	if err := sg.Run(ctx); err != nil {
		s.metrics.ObserveUpload(kind, "failed")
		s.metrics.ObserveSaga("upload", sg.State().Phase.String())
		s.logger.Error("upload failed",
			zap.String("user_id", userID.String()),
			zap.String("file", req.FileName),
			zap.String("state", sg.State().String()),
			zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveUpload(kind, "success")
	s.metrics.ObserveSaga("upload", sg.State().Phase.String())

	s.logger.Info("media uploaded",
		zap.String("media_id", run.row.MediaID.String()),
		zap.String("path", run.filePath),
		zap.Int64("size", run.row.FileSize))

	return &UploadResult{
		Message:          "File uploaded and metadata updated successfully",
		FilePath:         run.filePath,
		OriginalFilename: req.FileName,
		URL:              s.store.PublicURL(run.filePath),
		ThumbnailURL:     s.store.PublicURL(run.thumbnailPath),
		MediaID:          run.row.MediaID,
	}, nil
}

func (r *uploadRun) placeholder(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		row, err := s.media.CreatePlaceholder(ctx, r.userID, r.req.FileName)
		if err != nil {
			return err
		}
		r.row = row
		r.baseName = row.BaseName()
		subfolder := "images"
		if validation.IsVideo(r.contentType) {
			subfolder = "videos"
		}
		r.filePath = fmt.Sprintf("%s/%s.%s", subfolder, r.baseName, r.ext)
		return nil
	}
}

func (r *uploadRun) dropPlaceholder(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		return s.media.DeletePlaceholder(ctx, r.row.MediaID)
	}
}

func (r *uploadRun) poster(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		poster, err := s.processor.Poster(ctx, r.req.Data, r.origExt)
		if err != nil {
			return err
		}
		r.thumbnailPath = "posters/" + r.baseName + ".webp"
		return s.store.Put(ctx, r.thumbnailPath, poster, webpContentType)
	}
}

func (r *uploadRun) thumbnail(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		thumb, err := s.processor.Thumbnail(ctx, r.req.Data, r.contentType, r.req.Options.ThumbnailMaxWidthHeight)
		if errors.Is(err, media.ErrUnsupportedFormat) {
			// The asset is still stored byte for byte, just without a thumbnail.
			s.logger.Warn("no thumbnail for image",
				zap.String("file", r.req.FileName),
				zap.String("content_type", r.contentType),
				zap.Error(err))
			return nil
		}
		if err != nil {
			return err
		}
		r.thumbnailPath = "thumbnails/" + r.baseName + ".webp"
		return s.store.Put(ctx, r.thumbnailPath, thumb, webpContentType)
	}
}

func (r *uploadRun) deleteThumbnail(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		return s.store.Delete(ctx, r.thumbnailPath)
	}
}

func (r *uploadRun) limit(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		if r.req.Options.LimitMaxWidthHeight <= 0 {
			return nil
		}
		out, err := s.processor.LimitDimensions(r.primary, r.contentType, r.req.Options.LimitMaxWidthHeight)
		if err != nil {
			return err
		}
		r.primary = out
		return nil
	}
}

func (r *uploadRun) storePrimary(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		if r.convert {
			out, err := s.processor.ToWebP(ctx, r.primary)
			if err != nil {
				return err
			}
			r.primary = out
			return s.store.Put(ctx, r.filePath, r.primary, webpContentType)
		}
		return s.store.Put(ctx, r.filePath, r.primary, r.contentType)
	}
}

func (r *uploadRun) deletePrimary(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		return s.store.Delete(ctx, r.filePath)
	}
}

func (r *uploadRun) finalize(s *UploadService) func(context.Context) error {
	return func(ctx context.Context) error {
		fileType := r.contentType
		switch {
		case r.convert:
			fileType = webpContentType
		case fileType == quicktimeMIME:
			// Browsers refuse video/quicktime; the bytes stay as they are.
			fileType = quicktimeStoredAs
		}

		r.row.FileName = r.baseName + "." + r.ext
		r.row.FileType = fileType
		r.row.FileSize = int64(len(r.primary))
		r.row.StoragePath = r.filePath
		r.row.ThumbnailPath = r.thumbnailPath
		if tag := strings.TrimSpace(r.req.Options.UsedElsewhere); tag != "" {
			r.row.UsedElsewhere = &tag
		}
		return s.media.Finalize(ctx, r.row)
	}
}
