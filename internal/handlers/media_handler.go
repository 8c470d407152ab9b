package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beamdash/backend/internal/middleware"
	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the option fields and part headers.
const multipartOverhead = 1 << 20

type MediaHandler struct {
	mediaService  *services.MediaService
	uploadService *services.UploadService
	maxUploadSize int64
	logger        *zap.Logger
}

func NewMediaHandler(mediaService *services.MediaService, uploadService *services.UploadService, maxUploadSize int64, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService:  mediaService,
		uploadService: uploadService,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// ListMedia pages asset records, newest first.
// GET /media-uploads/list-media?page=1&pageSize=50&filterBy=standard
func (h *MediaHandler) ListMedia(c *gin.Context) {
	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, errSize := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(services.DefaultMediaPageSize)))
	if errPage != nil || errSize != nil {
		respondError(c, http.StatusBadRequest, "Invalid pagination parameters.")
		return
	}

	result, err := h.mediaService.List(c.Request.Context(), page, pageSize, c.DefaultQuery("filterBy", services.FilterStandard))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch media", nil)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// UploadMedia ingests one file.
// POST /media-uploads/upload-media
// Multipart form: file (required), convertImagesToWebp, limitMaxWidthHeight,
// limitThumbnailMaxWidthHeight, used_elsewhere
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid file data")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid file data")
		return
	}

	opts := services.UploadOptions{
		ConvertImagesToWebp:     c.PostForm("convertImagesToWebp") == "true",
		LimitMaxWidthHeight:     formInt(c, "limitMaxWidthHeight"),
		ThumbnailMaxWidthHeight: formInt(c, "limitThumbnailMaxWidthHeight"),
		UsedElsewhere:           strings.TrimSpace(c.PostForm("used_elsewhere")),
	}

	// A client that goes away mid-upload does not abort processing.
	result, err := h.uploadService.Upload(context.WithoutCancel(c.Request.Context()), userID, services.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Options:     opts,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "Upload failed", nil)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// formInt reads an optional positive integer field; anything else is zero.
func formInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm(name)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// UpdateMedia edits the description of one of the caller's assets.
// PUT /media-uploads/update-media {media_id, description}
func (h *MediaHandler) UpdateMedia(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		MediaID     string `json:"media_id"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MediaID == "" {
		respondError(c, http.StatusBadRequest, "Missing media ID in request body")
		return
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		respondError(c, http.StatusNotFound, "Media not found or not authorized to update")
		return
	}

	updated, err := h.mediaService.UpdateDescription(c.Request.Context(), userID, mediaID, req.Description)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update media", messages{
			services.ErrNotFound: "Media not found or not authorized to update",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"updatedMedia": updated})
}

// DeleteMedia removes an asset, its storage objects and its row.
// DELETE /media-uploads/delete-media {mediaId}
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		MediaID string `json:"mediaId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MediaID == "" {
		respondError(c, http.StatusBadRequest, "Missing required mediaId")
		return
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		respondError(c, http.StatusNotFound, "Failed to fetch media or media not found")
		return
	}

	if err := h.mediaService.Delete(c.Request.Context(), cl, mediaID, requestMeta(c)); err != nil {
		respondServiceError(c, h.logger, err, "Failed to delete media", messages{
			services.ErrNotFound: "Failed to fetch media or media not found",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Media deleted successfully"})
}
