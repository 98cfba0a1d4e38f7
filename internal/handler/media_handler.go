package handler

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/rs/zerolog"
)

type uploadSaver interface {
	SaveUpload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error)
}

// MediaHandler handles media upload endpoints.
type MediaHandler struct {
	media uploadSaver
	log   zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(media uploadSaver, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{media: media, log: log.With().Str("component", "media_handler").Logger()}
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload
// Uploads a question image and returns its URL.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, err := h.media.SaveUpload(c.Request.Context(), file, header)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url})
}
