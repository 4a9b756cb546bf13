package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/nmduc/chatterbox/internal/repository"
	"github.com/nmduc/chatterbox/pkg/storage"
)

// Max avatar size: 5MB
const maxUploadSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadHandler handles profile picture uploads
type UploadHandler struct {
	storage  *storage.MinIOStorage
	userRepo *repository.UserRepository
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(storage *storage.MinIOStorage, userRepo *repository.UserRepository) *UploadHandler {
	return &UploadHandler{storage: storage, userRepo: userRepo}
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Description Stores the image and, if user_id is given, sets it as that user's profile picture.
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image to upload"
// @Param user_id formData string false "User to attach the picture to"
// @Success 200 {object} model.UploadResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Router /upload-avatar [post]
func (h *UploadHandler) UploadAvatar(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "File storage not available"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "File too large (max 5MB)"})
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "File is required", Message: err.Error()})
		return
	}
	defer file.Close()

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "Unsupported file type",
			Message: "Allowed: jpg, png, gif, webp",
		})
		return
	}

	result, err := h.storage.Upload(c.Request.Context(), file, header, "profile")
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to upload file", Message: err.Error()})
		return
	}

	// Optionally attach the new picture to a user
	if raw := c.PostForm("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user ID"})
			return
		}
		if err := h.userRepo.UpdateProfilePic(userID, result.URL); err != nil {
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to update profile picture"})
			return
		}
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		URL:      result.URL,
		FileName: result.FileName,
		FileSize: result.FileSize,
		MimeType: result.MimeType,
	})
}
