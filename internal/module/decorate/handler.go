package decorate

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/restyle/server/internal/module/synthesis"
	"github.com/restyle/server/internal/shared/response"
	"github.com/restyle/server/internal/utils/middleware"
)

// allowedMimeTypes are the image types accepted for upload.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Handler exposes the decoration service over HTTP.
type Handler struct {
	service       *Service
	maxImageBytes int64
}

// NewHandler creates a new decoration handler.
func NewHandler(service *Service, maxImageBytes int64) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = 10 * 1024 * 1024
	}
	return &Handler{service: service, maxImageBytes: maxImageBytes}
}

// Decorate handles a decoration request.
//
//	@Summary	Redecorate a room photo in a chosen style
//	@Tags		Decorate
//	@Accept		multipart/form-data
//	@Produce	json
//	@Security	BearerAuth
//	@Param		image			formData	file	true	"room photo"
//	@Param		styleName		formData	string	true	"decorating style"
//	@Param		roomDescription	formData	string	true	"room description"
//	@Success	200	{object}	Result
//	@Failure	400	{object}	response.ErrorResponse
//	@Failure	401	{object}	response.ErrorResponse
//	@Failure	403	{object}	response.ErrorResponse
//	@Failure	429	{object}	response.ErrorResponse
//	@Failure	500	{object}	response.ErrorResponse
//	@Router		/api/decorate [post]
func (h *Handler) Decorate(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	// Bound the multipart body before touching it; the form overhead on
	// top of the image itself is small
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+64*1024)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(c, "failed to read image file")
		return
	}
	if len(imageData) == 0 {
		response.BadRequest(c, "image file is empty")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(imageData)
	}
	if !allowedMimeTypes[mimeType] {
		response.BadRequest(c, "unsupported image type, use JPEG, PNG or WebP")
		return
	}

	styleName := strings.TrimSpace(c.PostForm("styleName"))
	if styleName == "" {
		response.BadRequest(c, "styleName is required")
		return
	}
	roomDescription := strings.TrimSpace(c.PostForm("roomDescription"))
	if roomDescription == "" {
		response.BadRequest(c, "roomDescription is required")
		return
	}

	result, err := h.service.Decorate(c.Request.Context(), userID, &Request{
		ImageData:       imageData,
		MimeType:        mimeType,
		StyleName:       styleName,
		RoomDescription: roomDescription,
	})
	if err != nil {
		response.HandleErrorWithDefault(c, err, decorateErrorMappings)
		return
	}

	c.JSON(http.StatusOK, result)
}

// decorateErrorMappings maps protocol outcomes to HTTP statuses.
var decorateErrorMappings = []response.ErrorMapping{
	{Err: ErrInvalidInput, Status: http.StatusBadRequest,
		Message: "image, styleName and roomDescription are required"},
	{Err: ErrQuotaExceeded, Status: http.StatusForbidden,
		Message: "credit balance exhausted, please purchase more credits"},
	{Err: synthesis.ErrContentBlocked, Status: http.StatusBadRequest,
		Message: "request was blocked by the content policy, try a different image or description"},
	{Err: synthesis.ErrRateLimited, Status: http.StatusTooManyRequests,
		Message: "the image service is busy, please try again shortly"},
	{Err: ErrSynthesisFailed, Status: http.StatusInternalServerError,
		Message: "image generation failed, you have not been charged"},
	{Err: ErrLedger, Status: http.StatusInternalServerError,
		Message: "internal error"},
}
