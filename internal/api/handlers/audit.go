package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"docaudit/internal/api/middleware"
	"docaudit/internal/models"
	"docaudit/internal/services"
	"docaudit/pkg/response"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps document uploads at 10 MiB.
const maxUploadBytes = 10 << 20

type AuditHandler struct {
	audits *services.AuditService
}

func NewAuditHandler(audits *services.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// Create accepts a multipart PDF upload and runs the audit pipeline.
// Progress is pushed to the uploader's realtime connections while the
// request is in flight.
func (h *AuditHandler) Create(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, response.Msg(response.MsgUnauthorized))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Msg(response.MsgFileRequired))
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, response.Msg(response.MsgFileTooLarge))
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Msg(response.MsgFileRequired))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Msg(response.MsgFileRequired))
		return
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, response.Msg(response.MsgFileTooLarge))
		return
	}

	contentType := header.Header.Get("Content-Type")
	audit, err := h.audits.ProcessUpload(c.Request.Context(), user, header.Filename, contentType, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAINotConfigured):
			c.JSON(http.StatusServiceUnavailable, response.Msg(response.MsgAINotConfigured))
		case errors.Is(err, services.ErrEmptyDocument):
			c.JSON(http.StatusBadRequest, response.Msg(response.MsgDocumentNoText))
		default:
			slog.Error("audit failed", "username", user.Username, "filename", header.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, response.Msg(response.MsgAuditFailed))
		}
		return
	}

	c.JSON(http.StatusOK, audit)
}

// History returns the caller's audit records.
func (h *AuditHandler) History(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, response.Msg(response.MsgUnauthorized))
		return
	}

	audits, err := h.audits.History(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Msg(response.MsgInternal))
		return
	}
	if audits == nil {
		audits = []models.Audit{}
	}

	c.JSON(http.StatusOK, audits)
}
