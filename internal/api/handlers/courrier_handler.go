package handlers

import (
	"net/http"
	"strconv"

	"rony-server/internal/database"
	"rony-server/internal/models"
	"rony-server/internal/realtime"
	"rony-server/internal/repository"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 25 << 20 // 25 MB

type CourrierHandler struct {
	courrierRepo *repository.CourrierRepository
	storage      *database.MinIOClient
	router       *realtime.Router
}

func NewCourrierHandler(
	courrierRepo *repository.CourrierRepository,
	storage *database.MinIOClient,
	router *realtime.Router,
) *CourrierHandler {
	return &CourrierHandler{
		courrierRepo: courrierRepo,
		storage:      storage,
		router:       router,
	}
}

// UploadFile godoc
// @Summary Upload a file for sharing
// @Description Stores the file in object storage and returns the key to use in a share request
// @Tags courrier
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Success 201 {object} map[string]interface{} "Object key and URL"
// @Failure 400 {object} map[string]interface{} "Bad request - missing or oversized file"
// @Router /courrier/upload [post]
func (h *CourrierHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File exceeds the 25 MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey, err := h.storage.PutObject(c.Request.Context(), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"objectKey": objectKey,
		"url":       h.storage.ObjectURL(objectKey),
	})
}

// Share godoc
// @Summary Share a file, folder or calendar event with another user
// @Description Records the share and notifies the recipient's live connections best-effort
// @Tags courrier
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ShareRequest true "Share details"
// @Success 201 {object} models.CourrierResponse "Recorded share"
// @Failure 400 {object} map[string]interface{} "Bad request - invalid input data"
// @Router /courrier/share [post]
func (h *CourrierHandler) Share(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RecipientID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot share with yourself"})
		return
	}
	if req.Kind == models.CourrierKindFile && req.ObjectKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File shares require an objectKey"})
		return
	}
	if req.Kind != models.CourrierKindFile && req.ReferenceID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Folder and event shares require a referenceId"})
		return
	}

	item := &models.CourrierItem{
		SenderID:    userID,
		RecipientID: req.RecipientID,
		Kind:        req.Kind,
		Subject:     req.Subject,
		ObjectKey:   req.ObjectKey,
		ReferenceID: req.ReferenceID,
	}
	if err := h.courrierRepo.Create(item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record share"})
		return
	}

	response := item.ToResponse()
	h.router.BroadcastCourrierNotification(req.RecipientID, response)

	c.JSON(http.StatusCreated, response)
}

// GetInbox godoc
// @Summary List shares received by the authenticated user
// @Tags courrier
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Success 200 {array} models.CourrierResponse "Received shares, newest first"
// @Router /courrier/inbox [get]
func (h *CourrierHandler) GetInbox(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	items, err := h.courrierRepo.ListForRecipient(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inbox"})
		return
	}

	responses := make([]models.CourrierResponse, 0, len(items))
	for i := range items {
		responses = append(responses, items[i].ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}
