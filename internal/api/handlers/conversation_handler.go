package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"rony-server/internal/models"
	"rony-server/internal/realtime"
	"rony-server/internal/repository"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	convRepo    *repository.ConversationRepository
	messageRepo *repository.MessageRepository
	router      *realtime.Router
}

func NewConversationHandler(
	convRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	router *realtime.Router,
) *ConversationHandler {
	return &ConversationHandler{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		router:      router,
	}
}

// CreateConversation godoc
// @Summary Open a conversation with another user
// @Description Returns the existing conversation if one already exists between the pair
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateConversationRequest true "Participant"
// @Success 201 {object} models.Conversation "Conversation"
// @Failure 400 {object} map[string]interface{} "Bad request - invalid input data"
// @Router /conversations [post]
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ParticipantID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot open a conversation with yourself"})
		return
	}

	existing, err := h.convRepo.FindBetween(userID, req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up conversation"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, existing)
		return
	}

	conv := &models.Conversation{
		CreatorID:     userID,
		ParticipantID: req.ParticipantID,
	}
	if err := h.convRepo.Create(conv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// ListConversations godoc
// @Summary List the authenticated user's conversations
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Conversation "Conversations"
// @Router /conversations [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	convs, err := h.convRepo.ListForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetMessages godoc
// @Summary Get messages in a conversation
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param limit query int false "Page size"
// @Param before query int false "Exclusive message ID cursor"
// @Success 200 {array} models.MessageResponse "Messages, newest first"
// @Failure 403 {object} map[string]interface{} "Forbidden - not a participant"
// @Failure 404 {object} map[string]interface{} "Conversation not found"
// @Router /conversations/{id}/messages [get]
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	conv, ok := h.memberConversation(c, userID)
	if !ok {
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	var before uint
	if b := c.Query("before"); b != "" {
		if parsed, err := strconv.ParseUint(b, 10, 64); err == nil {
			before = uint(parsed)
		}
	}

	messages, err := h.messageRepo.ListByConversation(conv.ID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get messages"})
		return
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

// SendMessage godoc
// @Summary Send a message in a conversation
// @Description Persists the message, then delivers it best-effort to the other participant's live connections
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param request body models.SendMessageRequest true "Message content"
// @Success 201 {object} models.MessageResponse "Stored message"
// @Failure 400 {object} map[string]interface{} "Bad request - empty message"
// @Failure 403 {object} map[string]interface{} "Forbidden - not a participant"
// @Failure 404 {object} map[string]interface{} "Conversation not found"
// @Router /conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	conv, ok := h.memberConversation(c, userID)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == nil && req.URL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must carry content or a file URL"})
		return
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       userID,
		Content:        req.Content,
		URL:            req.URL,
		FileName:       req.FileName,
	}
	if err := h.messageRepo.Create(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store message"})
		return
	}

	// Persistence done; realtime delivery is best-effort on top of it.
	response := msg.ToResponse()
	if payload, err := json.Marshal(response); err == nil {
		h.router.RouteConversationMessage(c.Request.Context(), conv.ID, userID, payload)
	}

	c.JSON(http.StatusCreated, response)
}

// memberConversation loads the conversation in the path and checks the caller
// is one of its two participants.
func (h *ConversationHandler) memberConversation(c *gin.Context, userID uint) (*models.Conversation, bool) {
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return nil, false
	}

	conv, err := h.convRepo.GetConversation(c.Request.Context(), uint(convID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up conversation"})
		return nil, false
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return nil, false
	}
	if _, member := conv.OtherParticipant(userID); !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return nil, false
	}
	return conv, true
}
