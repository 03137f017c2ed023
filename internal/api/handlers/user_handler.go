package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"rony-server/internal/models"
	"rony-server/internal/realtime"
	"rony-server/internal/repository"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userRepo     *repository.UserRepository
	presenceRepo *repository.PresenceRepository
	presence     *realtime.Presence
	router       *realtime.Router
}

func NewUserHandler(
	userRepo *repository.UserRepository,
	presenceRepo *repository.PresenceRepository,
	presence *realtime.Presence,
	router *realtime.Router,
) *UserHandler {
	return &UserHandler{
		userRepo:     userRepo,
		presenceRepo: presenceRepo,
		presence:     presence,
		router:       router,
	}
}

// GetProfile godoc
// @Summary Get the authenticated user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse "User profile"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	// The in-memory tracker is authoritative for this process; after a restart
	// it is cold, so an offline reading falls back to the durable copy.
	status := h.presence.Status(user.ID)
	if status == models.StatusOffline {
		if persisted, err := h.presenceRepo.GetStatus(c.Request.Context(), user.ID); err == nil {
			status = persisted
		}
	}

	c.JSON(http.StatusOK, models.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Status:    status,
		CreatedAt: user.CreatedAt,
		Avatar:    user.Avatar,
	})
}

// UpdateStatus godoc
// @Summary Update the authenticated user's presence status
// @Description Set away/busy/online/offline; the change is broadcast to all connected clients
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateStatusRequest true "New status"
// @Success 200 {object} models.StatusUpdate "Applied status"
// @Failure 400 {object} map[string]interface{} "Bad request - unknown status"
// @Router /users/status [put]
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.presence.SetStatus(c.Request.Context(), userID, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	if err := h.userRepo.UpdateStatus(userID, req.Status); err != nil {
		slog.Error("Failed to persist user status", "userID", userID, "error", err)
	}
	if err := h.presenceRepo.PublishStatusUpdate(c.Request.Context(), &models.StatusUpdate{UserID: userID, Status: req.Status}); err != nil {
		slog.Debug("Failed to publish status update", "userID", userID, "error", err)
	}

	h.router.BroadcastStatus(userID, req.Status)

	c.JSON(http.StatusOK, models.StatusUpdate{UserID: userID, Status: req.Status})
}

// GetOnlineUsers godoc
// @Summary List currently online users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} uint "Online user IDs"
// @Router /users/online [get]
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	ids, err := h.presenceRepo.OnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list online users"})
		return
	}
	c.JSON(http.StatusOK, ids)
}

// SearchUsers godoc
// @Summary Search users by username
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string true "Username fragment"
// @Param limit query int false "Max results"
// @Success 200 {array} models.UserResponse "Matching users"
// @Router /users/search [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	users, err := h.userRepo.SearchByUsername(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, models.UserResponse{
			ID:        u.ID,
			Email:     u.Email,
			Username:  u.Username,
			Status:    h.presence.Status(u.ID),
			CreatedAt: u.CreatedAt,
			Avatar:    u.Avatar,
		})
	}
	c.JSON(http.StatusOK, responses)
}
