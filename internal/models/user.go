package models

import (
	"time"

	"gorm.io/gorm"
)

// Presence status values. "online" and "offline" are driven by the realtime
// layer; "away" and "busy" are set through the profile route.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// ValidStatus reports whether s is one of the known presence states.
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

/** --------------------ENTITIES-------------------- */
// User represents the user entity
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `json:"-"` // hashed, never returned in responses
	// Avatar is optional and can be used to store a profile picture URL.
	Avatar string `json:"avatar,omitempty"`
	// Status is the last persisted presence state.
	Status string `gorm:"default:offline" json:"status"`
}

/** -------------------- DTOs -------------------- */
// Request
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents the request for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=online away busy offline"`
}

// Response
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Avatar    string    `json:"avatar,omitempty"`
}

// LoginResponse represents the response for a successful login
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// StatusUpdate is the payload published when a user's presence changes.
type StatusUpdate struct {
	UserID uint   `json:"userId"`
	Status string `json:"status"`
}
