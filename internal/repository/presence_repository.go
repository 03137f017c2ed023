package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"rony-server/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey    = "online_users"
	userStatusKeyFmt  = "user:%d:status"
	onlineStatusTTL   = 5 * time.Minute
	offlineStatusTTL  = 24 * time.Hour
	statusChannelName = "user_status"
)

// PresenceRepository persists presence state in Redis alongside the in-memory
// tracker, so polling clients and other services can read it.
type PresenceRepository struct {
	client *redis.Client
}

func NewPresenceRepository(client *redis.Client) *PresenceRepository {
	return &PresenceRepository{client: client}
}

// SetStatus writes the user's presence state. Online users are added to the
// online set; any other state removes them from it.
func (r *PresenceRepository) SetStatus(ctx context.Context, userID uint, status string) error {
	pipe := r.client.Pipeline()

	if status == models.StatusOnline {
		pipe.SAdd(ctx, onlineUsersKey, strconv.FormatUint(uint64(userID), 10))
	} else {
		pipe.SRem(ctx, onlineUsersKey, strconv.FormatUint(uint64(userID), 10))
	}

	statusKey := fmt.Sprintf(userStatusKeyFmt, userID)
	pipe.HSet(ctx, statusKey, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	})

	ttl := onlineStatusTTL
	if status == models.StatusOffline {
		ttl = offlineStatusTTL
	}
	pipe.Expire(ctx, statusKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to persist presence", "userID", userID, "status", status, "error", err)
		return err
	}
	return nil
}

// GetStatus reads the persisted presence state, defaulting to offline.
func (r *PresenceRepository) GetStatus(ctx context.Context, userID uint) (string, error) {
	status, err := r.client.HGet(ctx, fmt.Sprintf(userStatusKeyFmt, userID), "status").Result()
	if err == redis.Nil {
		return models.StatusOffline, nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// OnlineUsers returns the IDs currently in the online set.
func (r *PresenceRepository) OnlineUsers(ctx context.Context) ([]uint, error) {
	members, err := r.client.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// PublishStatusUpdate pushes a status change onto the pub/sub channel for
// any interested out-of-process consumer.
func (r *PresenceRepository) PublishStatusUpdate(ctx context.Context, update *models.StatusUpdate) error {
	payload := fmt.Sprintf(`{"userId":%d,"status":%q}`, update.UserID, update.Status)
	return r.client.Publish(ctx, statusChannelName, payload).Err()
}

// CheckRateLimit increments the counter behind key and reports whether the
// caller is still within limit for the window.
func (r *PresenceRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
