package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nmduc/chatterbox/internal/model"
	"github.com/redis/go-redis/v9"
)

const chatListKeyPrefix = "chatterbox:chatlist:"

// ChatListCache keeps per-user conversation lists in Redis for a short TTL.
// The list query fans out into several correlated subqueries per row, so
// hot reloads are served from the cache and invalidated on any write that
// changes a member's list. A nil cache disables caching entirely.
type ChatListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewChatListCache(rdb *redis.Client, ttl time.Duration) *ChatListCache {
	return &ChatListCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached list for a user, or ok=false on miss
func (c *ChatListCache) Get(ctx context.Context, userID uuid.UUID) ([]model.ChatSummary, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, chatListKeyPrefix+userID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var summaries []model.ChatSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, false
	}
	return summaries, true
}

// Set stores a user's list with the configured TTL
func (c *ChatListCache) Set(ctx context.Context, userID uuid.UUID, summaries []model.ChatSummary) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, chatListKeyPrefix+userID.String(), data, c.ttl).Err(); err != nil {
		log.Printf("⚠️  Failed to cache chat list for %s: %v", userID, err)
	}
}

// Invalidate drops the cached lists of the given users
func (c *ChatListCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if c == nil || c.rdb == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, chatListKeyPrefix+id.String())
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("⚠️  Failed to invalidate chat list cache: %v", err)
	}
}
