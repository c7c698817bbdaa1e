package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verdantiq/esgcopilot/provider"
)

// ConversationKey derives the history key for a chat thread. The key is a
// plain concatenation of company, user names and task id so that a returning
// user lands on the same thread without a session table. Two users sharing
// company, names and task collide; see DESIGN.md.
func ConversationKey(company, firstName, lastName, taskID string) string {
	return company + firstName + lastName + taskID
}

// Store is an ordered, append-only conversation log keyed by ConversationKey.
// Both operations return errors so callers can observe degraded mode, but
// the chat flow treats them as non-fatal.
type Store interface {
	Append(ctx context.Context, key string, turn provider.Turn) error
	Read(ctx context.Context, key string) ([]provider.Turn, error)
}

// Conn opens and pings a Redis client.
func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", host, port, err)
	}
	return client, nil
}

// RedisStore persists conversation turns as JSON entries in a Redis list.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *log.Logger
}

// NewRedisStore wraps client with the given key prefix.
func NewRedisStore(client *redis.Client, prefix string, logger *log.Logger) *RedisStore {
	if logger == nil {
		logger = log.New(log.Writer(), "[HISTORY] ", log.LstdFlags)
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

// Append pushes one turn to the tail of the conversation list.
func (s *RedisStore) Append(ctx context.Context, key string, turn provider.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := s.client.RPush(ctx, s.prefix+key, data).Err(); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Read fetches the full conversation list. Entries that fail to parse are
// dropped and logged rather than failing the read.
func (s *RedisStore) Read(ctx context.Context, key string) ([]provider.Turn, error) {
	entries, err := s.client.LRange(ctx, s.prefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return parseTurns(entries, s.logger), nil
}

func parseTurns(entries []string, logger *log.Logger) []provider.Turn {
	var turns []provider.Turn
	for i, raw := range entries {
		var turn provider.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			logger.Printf("dropping unparsable history entry %d: %v", i, err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}
