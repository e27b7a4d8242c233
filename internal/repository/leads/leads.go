// Package leads tracks which conversations have already produced a lead
// notification.
package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lead:notified:"

// NotifiedTTL bounds how long a flag is kept; once it expires the
// conversation may notify again.
const NotifiedTTL = 30 * 24 * time.Hour

type Store struct {
	rdb redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

func key(botID, sessionID string) string {
	return keyPrefix + botID + ":" + sessionID
}

// MarkNotified atomically flags the conversation. It reports true only for the
// first caller, so each conversation notifies at most once.
func (s *Store) MarkNotified(ctx context.Context, botID, sessionID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key(botID, sessionID), 1, NotifiedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark lead notified: %w", err)
	}
	return ok, nil
}

// Reset clears the flag, letting the conversation notify again.
func (s *Store) Reset(ctx context.Context, botID, sessionID string) error {
	return s.rdb.Del(ctx, key(botID, sessionID)).Err()
}
