package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix = "encounter:"
	roomRecordsKey  = "room:%s:encounters"

	// defaultTTL bounds how long finished encounters are retained.
	defaultTTL = 7 * 24 * time.Hour
)

// redisArchive implements Archive on a Redis backend. Records expire after
// the configured TTL; the per-room index is refreshed on every save so it
// outlives no record it points at.
type redisArchive struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a Redis-backed Archive.
//
// Precondition: client must be non-nil. A non-positive ttl falls back to the
// default retention period.
func NewRedis(client redis.UniversalClient, ttl time.Duration) Archive {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisArchive{client: client, ttl: ttl}
}

func (a *redisArchive) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("archive: record must not be nil")
	}
	if rec.ID == "" || rec.RoomCode == "" {
		return fmt.Errorf("archive: record ID and RoomCode must not be empty")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: serializing record: %w", err)
	}

	roomKey := fmt.Sprintf(roomRecordsKey, rec.RoomCode)

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, recordKeyPrefix+rec.ID, data, a.ttl)
	pipe.ZAdd(ctx, roomKey, redis.Z{
		Score:  float64(rec.EndedAt.UnixNano()),
		Member: rec.ID,
	})
	pipe.Expire(ctx, roomKey, a.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive: saving record: %w", err)
	}
	return nil
}

func (a *redisArchive) Get(ctx context.Context, id string) (*Record, error) {
	data, err := a.client.Get(ctx, recordKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("archive: fetching record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("archive: deserializing record: %w", err)
	}
	return &rec, nil
}

func (a *redisArchive) ListByRoom(ctx context.Context, roomCode string) ([]*Record, error) {
	roomKey := fmt.Sprintf(roomRecordsKey, roomCode)
	ids, err := a.client.ZRevRange(ctx, roomKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("archive: listing room records: %w", err)
	}

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := a.Get(ctx, id)
		if err != nil {
			// Expired records linger in the index until their room key
			// expires too; skip them.
			if err == ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
