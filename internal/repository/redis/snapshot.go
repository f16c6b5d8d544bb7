package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/gophfeed/internal/model"
)

const keyPrefix = "gophfeed:session:"

var _ model.SnapshotStore = (*SnapshotStore)(nil)

type redisAPI interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SnapshotStore keeps session snapshots in redis. Entries expire after ttl
// without activity, so no sweeping is needed.
type SnapshotStore struct {
	rdb redisAPI
	ttl time.Duration
}

type snapshotRecord struct {
	State        model.SessionState `json:"state"`
	IDToken      string             `json:"idToken,omitempty"`
	RefreshToken string             `json:"refreshToken,omitempty"`
	Profile      *model.Profile     `json:"profile,omitempty"`
	LastError    string             `json:"lastError,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Connect parses url, pings the server and returns the client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

func NewSnapshotStore(rdb *redis.Client, ttl time.Duration) *SnapshotStore {
	return newSnapshotStore(rdb, ttl)
}

func newSnapshotStore(rdb redisAPI, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{
		rdb: rdb,
		ttl: ttl,
	}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot model.SessionSnapshot) error {
	raw, err := json.Marshal(snapshotRecord{
		State:        snapshot.State,
		IDToken:      snapshot.Credential.IDToken,
		RefreshToken: snapshot.Credential.RefreshToken,
		Profile:      snapshot.Profile,
		LastError:    snapshot.LastError,
		UpdatedAt:    snapshot.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := s.rdb.Set(ctx, keyPrefix+snapshot.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Get(ctx context.Context, id string) (model.SessionSnapshot, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.SessionSnapshot{}, model.ErrNotFound
		}
		return model.SessionSnapshot{}, fmt.Errorf("failed to get session snapshot: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.SessionSnapshot{}, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}

	return model.SessionSnapshot{
		ID:    id,
		State: rec.State,
		Credential: model.Credential{
			IDToken:      rec.IDToken,
			RefreshToken: rec.RefreshToken,
		},
		Profile:   rec.Profile,
		LastError: rec.LastError,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}
