package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot is returned by Load when no state blob has been saved yet.
var ErrNoSnapshot = errors.New("no scheduler snapshot stored")

// defaultStateKey is the redis key the scheduler state blob is stored under.
const defaultStateKey = "autobolt:scheduler:state"

// RedisStateStore persists the scheduler's serialized state blob in redis
// for crash recovery.
type RedisStateStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// RedisStateStoreOptions configure a RedisStateStore.
type RedisStateStoreOptions struct {
	Client redis.UniversalClient

	// Key overrides the default storage key.
	Key string

	// TTL expires stale snapshots; zero keeps them forever.
	TTL time.Duration
}

// NewRedisStateStore creates a redis-backed state store.
func NewRedisStateStore(opts RedisStateStoreOptions) (*RedisStateStore, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	key := opts.Key
	if key == "" {
		key = defaultStateKey
	}
	return &RedisStateStore{
		client: opts.Client,
		key:    key,
		ttl:    opts.TTL,
	}, nil
}

// Save stores the blob, replacing any previous snapshot.
func (s *RedisStateStore) Save(ctx context.Context, blob []byte) error {
	if err := s.client.Set(ctx, s.key, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}
	return nil
}

// Load returns the most recent snapshot, or ErrNoSnapshot.
func (s *RedisStateStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load scheduler state: %w", err)
	}
	return blob, nil
}
