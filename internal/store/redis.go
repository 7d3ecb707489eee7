package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	backend "github.com/redis/go-redis/v9"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
)

const defaultRedisPrefix = "terminalnator:"

// RedisRepository shares one profile list between operators. Profiles live
// in a hash keyed by id and the id counter in a separate key.
type RedisRepository struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisRepository.
type RedisOption func(*RedisRepository)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedisRepository connects to a Redis server.
func NewRedisRepository(address, password string, db int, opts ...RedisOption) *RedisRepository {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisRepositoryFromClient(client, opts...)
}

// NewRedisRepositoryFromClient wraps an existing client.
func NewRedisRepositoryFromClient(client *backend.Client, opts ...RedisOption) *RedisRepository {
	r := &RedisRepository{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRepository) profilesKey() string { return r.prefix + "profiles" }
func (r *RedisRepository) nextIDKey() string   { return r.prefix + "next_id" }

// Load reads every profile and the id counter.
func (r *RedisRepository) Load(ctx context.Context) (ports.Snapshot, error) {
	var snap ports.Snapshot
	raw, err := r.client.HGetAll(ctx, r.profilesKey()).Result()
	if err != nil {
		return snap, fmt.Errorf("failed to read profiles from redis: %w", err)
	}
	for field, value := range raw {
		var p entities.Profile
		if err := json.Unmarshal([]byte(value), &p); err != nil {
			return snap, fmt.Errorf("failed to decode profile %s: %w", field, err)
		}
		snap.Profiles = append(snap.Profiles, p)
	}
	sort.Slice(snap.Profiles, func(i, j int) bool { return snap.Profiles[i].ID < snap.Profiles[j].ID })

	next, err := r.client.Get(ctx, r.nextIDKey()).Int()
	if err != nil && err != backend.Nil {
		return snap, fmt.Errorf("failed to read profile counter: %w", err)
	}
	snap.NextID = next
	return snap, nil
}

// Save replaces the stored list in one transaction.
func (r *RedisRepository) Save(ctx context.Context, snap ports.Snapshot) error {
	values := make(map[string]interface{}, len(snap.Profiles))
	for _, p := range snap.Profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal profile %d: %w", p.ID, err)
		}
		values[strconv.Itoa(p.ID)] = data
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.profilesKey())
	if len(values) > 0 {
		pipe.HSet(ctx, r.profilesKey(), values)
	}
	pipe.Set(ctx, r.nextIDKey(), snap.NextID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save profiles to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
