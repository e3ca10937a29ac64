package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldState       = "state"
	fieldContentType = "content_type"
	fieldBytes       = "bytes"
)

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	// Prefix is prepended to every object key.
	KeyPrefix string `yaml:"keyPrefix"`
}

// RedisStore keeps every object in a hash holding its state, content type and payload.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrUnavailable, cfg.Addr, err)
	}
	return &RedisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *RedisStore) fullKey(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Head(ctx context.Context, key string) (Metadata, bool, error) {
	vals, err := r.client.HMGet(ctx, r.fullKey(key), fieldState, fieldContentType).Result()
	if err != nil {
		return Metadata{}, false, fmt.Errorf("%w: head %s: %v", ErrUnavailable, key, err)
	}
	// HMGET yields nil for every field of a missing hash
	state, ok := vals[0].(string)
	if !ok {
		return Metadata{}, false, nil
	}
	ct, _ := vals[1].(string)
	return Metadata{State: State(state), ContentType: ct}, true, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, Metadata, error) {
	fields, err := r.client.HGetAll(ctx, r.fullKey(key)).Result()
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	state, ok := fields[fieldState]
	if !ok {
		return nil, Metadata{}, ErrNotFound
	}
	meta := Metadata{State: State(state), ContentType: fields[fieldContentType]}
	return []byte(fields[fieldBytes]), meta, nil
}

// Put replaces the whole hash in a single transaction so no stale fields survive.
func (r *RedisStore) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	k := r.fullKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldState, string(meta.State),
			fieldContentType, meta.ContentType,
			fieldBytes, data,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
