package preview

import (
	"context"
	"fmt"

	"github.com/aemlive/rum-proxy/pkg/render"
	"github.com/aemlive/rum-proxy/store"

	"github.com/rs/zerolog"
)

// FailedContentType is stored with failed entries, whose payload is the error text.
const FailedContentType = "text/plain; charset=utf-8"

// Cache is the state machine on top of the object store.
// The absent state is the only one generation may start from.
type Cache struct {
	store store.ObjectStore
	log   zerolog.Logger
}

func NewCache(s store.ObjectStore, logger zerolog.Logger) *Cache {
	return &Cache{store: s, log: logger}
}

// Exists reports whether an entry in any state is stored under key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.store.Head(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return ok, nil
}

// IsReady reports whether a servable image is stored under key,
// i.e. an entry exists and is neither pending nor failed.
func (c *Cache) IsReady(ctx context.Context, key string) (bool, error) {
	meta, ok, err := c.store.Head(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	c.log.Trace().Str("key", key).Bool("exists", ok).Str("state", string(meta.State)).Msg("Checked entry")
	if !ok {
		return false, nil
	}
	return meta.State != store.StatePending && meta.State != store.StateFailed, nil
}

// Read returns the stored payload and content type.
func (c *Cache) Read(ctx context.Context, key string) ([]byte, string, error) {
	data, meta, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	}
	return data, meta.ContentType, nil
}

func (c *Cache) claim(ctx context.Context, key string) error {
	return c.put(ctx, key, nil, store.Metadata{State: store.StatePending})
}

func (c *Cache) markLoaded(ctx context.Context, key string, shot render.Screenshot) error {
	return c.put(ctx, key, shot.Data, store.Metadata{
		State:       store.StateLoaded,
		ContentType: shot.ContentType,
	})
}

func (c *Cache) markFailed(ctx context.Context, key string, cause error) error {
	return c.put(ctx, key, []byte(cause.Error()), store.Metadata{
		State:       store.StateFailed,
		ContentType: FailedContentType,
	})
}

func (c *Cache) put(ctx context.Context, key string, data []byte, meta store.Metadata) error {
	if err := c.store.Put(ctx, key, data, meta); err != nil {
		return fmt.Errorf("store %s entry %s: %w", meta.State, key, err)
	}
	c.log.Trace().Str("key", key).Str("state", string(meta.State)).Msg("Cache write")
	return nil
}
