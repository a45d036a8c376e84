package cache

import (
	"context"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
)

// Layered fronts a shared cache with a local LRU. Remote hits are copied
// into the LRU; writes go to both.
type Layered struct {
	local  *LRU
	remote dashboard.ViewCache
}

// NewLayered creates a Layered cache.
func NewLayered(local *LRU, remote dashboard.ViewCache) *Layered {
	return &Layered{local: local, remote: remote}
}

func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := l.local.Get(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := l.remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.local.Set(ctx, key, b)
	return b, true, nil
}

func (l *Layered) Set(ctx context.Context, key string, value []byte) error {
	_ = l.local.Set(ctx, key, value)
	return l.remote.Set(ctx, key, value)
}
