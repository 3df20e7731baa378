package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// AccessCache remembers credentials that passed an access check. It is the
// only state shared between runs, so implementations must be safe for
// concurrent use. Only successes are ever written.
type AccessCache interface {
	Verified(ctx context.Context, key string) bool
	MarkVerified(ctx context.Context, key string) error
}

// AccessKey derives the cache key for a credential of origin.
func AccessKey(credential, origin string) string {
	hash := sha256.Sum256([]byte(credential + origin))
	return "access:" + hex.EncodeToString(hash[:])
}

type MemoryAccessCache struct {
	verified sync.Map
}

func NewMemoryAccessCache() *MemoryAccessCache {
	return &MemoryAccessCache{}
}

func (c *MemoryAccessCache) Verified(_ context.Context, key string) bool {
	_, ok := c.verified.Load(key)
	return ok
}

func (c *MemoryAccessCache) MarkVerified(_ context.Context, key string) error {
	c.verified.LoadOrStore(key, struct{}{})
	return nil
}
