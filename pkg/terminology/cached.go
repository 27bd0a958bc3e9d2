package terminology

import (
	"context"

	"github.com/gofhir/txaudit/pkg/cache"
)

type codeKey struct {
	system string
	code   string
}

// Cached memoises successful outcomes of an inner Provider for the lifetime
// of one run. Errors are never cached.
type Cached struct {
	inner Provider
	memo  *cache.LRU[codeKey, Outcome]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Provider, size int) *Cached {
	return &Cached{
		inner: inner,
		memo:  cache.New[codeKey, Outcome](size),
	}
}

// ValidateCode returns a memoised outcome or asks the inner provider.
func (c *Cached) ValidateCode(ctx context.Context, system, code string) (*Outcome, error) {
	key := codeKey{system: system, code: code}
	if out, ok := c.memo.Get(key); ok {
		return &out, nil
	}

	out, err := c.inner.ValidateCode(ctx, system, code)
	if err != nil {
		return nil, err
	}
	if out != nil {
		c.memo.Add(key, *out)
	}
	return out, nil
}

// Stats returns memo counters.
func (c *Cached) Stats() cache.Stats {
	return c.memo.Stats()
}
