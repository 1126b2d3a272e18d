package service

import (
	"time"

	expirable "github.com/go-pkgz/expirable-cache/v3"
)

// ResultCache remembers dispatched calls by an idempotency key supplied in
// a request envelope, so a client that retries a request (after a dropped
// reply, say) gets the original Call back instead of triggering the method
// a second time. There is no counterpart in the source; librpc calls are
// fire-and-forget as far as duplicate suppression goes, and this is a
// Go-idiomatic addition for callers that want at-least-once delivery
// without at-least-once side effects.
type ResultCache struct {
	calls *expirable.Cache[string, *Call]
}

// NewResultCache returns a ResultCache whose entries expire after ttl.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{calls: expirable.NewCache[string, *Call]().WithTTL(ttl)}
}

// Remember records call under key, once it has been dispatched.
func (r *ResultCache) Remember(key string, call *Call) {
	if r == nil || key == "" {
		return
	}
	r.calls.Set(key, call, 0)
}

// Lookup returns the previously dispatched Call for key, if one is still
// cached.
func (r *ResultCache) Lookup(key string) (*Call, bool) {
	if r == nil || key == "" {
		return nil, false
	}
	return r.calls.Get(key)
}
