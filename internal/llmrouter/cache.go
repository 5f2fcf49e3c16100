package llmrouter

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/automaton-run/automaton/internal/core"
)

// providerCache memoizes constructed core.Inference clients by provider
// name so the Router does not re-dial an HTTP or genai client on every
// call — there are only ever a handful of distinct providers in the
// registry, but construction (TLS config, auth) is worth skipping on a
// path this hot.
type providerCache struct {
	cache *lru.Cache[string, core.Inference]
}

func newProviderCache(size int) (*providerCache, error) {
	c, err := lru.New[string, core.Inference](size)
	if err != nil {
		return nil, err
	}
	return &providerCache{cache: c}, nil
}

func (pc *providerCache) get(name string) (core.Inference, bool) {
	return pc.cache.Get(name)
}

func (pc *providerCache) put(name string, p core.Inference) {
	pc.cache.Add(name, p)
}
