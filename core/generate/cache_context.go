package generate

import "github.com/slipway-dev/slipway/core/plan"

const (
	APT_CACHE_KEY       = "apt"
	APT_LISTS_CACHE_KEY = "apt-lists"
)

type CacheContext struct {
	Caches map[string]plan.Cache
}

func NewCacheContext() *CacheContext {
	return &CacheContext{
		Caches: make(map[string]plan.Cache),
	}
}

func (c *CacheContext) AddCache(name string, directory string) string {
	c.Caches[name] = plan.NewCache(directory)
	return name
}

func (c *CacheContext) SetCache(name string, cache plan.Cache) {
	c.Caches[name] = cache
}

func (c *CacheContext) GetCache(name string) (plan.Cache, bool) {
	cache, ok := c.Caches[name]
	return cache, ok
}

// GetAptCaches returns the locked caches every apt invocation mounts. Locked
// because dpkg cannot tolerate concurrent writers.
func (c *CacheContext) GetAptCaches() []string {
	if _, ok := c.Caches[APT_CACHE_KEY]; !ok {
		c.Caches[APT_CACHE_KEY] = plan.NewLockedCache("/var/cache/apt")
	}

	if _, ok := c.Caches[APT_LISTS_CACHE_KEY]; !ok {
		c.Caches[APT_LISTS_CACHE_KEY] = plan.NewLockedCache("/var/lib/apt/lists")
	}

	return []string{APT_CACHE_KEY, APT_LISTS_CACHE_KEY}
}
