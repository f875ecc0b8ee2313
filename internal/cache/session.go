package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/opencustomize/opencustomize/internal/domain"
)

// defaultSessionCapacity bounds the in-memory session tier so a
// preparation spanning many specs and generators cannot grow it without
// limit; entries are content-addressed and idempotent, so eviction only
// costs a re-resolve, never correctness (spec.md §5).
const defaultSessionCapacity = 4096

// SessionCache is the first cache tier (spec.md §4.8): an in-memory,
// thread-safe map shared across every spec in one preparation, keyed by
// (generatorId, generatorVersion, templateName).
type SessionCache struct {
	mu sync.Mutex
	lc *lru.Cache[string, domain.TemplateBody]
}

// NewSessionCache builds a SessionCache with the default capacity.
func NewSessionCache() *SessionCache {
	lc, _ := lru.New[string, domain.TemplateBody](defaultSessionCapacity)
	return &SessionCache{lc: lc}
}

func sessionKey(generator domain.GeneratorId, version string, name domain.TemplateName) string {
	return fmt.Sprintf("%s\x00%s\x00%s", generator, version, name)
}

// Get returns a previously stored body for the key, if present.
func (c *SessionCache) Get(generator domain.GeneratorId, version string, name domain.TemplateName) (domain.TemplateBody, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lc.Get(sessionKey(generator, version, name))
}

// Put stores body for the key. Writes are idempotent: the same key always
// maps to the same content, so concurrent writers racing on the same key
// never produce an inconsistent read (spec.md §5).
func (c *SessionCache) Put(generator domain.GeneratorId, version string, name domain.TemplateName, body domain.TemplateBody) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lc.Add(sessionKey(generator, version, name), body)
}
