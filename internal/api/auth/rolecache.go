package auth

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// RoleLookupFunc fetches the role currently stored for an employee id.
// Wired to the employee repository at startup.
type RoleLookupFunc func(ctx context.Context, employeeID int) (string, error)

// RoleCache answers "what role is stored for this employee" with a short TTL
// so every mutating call can re-validate authorization without a store
// round-trip each time. The TTL keeps a demotion from lingering for long.
type RoleCache struct {
	cache  *gocache.Cache
	lookup RoleLookupFunc
}

const (
	roleCacheTTL     = 30 * time.Second
	roleCacheCleanup = 5 * time.Minute
)

func NewRoleCache(lookup RoleLookupFunc) *RoleCache {
	return &RoleCache{
		cache:  gocache.New(roleCacheTTL, roleCacheCleanup),
		lookup: lookup,
	}
}

// RoleByID returns the stored role for an employee, consulting the cache
// first. Lookup failures are never cached.
func (c *RoleCache) RoleByID(ctx context.Context, employeeID int) (string, error) {
	key := fmt.Sprintf("%d", employeeID)
	if cached, found := c.cache.Get(key); found {
		return cached.(string), nil
	}

	role, err := c.lookup(ctx, employeeID)
	if err != nil {
		return "", err
	}

	c.cache.SetDefault(key, role)
	return role, nil
}

// Invalidate drops a cached role, used right after a role change so the new
// value takes effect immediately.
func (c *RoleCache) Invalidate(employeeID int) {
	c.cache.Delete(fmt.Sprintf("%d", employeeID))
}
