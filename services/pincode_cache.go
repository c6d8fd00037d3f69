package services

import (
	"sync"
	"time"

	"snapfix-server/models"
)

type cachedPincode struct {
	data      models.PincodeData
	expiresAt time.Time
}

// MemoryPincodeCache is the process-local tier of the pincode resolver.
// Entries carry their own expiry; readers ignore expired entries and
// PruneExpired removes them.
type MemoryPincodeCache struct {
	entries sync.Map // pincode -> cachedPincode
}

func NewMemoryPincodeCache() *MemoryPincodeCache {
	return &MemoryPincodeCache{}
}

// Get returns the cached data if present and still valid at now.
func (c *MemoryPincodeCache) Get(pincode string, now time.Time) (models.PincodeData, bool) {
	v, ok := c.entries.Load(pincode)
	if !ok {
		return models.PincodeData{}, false
	}
	entry := v.(cachedPincode)
	if !entry.expiresAt.After(now) {
		return models.PincodeData{}, false
	}
	return entry.data, true
}

func (c *MemoryPincodeCache) Set(data models.PincodeData, expiresAt time.Time) {
	c.entries.Store(data.Pincode, cachedPincode{data: data, expiresAt: expiresAt})
}

// PruneExpired drops every entry that has expired at now and returns how many were removed.
func (c *MemoryPincodeCache) PruneExpired(now time.Time) int {
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if !value.(cachedPincode).expiresAt.After(now) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (c *MemoryPincodeCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
