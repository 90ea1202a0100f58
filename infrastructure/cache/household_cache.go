package cache

import (
	"sync"
	"time"

	"fridge/models"
)

type householdEntry struct {
	household models.Household
	lastSeen  time.Time
}

// HouseholdCache stores households by token. Find refreshes an entry; entries
// not found within the idle TTL are dropped by EvictIdle.
type HouseholdCache struct {
	mu         sync.Mutex
	households map[string]householdEntry
	now        func() time.Time
}

func NewHouseholdCache() *HouseholdCache {
	return &HouseholdCache{households: make(map[string]householdEntry), now: time.Now}
}

func (c *HouseholdCache) Add(h models.Household) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.households[h.ID] = householdEntry{household: h, lastSeen: c.now()}
}

func (c *HouseholdCache) Find(token string) (models.Household, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.households[token]
	if !ok {
		return models.Household{}, false
	}
	e.lastSeen = c.now()
	c.households[token] = e
	return e.household, true
}

func (c *HouseholdCache) Delete(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.households, token)
}

func (c *HouseholdCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.households)
}

// EvictIdle removes households not seen for ttl and reports how many went.
func (c *HouseholdCache) EvictIdle(ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for token, e := range c.households {
		if e.lastSeen.After(cutoff) {
			continue
		}
		delete(c.households, token)
		n++
	}
	return n
}
