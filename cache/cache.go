package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/blockcrawl/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  *models.ExtractResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for extraction responses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a new Cache with the given maximum number of entries.
// A background goroutine runs every 5 minutes to evict entries older
// than 1 hour until Close is called.
func New(maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        time.Hour,
		stop:       make(chan struct{}),
	}

	go c.cleanupLoop(5 * time.Minute)
	return c
}

// keyInput is the part of a request that determines its result.
type keyInput struct {
	URL         string                 `json:"u"`
	RequestMode string                 `json:"r"`
	ParseMode   string                 `json:"p"`
	Block       string                 `json:"b"`
	Fields      []models.Field         `json:"f"`
	Processors  []models.ProcessorSpec `json:"x"`
}

// Key derives a cache key from everything that influences the result of
// an extraction request. Webhook settings and max_age are ignored.
func Key(req *models.ExtractRequest) string {
	in := keyInput{
		URL:         req.URL,
		RequestMode: strings.ToLower(req.RequestMode),
		ParseMode:   strings.ToLower(req.ParseMode),
		Block:       req.BlockSelector,
		Fields:      req.Fields,
		Processors:  req.Processors,
	}
	// Marshalling plain structs and slices cannot fail.
	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Get retrieves a cached response if it exists and is younger than maxAge.
// maxAge is in milliseconds. If maxAge <= 0, no cache lookup is performed.
// The returned response is a shallow copy safe to annotate.
func (c *Cache) Get(key string, maxAgeMs int) (*models.ExtractResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}

	resp := *e.response
	return &resp, true
}

// Set stores a response in the cache. If the cache is at capacity,
// a random entry is evicted to make room.
func (c *Cache) Set(key string, resp *models.ExtractResponse) {
	stored := *resp
	stored.CacheStatus = ""
	stored.JobID = ""

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  &stored,
		createdAt: time.Now(),
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the background eviction loop.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.evictBefore(now.Add(-c.ttl))
		}
	}
}

func (c *Cache) evictBefore(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
