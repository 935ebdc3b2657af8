package data

import (
	"crypto/sha256"
	"encoding/hex"

	"CampusLink/pkg/priority"

	lru "github.com/hashicorp/golang-lru/v2"
)

// triageCacheSize bounds the in-process cache of triage results. Scoring is
// pure, so identical description+system pairs always produce the same
// result and can be memoized without invalidation.
const triageCacheSize = 1024

// TriageCache memoizes priority analysis results in-process, keyed by a
// hash of the scored text. It sits in front of the pure scorer so repeated
// submissions of the same incident (duplicate reports during an outage)
// skip the pattern scan entirely.
type TriageCache struct {
	cache *lru.Cache[string, *priority.Result]
}

// NewTriageCache creates a bounded triage result cache.
func NewTriageCache() (*TriageCache, error) {
	c, err := lru.New[string, *priority.Result](triageCacheSize)
	if err != nil {
		return nil, err
	}
	return &TriageCache{cache: c}, nil
}

// Key derives the cache key for a description+system pair.
func (t *TriageCache) Key(description, system string) string {
	sum := sha256.Sum256([]byte(description + "|" + system))
	return hex.EncodeToString(sum[:])
}

// Get returns the memoized result for a key, if present.
func (t *TriageCache) Get(key string) (*priority.Result, bool) {
	return t.cache.Get(key)
}

// Add stores a result under a key.
func (t *TriageCache) Add(key string, result *priority.Result) {
	t.cache.Add(key, result)
}

// Len returns the number of memoized results.
func (t *TriageCache) Len() int {
	return t.cache.Len()
}
