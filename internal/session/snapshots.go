package session

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const latestKey = "__latest"

// SnapshotStore keeps completed analysis payloads loadable for a while, so
// a repeat request over the same namespaces can skip acquisition entirely.
// Purely in-memory; entries expire after the configured TTL.
type SnapshotStore struct {
	cache *cache.Cache
}

func NewSnapshotStore(ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &SnapshotStore{cache: cache.New(ttl, 10*time.Minute)}
}

// Key normalizes a namespace set into a stable cache key.
func Key(subreddits []string) string {
	names := make([]string, 0, len(subreddits))
	for _, s := range subreddits {
		names = append(names, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

func (s *SnapshotStore) Save(key string, payload json.RawMessage) {
	s.cache.Set(key, payload, cache.DefaultExpiration)
	s.cache.Set(latestKey, payload, cache.DefaultExpiration)
}

func (s *SnapshotStore) Load(key string) (json.RawMessage, bool) {
	if x, found := s.cache.Get(key); found {
		return x.(json.RawMessage), true
	}
	return nil, false
}

// Latest returns the most recently saved payload, if it hasn't expired.
func (s *SnapshotStore) Latest() (json.RawMessage, bool) {
	return s.Load(latestKey)
}
