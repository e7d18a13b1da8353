package session

import (
	"time"

	"catalogue-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry is one stored search result: the query that produced it and one
// grouped candidate document, kept so an explanation can be requested later
// without re-running retrieval.
type Entry struct {
	Query    string
	Document domain.GroupedDocument
}

// Store holds search results between the search and explain calls of one
// user interaction. Entries expire rather than accumulate; an expired or
// evicted result id simply means the caller has to search again.
type Store struct {
	cache *expirable.LRU[string, Entry]
}

// NewStore creates a session store with the given capacity and TTL.
func NewStore(capacity int, ttl time.Duration) *Store {
	return &Store{
		cache: expirable.NewLRU[string, Entry](capacity, nil, ttl),
	}
}

// Put stores an entry and returns its result id.
func (s *Store) Put(entry Entry) string {
	id := uuid.New().String()
	s.cache.Add(id, entry)
	return id
}

// Get looks up a result id. ok is false when the id is unknown or expired.
func (s *Store) Get(id string) (Entry, bool) {
	return s.cache.Get(id)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.cache.Len()
}
