package session_test

import (
	"testing"
	"time"

	"catalogue-rag/internal/domain"
	"catalogue-rag/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	store := session.NewStore(8, time.Minute)

	entry := session.Entry{
		Query: "population density",
		Document: domain.GroupedDocument{
			Content:  "chunk text",
			Metadata: domain.Metadata{ID: "study-1", Title: "Census"},
		},
	}
	id := store.Put(entry)
	require.NotEmpty(t, id)

	got, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestStore_UnknownID(t *testing.T) {
	store := session.NewStore(8, time.Minute)

	_, ok := store.Get("no-such-id")
	assert.False(t, ok)
}

func TestStore_UniqueIDs(t *testing.T) {
	store := session.NewStore(8, time.Minute)

	a := store.Put(session.Entry{Query: "a"})
	b := store.Put(session.Entry{Query: "b"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Len())
}

func TestStore_CapacityEvictsOldest(t *testing.T) {
	store := session.NewStore(2, time.Minute)

	first := store.Put(session.Entry{Query: "first"})
	store.Put(session.Entry{Query: "second"})
	store.Put(session.Entry{Query: "third"})

	_, ok := store.Get(first)
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())
}
