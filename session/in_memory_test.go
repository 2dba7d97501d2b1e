package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_GetCreatesLazily(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Empty(t, sess.GetTurns())
}

func TestInMemoryStore_AppendTurnPreservesOrder(t *testing.T) {
	store := NewInMemoryStore()

	for i := 0; i < 10; i++ {
		err := store.AppendTurn("s1", Turn{
			ID:        fmt.Sprintf("turn-%d", i),
			Utterance: fmt.Sprintf("question %d", i),
			Response:  fmt.Sprintf("answer %d", i),
		})
		require.NoError(t, err)
	}

	sess, err := store.Get("s1")
	require.NoError(t, err)
	turns := sess.GetTurns()
	require.Len(t, turns, 10)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("turn-%d", i), turn.ID)
		assert.False(t, turn.Timestamp.IsZero())
	}
}

func TestInMemoryStore_ApplyState(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.ApplyState("s1", map[string]string{"name": "Ada", "role": "Investigator"}))
	require.NoError(t, store.ApplyState("s1", map[string]string{"role": "Research Administrator"}))

	sess, err := store.Get("s1")
	require.NoError(t, err)
	name, ok := sess.GetState("name")
	require.True(t, ok)
	assert.Equal(t, "Ada", name)
	role, ok := sess.GetState("role")
	require.True(t, ok)
	assert.Equal(t, "Research Administrator", role)
}

func TestInMemoryStore_GetReturnsClone(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.AppendTurn("s1", Turn{ID: "t1", Utterance: "hi", Response: "hello"}))

	first, err := store.Get("s1")
	require.NoError(t, err)
	first.SetState("name", "Mallory")

	second, err := store.Get("s1")
	require.NoError(t, err)
	_, ok := second.GetState("name")
	assert.False(t, ok, "mutating a returned session must not affect the store")
}

func TestInMemoryStore_EvictIdle(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.AppendTurn("stale", Turn{ID: "t1", Utterance: "hi", Response: "hello"}))
	require.NoError(t, store.AppendTurn("fresh", Turn{ID: "t2", Utterance: "hi", Response: "hello"}))

	// Age the stale session directly; the janitor only looks at Updated.
	store.mu.Lock()
	store.sessions["stale"].Updated = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	evicted := store.EvictIdle(30 * time.Minute)
	assert.Equal(t, 1, evicted)

	// The evicted session comes back empty, the fresh one keeps its history.
	stale, err := store.Get("stale")
	require.NoError(t, err)
	assert.Empty(t, stale.GetTurns())

	fresh, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Len(t, fresh.GetTurns(), 1)
}

func TestSession_History(t *testing.T) {
	sess := NewSession("s1")
	sess.AppendTurn(Turn{ID: "t1", Utterance: "create a project", Response: "Done, created it."})
	sess.AppendTurn(Turn{ID: "t2", Utterance: "list projects", Response: "One project found."})

	history := sess.History()
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "create a project", history[0].Text)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "Done, created it.", history[1].Text)
	assert.Equal(t, "list projects", history[2].Text)
	assert.Equal(t, "One project found.", history[3].Text)
}

func TestSession_CloneDiverges(t *testing.T) {
	sess := NewSession("s1")
	sess.SetState("name", "Ada")
	sess.AppendTurn(Turn{ID: "t1", Utterance: "hi", Response: "hello"})

	clone := sess.Clone()
	clone.SetState("name", "Grace")
	clone.AppendTurn(Turn{ID: "t2", Utterance: "bye", Response: "goodbye"})

	name, _ := sess.GetState("name")
	assert.Equal(t, "Ada", name)
	assert.Len(t, sess.GetTurns(), 1)
	assert.Len(t, clone.GetTurns(), 2)
}
