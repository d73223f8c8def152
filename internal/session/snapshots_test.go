package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/undercurrent/internal/session"
)

func TestKey_Normalizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, session.Key([]string{"golang", "rust"}), session.Key([]string{" Rust", "GOLANG"}),
		"order, case and whitespace must not matter")
	assert.NotEqual(t, session.Key([]string{"golang"}), session.Key([]string{"golang", "rust"}))
}

func TestSnapshotStore_SaveLoadLatest(t *testing.T) {
	t.Parallel()

	store := session.NewSnapshotStore(time.Minute)

	_, ok := store.Load("nothing")
	assert.False(t, ok)
	_, ok = store.Latest()
	assert.False(t, ok)

	first := json.RawMessage(`{"n":1}`)
	second := json.RawMessage(`{"n":2}`)
	store.Save(session.Key([]string{"golang"}), first)
	store.Save(session.Key([]string{"rust"}), second)

	got, ok := store.Load(session.Key([]string{"golang"}))
	require.True(t, ok)
	assert.JSONEq(t, string(first), string(got))

	latest, ok := store.Latest()
	require.True(t, ok)
	assert.JSONEq(t, string(second), string(latest))
}

func TestSnapshotStore_Expires(t *testing.T) {
	t.Parallel()

	store := session.NewSnapshotStore(20 * time.Millisecond)
	store.Save("k", json.RawMessage(`{}`))

	_, ok := store.Load("k")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = store.Load("k")
	assert.False(t, ok, "snapshots are not kept past their TTL")
}
