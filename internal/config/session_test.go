package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewSessionStore(path)

	// Missing file is an empty session, not an error.
	sess, err := store.Load()
	require.NoError(t, err)
	require.True(t, sess.IsEmpty())

	sess.SetChat("chat-42", "Alice")
	sess.SetStatusTab("ACTIVE")
	require.NoError(t, store.Save(sess))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "chat-42", loaded.ChatID)
	require.Equal(t, "Alice", loaded.ChatTitle)
	require.Equal(t, "ACTIVE", loaded.StatusTab)
	require.False(t, loaded.UpdatedAt.IsZero())
}

func TestSessionStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewSessionStore(path)

	sess := &Session{}
	sess.SetChat("chat-1", "Bob")
	require.NoError(t, store.Save(sess))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing a missing file is fine")

	loaded, err := store.Load()
	require.NoError(t, err)
	require.True(t, loaded.IsEmpty())
}

func TestSessionString(t *testing.T) {
	sess := &Session{}
	require.Equal(t, "(no session)", sess.String())

	sess.SetChat("chat-1234567890", "")
	sess.SetStatusTab("NEW")
	require.Equal(t, "chat:chat-123 tab:NEW", sess.String())
}
