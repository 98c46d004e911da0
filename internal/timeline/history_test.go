package timeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryLifecycle(t *testing.T) {
	h := NewHistory()
	require.True(t, h.HasMore())
	require.False(t, h.Initialized())
	require.Empty(t, h.Cursor())

	require.True(t, h.Begin())
	require.False(t, h.Begin(), "no concurrent loads")

	h.Apply("cursor-1", true)
	require.True(t, h.Initialized())
	require.Equal(t, "cursor-1", h.Cursor())
	require.True(t, h.HasMore())

	require.True(t, h.Begin())
	h.Apply("", false)
	require.False(t, h.HasMore())
	require.False(t, h.Begin(), "exhausted history never loads again")
}

func TestHistoryFailureKeepsCursor(t *testing.T) {
	h := NewHistory()
	require.True(t, h.Begin())
	h.Apply("cursor-1", true)

	require.True(t, h.Begin())
	h.Fail()
	require.Equal(t, "cursor-1", h.Cursor(), "cursor must not advance on failure")
	require.True(t, h.Begin(), "retry allowed after failure")
}
