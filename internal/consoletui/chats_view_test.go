package consoletui

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tgdesk/tgdesk/internal/api"
	"github.com/tgdesk/tgdesk/internal/config"
	"github.com/tgdesk/tgdesk/internal/live"
)

func newTestChats(t *testing.T) *chatsView {
	t.Helper()
	client := api.New("http://backend.invalid", "token")
	return newChatsView(client, config.DefaultConfig(), zerolog.Nop())
}

func chatPage(prefix string, count int) []api.Chat {
	items := make([]api.Chat, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, api.Chat{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Status:    api.StatusActive,
			FirstName: "User " + prefix,
		})
	}
	return items
}

func TestChatsPaginationDedupes(t *testing.T) {
	v := newTestChats(t)
	require.NotNil(t, v.Init())

	v.Update(chatsLoadedMsg{generation: v.generation, reset: true, page: api.ChatPage{
		Items: chatPage("a", 30), NextCursor: "c1", HasMore: true,
	}})
	require.Len(t, v.items, 30)

	// Overlapping redelivery must not duplicate rows.
	overlap := append(chatPage("a", 5), chatPage("b", 25)...)
	v.Update(chatsLoadedMsg{generation: v.generation, page: api.ChatPage{
		Items: overlap, NextCursor: "c2", HasMore: false,
	}})
	require.Len(t, v.items, 55)
	require.False(t, v.hasMore)
}

func TestChatsLoadErrorKeepsCursor(t *testing.T) {
	v := newTestChats(t)
	v.Update(chatsLoadedMsg{generation: v.generation, reset: true, page: api.ChatPage{
		Items: chatPage("a", 30), NextCursor: "c1", HasMore: true,
	}})

	v.loading = true
	v.Update(chatsLoadedMsg{generation: v.generation, err: errors.New("boom")})
	require.Error(t, v.lastErr)
	require.Equal(t, "c1", v.cursor)
	require.False(t, v.loading)
}

func TestChatsTabSwitchResetsGeneration(t *testing.T) {
	v := newTestChats(t)
	v.Update(chatsLoadedMsg{generation: v.generation, reset: true, page: api.ChatPage{
		Items: chatPage("a", 10),
	}})
	stale := v.generation

	cmd := v.switchTab(1)
	require.NotNil(t, cmd)
	require.Equal(t, api.StatusNew, v.tab)
	require.Empty(t, v.items)

	// A page from the previous tab arrives late and is discarded.
	v.Update(chatsLoadedMsg{generation: stale, reset: true, page: api.ChatPage{
		Items: chatPage("a", 10),
	}})
	require.Empty(t, v.items)
}

func TestChatsLiveEventsUpdateRows(t *testing.T) {
	v := newTestChats(t)
	v.Update(chatsLoadedMsg{generation: v.generation, reset: true, page: api.ChatPage{
		Items: chatPage("a", 3),
	}})

	raw, err := json.Marshal(map[string]string{"chat_id": "a-1"})
	require.NoError(t, err)
	v.ApplyLiveEvent(live.Event{Event: live.EventMessageNew, Data: raw})
	v.ApplyLiveEvent(live.Event{Event: live.EventMessageNew, Data: raw})
	require.Equal(t, 2, v.items[1].UnreadCount)

	patched, err := json.Marshal(api.Chat{ID: "a-2", Status: api.StatusClosed, FirstName: "User a"})
	require.NoError(t, err)
	v.ApplyLiveEvent(live.Event{Event: live.EventChatPatched, Data: patched})
	require.Equal(t, api.StatusClosed, v.items[2].Status)

	v.MarkRead("a-1")
	require.Zero(t, v.items[1].UnreadCount)
}

func TestChatsSelectionTriggersLoadMoreAtEnd(t *testing.T) {
	v := newTestChats(t)
	v.Update(chatsLoadedMsg{generation: v.generation, reset: true, page: api.ChatPage{
		Items: chatPage("a", 3), NextCursor: "c1", HasMore: true,
	}})

	require.Nil(t, v.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}))
	cmd := v.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	require.NotNil(t, cmd) // hit the loaded end with more available
	require.True(t, v.loading)
}
