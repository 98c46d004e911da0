package consoletui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/tgdesk/tgdesk/internal/api"
	"github.com/tgdesk/tgdesk/internal/config"
	"github.com/tgdesk/tgdesk/internal/consoletui/styles"
	"github.com/tgdesk/tgdesk/internal/live"
)

const chatsRequestTimeout = 15 * time.Second

// statusTabs is the tab order; empty filter means all chats.
var statusTabs = []api.ChatStatus{"", api.StatusNew, api.StatusActive, api.StatusEscalated, api.StatusClosed}

type chatsLoadedMsg struct {
	generation int
	reset      bool
	page       api.ChatPage
	err        error
}

// chatsView lists conversations with status tabs and cursor pagination.
type chatsView struct {
	client *api.Client
	cfg    *config.Config
	log    zerolog.Logger

	tab        api.ChatStatus
	items      []api.Chat
	cursor     string
	hasMore    bool
	loading    bool
	generation int

	selected int
	top      int

	spinner spinner.Model
	lastErr error
}

func newChatsView(client *api.Client, cfg *config.Config, log zerolog.Logger) *chatsView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &chatsView{
		client:  client,
		cfg:     cfg,
		log:     log,
		hasMore: true,
		spinner: sp,
	}
}

func (v *chatsView) Init() tea.Cmd {
	if len(v.items) == 0 && !v.loading {
		return v.reloadCmd()
	}
	return nil
}

// StatusTab returns the active filter.
func (v *chatsView) StatusTab() api.ChatStatus {
	return v.tab
}

// SetStatusTab restores a remembered filter without reloading.
func (v *chatsView) SetStatusTab(tab api.ChatStatus) {
	for _, t := range statusTabs {
		if t == tab {
			v.tab = tab
			return
		}
	}
}

func (v *chatsView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case chatsLoadedMsg:
		return v.applyLoaded(typed)
	case spinner.TickMsg:
		if !v.loading {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(typed)
		return cmd
	case tea.KeyMsg:
		return v.handleKey(typed)
	}
	return nil
}

func (v *chatsView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		return v.moveSelection(1)
	case "k", "up":
		v.moveSelection(-1)
		return nil
	case "g":
		v.selected = 0
		v.top = 0
		return nil
	case "G", "end":
		v.selected = maxInt(0, len(v.items)-1)
		return nil
	case "[":
		return v.switchTab(-1)
	case "]":
		return v.switchTab(1)
	case "r":
		return v.reloadCmd()
	case "enter":
		if v.selected >= 0 && v.selected < len(v.items) {
			return openConversationCmd(v.items[v.selected])
		}
	}
	return nil
}

// moveSelection shifts the cursor and requests the next page when the
// selection hits the loaded end with more history available.
func (v *chatsView) moveSelection(delta int) tea.Cmd {
	if len(v.items) == 0 {
		v.selected = 0
		v.top = 0
		return nil
	}
	v.selected = clampInt(v.selected+delta, 0, len(v.items)-1)
	if delta > 0 && v.selected == len(v.items)-1 && v.hasMore && !v.loading {
		return v.loadMoreCmd()
	}
	return nil
}

func (v *chatsView) switchTab(delta int) tea.Cmd {
	idx := 0
	for i, t := range statusTabs {
		if t == v.tab {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(statusTabs)) % len(statusTabs)
	v.tab = statusTabs[idx]
	return v.reloadCmd()
}

// reloadCmd drops loaded pages and fetches the newest page for the tab.
func (v *chatsView) reloadCmd() tea.Cmd {
	v.generation++
	v.items = nil
	v.cursor = ""
	v.hasMore = true
	v.loading = true
	v.selected = 0
	v.top = 0
	return tea.Batch(v.fetchCmd(v.generation, "", true), v.spinner.Tick)
}

func (v *chatsView) loadMoreCmd() tea.Cmd {
	v.loading = true
	return tea.Batch(v.fetchCmd(v.generation, v.cursor, false), v.spinner.Tick)
}

func (v *chatsView) fetchCmd(generation int, cursor string, reset bool) tea.Cmd {
	client := v.client
	tab := v.tab
	limit := v.cfg.Timeline.ChatPageSize
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), chatsRequestTimeout)
		defer cancel()
		page, err := client.Chats(ctx, tab, cursor, limit)
		return chatsLoadedMsg{generation: generation, reset: reset, page: page, err: err}
	}
}

func (v *chatsView) applyLoaded(msg chatsLoadedMsg) tea.Cmd {
	if msg.generation != v.generation {
		return nil
	}
	v.loading = false
	v.lastErr = msg.err
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return authFailedCmd()
		}
		// Cursor untouched; the next load retries the same page.
		return nil
	}
	if msg.reset {
		v.items = nil
	}
	seen := make(map[string]struct{}, len(v.items))
	for i := range v.items {
		seen[v.items[i].ID] = struct{}{}
	}
	for _, chat := range msg.page.Items {
		if _, dup := seen[chat.ID]; dup {
			continue
		}
		v.items = append(v.items, chat)
	}
	v.cursor = msg.page.NextCursor
	v.hasMore = msg.page.HasMore
	v.selected = clampInt(v.selected, 0, maxInt(0, len(v.items)-1))
	return nil
}

// ApplyLiveEvent keeps list rows fresh from push frames.
func (v *chatsView) ApplyLiveEvent(ev live.Event) tea.Cmd {
	switch ev.Event {
	case live.EventChatPatched:
		var chat api.Chat
		if err := ev.Decode(&chat); err != nil {
			v.log.Debug().Err(err).Msg("bad chat.patched payload")
			return nil
		}
		v.patchChat(chat)
	case live.EventMessageNew:
		var payload struct {
			ChatID string `json:"chat_id"`
		}
		if err := ev.Decode(&payload); err != nil {
			return nil
		}
		v.bumpUnread(payload.ChatID)
	}
	return nil
}

func (v *chatsView) patchChat(chat api.Chat) {
	for i := range v.items {
		if v.items[i].ID == chat.ID {
			v.items[i] = chat
			return
		}
	}
}

func (v *chatsView) bumpUnread(chatID string) {
	for i := range v.items {
		if v.items[i].ID == chatID {
			v.items[i].UnreadCount++
			return
		}
	}
}

// MarkRead zeroes the unread badge locally after a conversation opens.
func (v *chatsView) MarkRead(chatID string) {
	for i := range v.items {
		if v.items[i].ID == chatID {
			v.items[i].UnreadCount = 0
			return
		}
	}
}

func (v *chatsView) View(width, height int, theme styles.Theme) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	tabs := v.renderTabs(width, theme)
	listHeight := height - lipgloss.Height(tabs)
	if listHeight < 1 {
		listHeight = 1
	}

	body := v.renderList(width, listHeight, theme)
	content := lipgloss.JoinVertical(lipgloss.Left, tabs, body)
	if v.lastErr != nil {
		errLine := theme.ErrorStyle().Render(truncateVis("load error: "+v.lastErr.Error(), maxInt(0, width)))
		content = lipgloss.JoinVertical(lipgloss.Left, content, errLine)
	}
	return content
}

func (v *chatsView) renderTabs(width int, theme styles.Theme) string {
	parts := make([]string, 0, len(statusTabs))
	for _, t := range statusTabs {
		label := string(t)
		if label == "" {
			label = "ALL"
		}
		if t == v.tab {
			parts = append(parts, theme.AccentStyle().Bold(true).Render("["+label+"]"))
		} else {
			parts = append(parts, theme.MutedStyle().Render(" "+label+" "))
		}
	}
	return truncateVis(strings.Join(parts, " "), width)
}

func (v *chatsView) renderList(width, height int, theme styles.Theme) string {
	if len(v.items) == 0 {
		if v.loading {
			return v.spinner.View() + theme.MutedStyle().Render("loading chats")
		}
		return theme.MutedStyle().Render("No chats")
	}

	if v.selected < v.top {
		v.top = v.selected
	}
	if v.selected >= v.top+height {
		v.top = v.selected - height + 1
	}
	v.top = clampInt(v.top, 0, maxInt(0, len(v.items)-1))

	out := make([]string, 0, height)
	for i := v.top; i < len(v.items) && len(out) < height; i++ {
		out = append(out, v.renderRow(v.items[i], width, i == v.selected, theme))
	}
	if v.hasMore && len(out) < height {
		out = append(out, theme.MutedStyle().Render("  ... more (j to load)"))
	}
	return strings.Join(out, "\n")
}

func (v *chatsView) renderRow(chat api.Chat, width int, selected bool, theme styles.Theme) string {
	marker := "  "
	if selected {
		marker = theme.AccentStyle().Render("> ")
	}

	status := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.StatusColor(string(chat.Status)))).Render(string(chat.Status))
	title := chat.Title()
	if selected {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}

	unread := ""
	if chat.UnreadCount > 0 {
		unread = theme.AccentStyle().Bold(true).Render(fmt.Sprintf(" (%d)", chat.UnreadCount))
	}
	preview := strings.ReplaceAll(chat.LastMessagePreview, "\n", " ")

	line := fmt.Sprintf("%s%-9s %s%s  %s", marker, status, title, unread, theme.MutedStyle().Render(preview))
	return truncateVis(line, width)
}
