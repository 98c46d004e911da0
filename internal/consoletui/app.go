// Package consoletui is the operator console: a chat list, a conversation
// view with the message timeline, and a composer, driven by one bubbletea
// event loop. All state mutations happen inside Update; network work runs
// in commands.
package consoletui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/rs/zerolog"

	"github.com/tgdesk/tgdesk/internal/api"
	"github.com/tgdesk/tgdesk/internal/config"
	"github.com/tgdesk/tgdesk/internal/consoletui/styles"
	"github.com/tgdesk/tgdesk/internal/live"
	"github.com/tgdesk/tgdesk/internal/logging"
	"github.com/tgdesk/tgdesk/internal/uploads"
)

type ViewID string

const (
	ViewChats        ViewID = "chats"
	ViewConversation ViewID = "conversation"
)

type viewModel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int, theme styles.Theme) string
}

// inputCapturer marks views that are currently consuming raw typing, so
// global shortcuts stay out of the way.
type inputCapturer interface {
	InputActive() bool
}

type pushViewMsg struct {
	id ViewID
}

type popViewMsg struct{}

// openConversationMsg routes a chat-list selection into the conversation
// view.
type openConversationMsg struct {
	chat api.Chat
}

type liveEventMsg struct {
	ev live.Event
}

type liveClosedMsg struct{}

func pushViewCmd(id ViewID) tea.Cmd {
	return func() tea.Msg {
		return pushViewMsg{id: id}
	}
}

func popViewCmd() tea.Cmd {
	return func() tea.Msg {
		return popViewMsg{}
	}
}

func openConversationCmd(chat api.Chat) tea.Cmd {
	return func() tea.Msg {
		return openConversationMsg{chat: chat}
	}
}

// Model is the root bubbletea model.
type Model struct {
	cfg     *config.Config
	client  *api.Client
	channel *live.Channel
	session *config.SessionStore
	theme   styles.Theme
	log     zerolog.Logger

	width  int
	height int

	viewStack []ViewID
	views     map[ViewID]viewModel

	chats *chatsView
	conv  *conversationView

	// resume holds the remembered conversation until Init reopens it.
	resume *api.Chat

	statusErr string
}

// NewModel wires the console against a backend.
func NewModel(cfg *config.Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := api.New(cfg.Server.BaseURL, cfg.Server.Token,
		api.WithTimeout(cfg.Server.Timeout),
		api.WithLogger(logging.Component("api")))
	channel := live.Dial(cfg.LiveURL(),
		live.WithToken(cfg.Server.Token),
		live.WithLogger(logging.Component("live")),
		live.WithBackoff(cfg.Live.BackoffBase, cfg.Live.BackoffCap))
	gateway := uploads.New(client, logging.Component("uploads"))

	m := &Model{
		cfg:       cfg,
		client:    client,
		channel:   channel,
		session:   config.NewSessionStore(""),
		theme:     styles.ForName(cfg.TUI.Theme),
		log:       logging.Component("consoletui"),
		viewStack: []ViewID{ViewChats},
		views:     make(map[ViewID]viewModel),
	}
	m.chats = newChatsView(client, cfg, logging.Component("chats"))
	m.conv = newConversationView(client, gateway, cfg, logging.Component("conversation"))
	m.views[ViewChats] = m.chats
	m.views[ViewConversation] = m.conv

	m.restoreSession()
	return m, nil
}

// Run starts the console and blocks until exit.
func Run(cfg *config.Config) error {
	model, err := NewModel(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// Close releases the live channel and persists the session.
func (m *Model) Close() error {
	m.saveSession()
	if m.channel != nil {
		return m.channel.Close()
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForLiveEvent()}
	if view := m.activeView(); view != nil {
		cmds = append(cmds, view.Init())
	}
	if m.resume != nil {
		cmds = append(cmds, openConversationCmd(*m.resume))
		m.resume = nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case liveEventMsg:
		return m, tea.Batch(m.routeLiveEvent(typed.ev), m.waitForLiveEvent())
	case liveClosedMsg:
		return m, nil
	case openConversationMsg:
		m.pushView(ViewConversation)
		m.chats.MarkRead(typed.chat.ID)
		return m, m.conv.SetChat(typed.chat)
	case pushViewMsg:
		m.pushView(typed.id)
		if view := m.activeView(); view != nil {
			return m, view.Init()
		}
		return m, nil
	case popViewMsg:
		m.popView()
		if view := m.activeView(); view != nil {
			return m, view.Init()
		}
		return m, nil
	case authFailedMsg:
		// The backend rejected the operator token: nothing recoverable in
		// this session.
		m.statusErr = "session expired: run `tgdesk` with a fresh TGDESK_SERVER_TOKEN"
		return m, tea.Quit
	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(typed); handled {
			return m, cmd
		}
	}

	if active := m.activeView(); active != nil {
		return m, active.Update(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	active := m.activeView()
	if active == nil {
		return "no active view"
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}
	body := active.View(m.width, contentHeight, m.theme)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if active := m.activeView(); active != nil {
		if capturer, ok := active.(inputCapturer); ok && capturer.InputActive() {
			// Ctrl+C always exits, everything else belongs to the input.
			if msg.String() == "ctrl+c" {
				return tea.Quit, true
			}
			return nil, false
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true
	case "esc", "backspace":
		if m.activeViewID() != ViewChats {
			return popViewCmd(), true
		}
	}
	return nil, false
}

// routeLiveEvent fans a push frame out to the interested views.
func (m *Model) routeLiveEvent(ev live.Event) tea.Cmd {
	var cmds []tea.Cmd
	if cmd := m.conv.ApplyLiveEvent(ev); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := m.chats.ApplyLiveEvent(ev); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// waitForLiveEvent blocks on the push stream and re-arms after each frame.
func (m *Model) waitForLiveEvent() tea.Cmd {
	events := m.channel.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return liveClosedMsg{}
		}
		return liveEventMsg{ev: ev}
	}
}

func (m *Model) renderHeader() string {
	title := "tgdesk"
	crumb := string(m.activeViewID())
	if m.activeViewID() == ViewConversation && m.conv != nil {
		crumb = m.conv.Title()
	}
	left := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Chrome.Header)).Render(title)
	right := m.theme.MutedStyle().Render(crumb)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderFooter() string {
	hint := "q quit  esc back  ? keys in view"
	if m.statusErr != "" {
		return m.theme.ErrorStyle().Render(truncateVis(m.statusErr, maxInt(0, m.width)))
	}
	return m.theme.MutedStyle().Render(truncateVis(hint, maxInt(0, m.width)))
}

func (m *Model) activeView() viewModel {
	return m.views[m.activeViewID()]
}

func (m *Model) activeViewID() ViewID {
	if len(m.viewStack) == 0 {
		return ViewChats
	}
	return m.viewStack[len(m.viewStack)-1]
}

func (m *Model) pushView(id ViewID) {
	if id == "" {
		return
	}
	if _, ok := m.views[id]; !ok {
		return
	}
	if m.activeViewID() == id {
		return
	}
	m.viewStack = append(m.viewStack, id)
}

func (m *Model) popView() {
	if len(m.viewStack) <= 1 {
		return
	}
	m.viewStack = m.viewStack[:len(m.viewStack)-1]
}

func (m *Model) restoreSession() {
	sess, err := m.session.Load()
	if err != nil {
		m.log.Debug().Err(err).Msg("session restore failed")
		return
	}
	if sess.StatusTab != "" {
		m.chats.SetStatusTab(api.ChatStatus(sess.StatusTab))
	}
	if sess.ChatID != "" {
		// The stored title stands in until a chat.patched event or reload
		// brings the server record.
		m.resume = &api.Chat{ID: sess.ChatID, FirstName: sess.ChatTitle}
	}
}

func (m *Model) saveSession() {
	sess := &config.Session{}
	sess.SetStatusTab(string(m.chats.StatusTab()))
	if m.conv != nil && m.conv.chat.ID != "" {
		sess.SetChat(m.conv.chat.ID, m.conv.chat.Title())
	}
	if err := m.session.Save(sess); err != nil {
		m.log.Debug().Err(err).Msg("session save failed")
	}
}

// authFailedMsg is raised by any view when the backend answers 401.
type authFailedMsg struct{}

func authFailedCmd() tea.Cmd {
	return func() tea.Msg {
		return authFailedMsg{}
	}
}

// truncateVis cuts a possibly styled string to a rendered width without
// splitting escape sequences.
func truncateVis(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	return truncate.String(s, uint(max))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
