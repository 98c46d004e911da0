package consoletui

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tgdesk/tgdesk/internal/api"
	"github.com/tgdesk/tgdesk/internal/config"
	"github.com/tgdesk/tgdesk/internal/consoletui/styles"
	"github.com/tgdesk/tgdesk/internal/live"
	"github.com/tgdesk/tgdesk/internal/timeline"
	"github.com/tgdesk/tgdesk/internal/uploads"
)

const (
	convRequestTimeout = 15 * time.Second
	noteSaveDebounce   = 800 * time.Millisecond
	smoothTickInterval = 40 * time.Millisecond
)

// convMode is what the conversation view's keyboard currently drives.
type convMode int

const (
	modeTimeline convMode = iota
	modeCompose
	modeAttach
	modeNote
	modeTemplates
	modeConfirmDelete
	modeSearch
)

type convLoadedMsg struct {
	generation int
	initial    bool
	page       api.MessagePage
	err        error
}

type sendResultMsg struct {
	generation int
	tempID     string
	msg        timeline.Message
	err        error
}

type uploadResultMsg struct {
	generation int
	res        uploads.Result
	ok         bool
	results    <-chan uploads.Result
}

type templatesLoadedMsg struct {
	generation int
	items      []api.Template
	err        error
}

type noteSaveTickMsg struct {
	generation int
	version    int
}

type noteSavedMsg struct {
	generation int
	err        error
}

type deleteResultMsg struct {
	generation int
	messageID  string
	err        error
}

type chatUpdatedMsg struct {
	generation int
	chat       api.Chat
	err        error
}

type smoothScrollMsg struct {
	generation int
}

// conversationView owns one open conversation: the message buffer, backward
// pagination, the scroll anchor, the virtualized strip, and the composer.
type conversationView struct {
	client  *api.Client
	gateway *uploads.Gateway
	cfg     *config.Config
	log     zerolog.Logger

	chat api.Chat

	buf     *timeline.Buffer
	history *timeline.History
	anchor  *timeline.Anchor

	// generation invalidates in-flight commands across conversation
	// switches.
	generation int

	// scroll is the viewport top offset into the estimated content, in
	// rows. viewport is the strip height from the last render.
	scroll   int
	viewport int

	// selected indexes into the ordered buffer snapshot for reply/delete.
	selected int

	// pendingNew counts messages that arrived while scrolled away.
	pendingNew int

	mode     convMode
	composer *composer

	// inflight keeps the full draft per optimistic send for rollback.
	inflight map[string]timeline.Draft

	attachInput textinput.Model
	noteInput   textinput.Model
	noteVersion int
	noteDirty   bool

	searchInput textinput.Model
	highlight   string

	templates       []api.Template
	templatesErr    error
	templateCursor  int
	confirmDeleteID string

	smoothActive bool
	smoothTarget int

	msgStyles styles.MessageStyles

	lastErr error
}

func newConversationView(client *api.Client, gateway *uploads.Gateway, cfg *config.Config, log zerolog.Logger) *conversationView {
	attach := textinput.New()
	attach.Placeholder = "path to file"
	attach.CharLimit = 0

	note := textinput.New()
	note.Placeholder = "operator note"
	note.CharLimit = 0

	search := textinput.New()
	search.Placeholder = "highlight term"
	search.CharLimit = 0

	return &conversationView{
		client:      client,
		gateway:     gateway,
		cfg:         cfg,
		log:         log,
		buf:         timeline.NewBuffer("", cfg.Timeline.Strict, log),
		history:     timeline.NewHistory(),
		anchor:      timeline.NewAnchor(nil),
		composer:    newComposer(),
		inflight:    make(map[string]timeline.Draft),
		attachInput: attach,
		noteInput:   note,
		searchInput: search,
	}
}

func (v *conversationView) Init() tea.Cmd {
	return nil
}

// Title is the header crumb for the open conversation.
func (v *conversationView) Title() string {
	if v.chat.ID == "" {
		return "conversation"
	}
	return fmt.Sprintf("%s · %s", v.chat.Title(), v.chat.Status)
}

// InputActive reports whether typing belongs to an input widget rather than
// the global key map.
func (v *conversationView) InputActive() bool {
	switch v.mode {
	case modeCompose, modeAttach, modeNote, modeSearch:
		return true
	}
	return false
}

// SetChat opens a conversation, resetting all per-conversation state and
// loading the newest page.
func (v *conversationView) SetChat(chat api.Chat) tea.Cmd {
	if chat.ID == v.chat.ID && v.history.Initialized() {
		v.chat = chat
		return nil
	}
	v.chat = chat
	v.generation++
	v.buf = timeline.NewBuffer(chat.ID, v.cfg.Timeline.Strict, v.log)
	v.history = timeline.NewHistory()
	v.anchor.Reset()
	v.scroll = 0
	v.selected = 0
	v.pendingNew = 0
	v.mode = modeTimeline
	v.inflight = make(map[string]timeline.Draft)
	v.composer.Clear()
	v.gateway.ForgetAll()
	v.smoothActive = false
	v.lastErr = nil
	v.noteDirty = false
	v.noteInput.SetValue(chat.Note)

	cmds := []tea.Cmd{v.loadOlderCmd(), v.markReadCmd()}
	if v.templates == nil && v.templatesErr == nil {
		cmds = append(cmds, v.templatesCmd())
	}
	return tea.Batch(cmds...)
}

func (v *conversationView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case convLoadedMsg:
		return v.applyLoaded(typed)
	case sendResultMsg:
		return v.applySendResult(typed)
	case uploadResultMsg:
		return v.applyUploadResult(typed)
	case templatesLoadedMsg:
		if typed.generation == v.generation {
			v.templates = typed.items
			v.templatesErr = typed.err
		}
		return nil
	case noteSaveTickMsg:
		return v.applyNoteTick(typed)
	case noteSavedMsg:
		if typed.generation == v.generation && typed.err != nil {
			v.lastErr = typed.err
		}
		return nil
	case deleteResultMsg:
		return v.applyDeleteResult(typed)
	case chatUpdatedMsg:
		return v.applyChatUpdated(typed)
	case smoothScrollMsg:
		return v.stepSmoothScroll(typed)
	case tea.KeyMsg:
		return v.handleKey(typed)
	}
	// Cursor blinks and other widget traffic go to whichever input is live.
	switch v.mode {
	case modeCompose:
		return v.composer.Update(msg)
	case modeAttach:
		var cmd tea.Cmd
		v.attachInput, cmd = v.attachInput.Update(msg)
		return cmd
	case modeNote:
		var cmd tea.Cmd
		v.noteInput, cmd = v.noteInput.Update(msg)
		return cmd
	case modeSearch:
		var cmd tea.Cmd
		v.searchInput, cmd = v.searchInput.Update(msg)
		return cmd
	}
	return nil
}

func (v *conversationView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.mode {
	case modeCompose:
		return v.handleComposeKey(msg)
	case modeAttach:
		return v.handleAttachKey(msg)
	case modeNote:
		return v.handleNoteKey(msg)
	case modeTemplates:
		return v.handleTemplatesKey(msg)
	case modeConfirmDelete:
		return v.handleConfirmDeleteKey(msg)
	case modeSearch:
		return v.handleSearchKey(msg)
	}
	return v.handleTimelineKey(msg)
}

func (v *conversationView) handleTimelineKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up":
		return v.scrollBy(-1)
	case "down":
		return v.scrollBy(1)
	case "pgup":
		return v.scrollBy(-maxInt(1, v.viewport-1))
	case "pgdown":
		return v.scrollBy(maxInt(1, v.viewport-1))
	case "k":
		return v.moveSelection(-1)
	case "j":
		return v.moveSelection(1)
	case "g":
		v.scroll = 0
		v.notifyScroll()
		return v.maybeLoadOlder()
	case "G":
		return v.jumpToBottom()
	case "i", "enter":
		v.mode = modeCompose
		return v.composer.Focus()
	case "a":
		v.mode = modeAttach
		v.attachInput.SetValue("")
		return v.attachInput.Focus()
	case "n":
		v.mode = modeNote
		v.noteInput.SetValue(v.chat.Note)
		v.noteInput.CursorEnd()
		return v.noteInput.Focus()
	case "t":
		if len(v.templates) > 0 {
			v.mode = modeTemplates
			v.templateCursor = 0
		}
		return nil
	case "R":
		v.setReplyFromSelection()
		return nil
	case "/":
		v.mode = modeSearch
		v.searchInput.SetValue(v.highlight)
		v.searchInput.CursorEnd()
		return v.searchInput.Focus()
	case "d":
		if m, ok := v.selectedMessage(); ok && !m.Pending {
			v.confirmDeleteID = m.ID
			v.mode = modeConfirmDelete
		}
		return nil
	case "C":
		return v.lifecycleCmd(v.client.CloseChat)
	case "E":
		return v.lifecycleCmd(v.client.EscalateChat)
	case "r":
		return v.maybeLoadOlder()
	}
	return nil
}

func (v *conversationView) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.mode = modeTimeline
		v.composer.Blur()
		return nil
	case "enter":
		return v.submitSend()
	case "alt+enter", "ctrl+j":
		// Newline inside the draft.
		return v.composer.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'\n'}})
	case "ctrl+r":
		v.composer.ClearReply()
		return nil
	case "ctrl+x":
		if f, ok := v.composer.RemoveLastAttachment(); ok {
			v.gateway.Forget(f)
		}
		return nil
	}
	return v.composer.Update(msg)
}

func (v *conversationView) handleAttachKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.mode = modeTimeline
		v.attachInput.Blur()
		return nil
	case "enter":
		path := strings.TrimSpace(v.attachInput.Value())
		v.mode = modeCompose
		v.attachInput.Blur()
		focus := v.composer.Focus()
		if path == "" {
			return focus
		}
		return tea.Batch(focus, v.startUpload(path))
	}
	var cmd tea.Cmd
	v.attachInput, cmd = v.attachInput.Update(msg)
	return cmd
}

func (v *conversationView) handleNoteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "enter":
		v.mode = modeTimeline
		v.noteInput.Blur()
		if v.noteDirty {
			return v.scheduleNoteSave()
		}
		return nil
	}
	var cmd tea.Cmd
	before := v.noteInput.Value()
	v.noteInput, cmd = v.noteInput.Update(msg)
	if v.noteInput.Value() != before {
		v.noteDirty = true
		return tea.Batch(cmd, v.scheduleNoteSave())
	}
	return cmd
}

func (v *conversationView) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.mode = modeTimeline
		v.highlight = ""
		v.searchInput.Blur()
		return nil
	case "enter":
		v.mode = modeTimeline
		v.highlight = strings.TrimSpace(v.searchInput.Value())
		v.searchInput.Blur()
		return nil
	}
	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	return cmd
}

func (v *conversationView) handleTemplatesKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "t":
		v.mode = modeTimeline
		return nil
	case "j", "down":
		v.templateCursor = clampInt(v.templateCursor+1, 0, len(v.templates)-1)
		return nil
	case "k", "up":
		v.templateCursor = clampInt(v.templateCursor-1, 0, len(v.templates)-1)
		return nil
	case "enter":
		if v.templateCursor >= 0 && v.templateCursor < len(v.templates) {
			t := v.templates[v.templateCursor]
			v.composer.InsertTemplate(t.Text, t.Attachments, t.InlineButtons)
		}
		v.mode = modeCompose
		return v.composer.Focus()
	}
	return nil
}

func (v *conversationView) handleConfirmDeleteKey(msg tea.KeyMsg) tea.Cmd {
	id := v.confirmDeleteID
	v.confirmDeleteID = ""
	v.mode = modeTimeline
	if msg.String() != "y" {
		return nil
	}
	return v.deleteCmd(id)
}

// scrollBy moves the viewport and reports the resulting position to the
// anchor.
func (v *conversationView) scrollBy(delta int) tea.Cmd {
	v.smoothActive = false
	v.scroll = clampInt(v.scroll+delta, 0, v.maxScroll())
	v.notifyScroll()
	if v.scroll == 0 && delta < 0 {
		return v.maybeLoadOlder()
	}
	return nil
}

// moveSelection moves the message cursor and keeps it on screen.
func (v *conversationView) moveSelection(delta int) tea.Cmd {
	n := v.buf.Len()
	if n == 0 {
		return nil
	}
	v.selected = clampInt(v.selected+delta, 0, n-1)

	top := v.selected * timeline.EstimateRows
	bottom := top + timeline.EstimateRows
	if top < v.scroll {
		v.scroll = top
	} else if bottom > v.scroll+v.viewport {
		v.scroll = bottom - v.viewport
	}
	v.scroll = clampInt(v.scroll, 0, v.maxScroll())
	v.notifyScroll()
	if v.selected == 0 && delta < 0 {
		return v.maybeLoadOlder()
	}
	return nil
}

func (v *conversationView) jumpToBottom() tea.Cmd {
	plan := v.anchor.JumpToBottom()
	v.pendingNew = 0
	return v.applyPlan(plan)
}

// notifyScroll feeds the reader's position to the anchor. Every scroll
// change goes through here, including the synthetic one a prepend
// correction causes.
func (v *conversationView) notifyScroll() {
	v.anchor.OnUserScroll(v.maxScroll() - v.scroll)
	if v.anchor.Sticky() {
		v.pendingNew = 0
	}
}

func (v *conversationView) maxScroll() int {
	return timeline.MaxScroll(v.buf.Len(), maxInt(1, v.viewport))
}

func (v *conversationView) selectedMessage() (timeline.Message, bool) {
	msgs := v.buf.Messages()
	if v.selected < 0 || v.selected >= len(msgs) {
		return timeline.Message{}, false
	}
	return msgs[v.selected], true
}

func (v *conversationView) setReplyFromSelection() {
	m, ok := v.selectedMessage()
	if !ok || m.ServerID == 0 {
		return
	}
	label := m.Text
	if label == "" && len(m.Attachments) > 0 {
		label = m.Attachments[0].Name
	}
	if len(label) > 40 {
		label = label[:40] + "…"
	}
	v.composer.SetReply(m.ServerID, label)
}

// maybeLoadOlder requests the next older page if one is not already in
// flight and history remains.
func (v *conversationView) maybeLoadOlder() tea.Cmd {
	if v.chat.ID == "" {
		return nil
	}
	return v.loadOlderCmd()
}

func (v *conversationView) loadOlderCmd() tea.Cmd {
	if !v.history.Begin() {
		return nil
	}
	generation := v.generation
	initial := !v.history.Initialized()
	client := v.client
	chatID := v.chat.ID
	cursor := v.history.Cursor()
	limit := v.cfg.Timeline.PageSize
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		page, err := client.Messages(ctx, chatID, cursor, limit)
		return convLoadedMsg{generation: generation, initial: initial, page: page, err: err}
	}
}

func (v *conversationView) applyLoaded(msg convLoadedMsg) tea.Cmd {
	if msg.generation != v.generation {
		return nil
	}
	if msg.err != nil {
		v.history.Fail()
		v.lastErr = msg.err
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return authFailedCmd()
		}
		return nil
	}
	v.lastErr = nil

	if msg.initial {
		v.buf.PrependPage(msg.page.Items)
		v.history.Apply(msg.page.NextCursor, msg.page.HasMore)
		v.selected = maxInt(0, v.buf.Len()-1)
		return v.applyPlan(v.anchor.InitialLoad())
	}

	v.anchor.BeforePrepend(timeline.ContentRows(v.buf.Len()))
	added := v.buf.PrependPage(msg.page.Items)
	v.history.Apply(msg.page.NextCursor, msg.page.HasMore)
	if added > 0 {
		v.selected = clampInt(v.selected+added, 0, v.buf.Len()-1)
	}
	return v.applyPlan(v.anchor.AfterPrepend(timeline.ContentRows(v.buf.Len())))
}

// applyPlan executes a scroll plan from the anchor.
func (v *conversationView) applyPlan(plan timeline.ScrollPlan) tea.Cmd {
	switch plan.Kind {
	case timeline.PlanFollowInstant:
		v.smoothActive = false
		v.scroll = v.maxScroll()
		v.pendingNew = 0
	case timeline.PlanFollowSmooth:
		v.smoothActive = true
		v.smoothTarget = -1 // chase the live bottom
		v.pendingNew = 0
		return v.smoothTickCmd()
	case timeline.PlanAdjust:
		v.scroll = clampInt(v.scroll+plan.Delta, 0, v.maxScroll())
		// The correction itself is the synthetic scroll event the anchor
		// is holding for.
		v.notifyScroll()
	}
	return nil
}

func (v *conversationView) smoothTickCmd() tea.Cmd {
	generation := v.generation
	return tea.Tick(smoothTickInterval, func(time.Time) tea.Msg {
		return smoothScrollMsg{generation: generation}
	})
}

// stepSmoothScroll eases the viewport toward the bottom a few rows per tick.
func (v *conversationView) stepSmoothScroll(msg smoothScrollMsg) tea.Cmd {
	if msg.generation != v.generation || !v.smoothActive {
		return nil
	}
	target := v.maxScroll()
	if v.smoothTarget >= 0 {
		target = minInt(v.smoothTarget, v.maxScroll())
	}
	remaining := target - v.scroll
	if remaining <= 0 {
		v.scroll = target
		v.smoothActive = false
		return nil
	}
	step := maxInt(1, remaining/3)
	v.scroll += step
	if v.scroll >= target {
		v.scroll = target
		v.smoothActive = false
		return nil
	}
	return v.smoothTickCmd()
}

// submitSend runs the optimistic pipeline: pending entry in the buffer,
// composer cleared, request in flight, rollback on failure.
func (v *conversationView) submitSend() tea.Cmd {
	if !v.composer.Ready() {
		return nil
	}
	draft := v.composer.Draft()
	pending := timeline.NewPending(v.chat.ID, draft, time.Now())
	v.buf.ApplyOptimistic(pending)
	v.inflight[pending.ID] = draft
	v.composer.Clear()
	v.selected = maxInt(0, v.buf.Len()-1)
	planCmd := v.applyPlan(v.anchor.OnAppend(true))

	generation := v.generation
	client := v.client
	chatID := v.chat.ID
	tempID := pending.ID
	req := api.SendRequestFromDraft(draft)
	sendCmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		msg, err := client.SendMessage(ctx, chatID, req)
		return sendResultMsg{generation: generation, tempID: tempID, msg: msg, err: err}
	}
	return tea.Batch(planCmd, sendCmd)
}

func (v *conversationView) applySendResult(msg sendResultMsg) tea.Cmd {
	if msg.generation != v.generation {
		return nil
	}
	draft, tracked := v.inflight[msg.tempID]
	delete(v.inflight, msg.tempID)

	if msg.err != nil {
		_, present := v.buf.Reconcile(msg.tempID, nil)
		if present && tracked {
			v.composer.Restore(draft)
			v.mode = modeCompose
			focus := v.composer.Focus()
			v.lastErr = msg.err
			if errors.Is(msg.err, api.ErrUnauthorized) {
				return tea.Batch(focus, authFailedCmd())
			}
			return focus
		}
		v.lastErr = msg.err
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return authFailedCmd()
		}
		return nil
	}

	v.buf.Reconcile(msg.tempID, &msg.msg)
	if v.anchor.Sticky() {
		v.scroll = v.maxScroll()
	}
	return nil
}

// startUpload sends a local file through the gateway and begins draining
// its result channel.
func (v *conversationView) startUpload(path string) tea.Cmd {
	path = expandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		v.lastErr = fmt.Errorf("attach: %w", err)
		return nil
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	file := uploads.File{
		Name: filepath.Base(path),
		Mime: mimeType,
		Size: info.Size(),
		Path: path,
	}

	accepted, results := v.gateway.Start(context.Background(), []uploads.File{file})
	if len(accepted) == 0 {
		// Already attached or in flight.
		return nil
	}
	v.composer.BeginUpload(accepted)
	return v.waitUploadCmd(results)
}

func (v *conversationView) waitUploadCmd(results <-chan uploads.Result) tea.Cmd {
	generation := v.generation
	return func() tea.Msg {
		res, ok := <-results
		return uploadResultMsg{generation: generation, res: res, ok: ok, results: results}
	}
}

func (v *conversationView) applyUploadResult(msg uploadResultMsg) tea.Cmd {
	if !msg.ok {
		return nil
	}
	if msg.generation != v.generation {
		// Conversation switched mid-upload; keep draining so the channel
		// empties, but drop the result.
		return v.waitUploadCmd(msg.results)
	}
	if msg.res.Err != nil {
		v.composer.FailUpload(msg.res.File, msg.res.Err)
	} else {
		v.composer.CompleteUpload(msg.res.File, msg.res.Attachment)
	}
	return v.waitUploadCmd(msg.results)
}

func (v *conversationView) templatesCmd() tea.Cmd {
	generation := v.generation
	client := v.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		items, err := client.Templates(ctx)
		return templatesLoadedMsg{generation: generation, items: items, err: err}
	}
}

// scheduleNoteSave debounces note persistence: only the newest tick with no
// edits after it actually writes.
func (v *conversationView) scheduleNoteSave() tea.Cmd {
	v.noteVersion++
	generation := v.generation
	version := v.noteVersion
	return tea.Tick(noteSaveDebounce, func(time.Time) tea.Msg {
		return noteSaveTickMsg{generation: generation, version: version}
	})
}

func (v *conversationView) applyNoteTick(msg noteSaveTickMsg) tea.Cmd {
	if msg.generation != v.generation || msg.version != v.noteVersion || !v.noteDirty {
		return nil
	}
	v.noteDirty = false
	note := v.noteInput.Value()
	v.chat.Note = note
	generation := v.generation
	client := v.client
	chatID := v.chat.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		err := client.UpdateNote(ctx, chatID, note)
		return noteSavedMsg{generation: generation, err: err}
	}
}

func (v *conversationView) deleteCmd(messageID string) tea.Cmd {
	generation := v.generation
	client := v.client
	chatID := v.chat.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		err := client.DeleteMessage(ctx, chatID, messageID)
		return deleteResultMsg{generation: generation, messageID: messageID, err: err}
	}
}

func (v *conversationView) applyDeleteResult(msg deleteResultMsg) tea.Cmd {
	if msg.generation != v.generation {
		return nil
	}
	if msg.err != nil {
		v.lastErr = msg.err
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return authFailedCmd()
		}
		return nil
	}
	v.buf.ApplyDelete(msg.messageID)
	v.selected = clampInt(v.selected, 0, maxInt(0, v.buf.Len()-1))
	return nil
}

func (v *conversationView) lifecycleCmd(call func(context.Context, string) (api.Chat, error)) tea.Cmd {
	generation := v.generation
	chatID := v.chat.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		chat, err := call(ctx, chatID)
		return chatUpdatedMsg{generation: generation, chat: chat, err: err}
	}
}

func (v *conversationView) applyChatUpdated(msg chatUpdatedMsg) tea.Cmd {
	if msg.generation != v.generation {
		return nil
	}
	if msg.err != nil {
		v.lastErr = msg.err
		if errors.Is(msg.err, api.ErrUnauthorized) {
			return authFailedCmd()
		}
		return nil
	}
	v.chat = msg.chat
	return nil
}

// markReadCmd tells the backend the operator has seen this conversation.
// Best effort; a failure only delays the badge reset.
func (v *conversationView) markReadCmd() tea.Cmd {
	client := v.client
	chatID := v.chat.ID
	log := v.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), convRequestTimeout)
		defer cancel()
		if err := client.MarkRead(ctx, chatID); err != nil {
			log.Debug().Str("chat_id", chatID).Err(err).Msg("mark read failed")
		}
		return nil
	}
}

// ApplyLiveEvent merges a push frame into the open conversation.
func (v *conversationView) ApplyLiveEvent(ev live.Event) tea.Cmd {
	switch ev.Event {
	case live.EventMessageNew:
		var msg timeline.Message
		if err := ev.Decode(&msg); err != nil {
			v.log.Debug().Err(err).Msg("bad message.new payload")
			return nil
		}
		if msg.ChatID != v.chat.ID || v.chat.ID == "" {
			return nil
		}
		if !v.buf.ApplyNew(msg) {
			// Redelivery of a known id carries edits (text, is_edited) but
			// never moves the entry.
			v.buf.ApplyPatch(msg)
			return nil
		}
		own := msg.Direction == timeline.DirectionOut
		plan := v.anchor.OnAppend(own)
		if plan.Kind == timeline.PlanNone && !own {
			v.pendingNew++
		}
		cmds := []tea.Cmd{v.applyPlan(plan)}
		if v.anchor.Sticky() && !own {
			cmds = append(cmds, v.markReadCmd())
		}
		return tea.Batch(cmds...)
	case live.EventMessageDeleted:
		var payload struct {
			ID     string `json:"id"`
			ChatID string `json:"chat_id"`
		}
		if err := ev.Decode(&payload); err != nil {
			return nil
		}
		if payload.ChatID != v.chat.ID {
			return nil
		}
		if v.buf.ApplyDelete(payload.ID) {
			v.scroll = clampInt(v.scroll, 0, v.maxScroll())
			v.selected = clampInt(v.selected, 0, maxInt(0, v.buf.Len()-1))
		}
	case live.EventChatPatched:
		var chat api.Chat
		if err := ev.Decode(&chat); err != nil {
			return nil
		}
		if chat.ID == v.chat.ID {
			v.chat = chat
			if v.mode != modeNote {
				v.noteInput.SetValue(chat.Note)
			}
		}
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
