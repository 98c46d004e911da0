package consoletui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgdesk/tgdesk/internal/consoletui/styles"
	"github.com/tgdesk/tgdesk/internal/timeline"
)

func (v *conversationView) View(width, height int, theme styles.Theme) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	v.composer.SetWidth(width)

	composerView := v.composer.View(width, theme)
	modal := v.renderModal(width, theme)
	status := v.renderStatus(width, theme)

	used := lipgloss.Height(composerView) + lipgloss.Height(status)
	if modal != "" {
		used += lipgloss.Height(modal)
	}
	v.viewport = maxInt(1, height-used)

	// Layout may have shrunk the scrollable extent since the last frame.
	v.scroll = clampInt(v.scroll, 0, v.maxScroll())
	if v.anchor.Sticky() && !v.smoothActive {
		v.scroll = v.maxScroll()
	}

	strip := v.renderStrip(width, v.viewport, theme)

	parts := []string{strip, status}
	if modal != "" {
		parts = append(parts, modal)
	}
	parts = append(parts, composerView)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderStrip materializes only the visible rows of the estimated content:
// blank rows stand in for entries outside the render window, so the
// scrollable extent stays constant while the window shifts.
func (v *conversationView) renderStrip(width, viewport int, theme styles.Theme) string {
	msgs := v.buf.Messages()
	n := len(msgs)
	if n == 0 {
		empty := theme.MutedStyle().Render("No messages yet")
		if v.history.Loading() {
			empty = theme.MutedStyle().Render("Loading…")
		}
		return empty + strings.Repeat("\n", maxInt(0, viewport-1))
	}

	win := timeline.ComputeWindow(n, v.scroll, viewport)
	ms := v.messageStyles(theme)

	lines := make([]string, 0, viewport)
	cachedIdx := -1
	var cached []string
	contentRows := timeline.ContentRows(n)
	for r := v.scroll; r < v.scroll+viewport; r++ {
		if r < 0 || r >= contentRows {
			lines = append(lines, "")
			continue
		}
		idx := r / timeline.EstimateRows
		if idx < win.Start || idx >= win.End {
			// Padding region: estimated height, nothing rendered.
			lines = append(lines, "")
			continue
		}
		if idx != cachedIdx {
			cached = v.renderEntry(msgs[idx], idx == v.selected, width, ms)
			cachedIdx = idx
		}
		lines = append(lines, cached[r%timeline.EstimateRows])
	}
	return strings.Join(lines, "\n")
}

// renderEntry renders one message as exactly EstimateRows lines. Overflowing
// body text is cut; the estimate is what the scroll math assumes.
func (v *conversationView) renderEntry(m timeline.Message, selected bool, width int, ms styles.MessageStyles) []string {
	marker := "  "
	if selected {
		marker = ms.Theme.AccentStyle().Render("▌ ")
	}
	bodyWidth := maxInt(1, width-2)

	name := v.chat.Title()
	if m.Direction == timeline.DirectionOut {
		name = "you"
	}
	if m.Type == timeline.TypeSystem {
		name = "system"
	}
	header := ms.RenderSender(name, m.Direction == timeline.DirectionOut, m.Pending, m.CreatedAt, v.cfg.TUI.ShowTimestamps)
	if m.ForwardFromName != "" {
		header += " " + ms.Timestamp.Render("fwd:"+m.ForwardFromName)
	}
	if m.IsEdited {
		header += " " + ms.RenderEditedMarker(true)
	}

	var rest []string
	if m.ReplyToServerID != 0 {
		quote := fmt.Sprintf("#%d", m.ReplyToServerID)
		if ref, ok := v.buf.ByServerID(m.ReplyToServerID); ok {
			quote = ref.Text
			if quote == "" && len(ref.Attachments) > 0 {
				quote = ref.Attachments[0].Name
			}
		}
		rest = append(rest, ms.RenderReplyQuote(quote, bodyWidth))
	}
	if m.Text != "" {
		rest = append(rest, ms.RenderBody(m.Text, bodyWidth, v.highlight)...)
	}
	if len(m.Attachments) > 0 {
		names := make([]string, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			label := a.Name
			if label == "" {
				label = string(timeline.TypeForMime(a.Mime))
			}
			names = append(names, label)
		}
		rest = append(rest, ms.Timestamp.Render("📎 "+strings.Join(names, ", ")))
	}
	if len(m.InlineButtons) > 0 {
		var labels []string
		for _, row := range m.InlineButtons {
			for _, b := range row {
				labels = append(labels, "["+b.Text+"]")
			}
		}
		rest = append(rest, ms.Timestamp.Render(strings.Join(labels, " ")))
	}
	if m.Text == "" && len(rest) == 0 {
		rest = append(rest, ms.System.Render(string(m.Type)))
	}

	out := make([]string, timeline.EstimateRows)
	out[0] = truncateVis(marker+header, width)
	for i := 1; i < timeline.EstimateRows; i++ {
		if i-1 < len(rest) {
			out[i] = truncateVis(marker+rest[i-1], width)
		} else {
			out[i] = ""
		}
	}
	if len(rest) > timeline.EstimateRows-1 {
		out[timeline.EstimateRows-1] = truncateVis(marker+rest[timeline.EstimateRows-2]+" …", width)
	}
	return out
}

func (v *conversationView) renderStatus(width int, theme styles.Theme) string {
	if v.lastErr != nil {
		return theme.ErrorStyle().Render(truncateVis("error: "+v.lastErr.Error(), width))
	}

	var left string
	switch {
	case v.history.Loading():
		left = "loading older…"
	case v.history.HasMore():
		left = "more history (scroll up)"
	default:
		left = "start of conversation"
	}

	right := ""
	if v.pendingNew > 0 {
		right = fmt.Sprintf("↓ %d new (G)", v.pendingNew)
	}

	line := theme.MutedStyle().Render(left)
	if right != "" {
		styled := theme.AccentStyle().Bold(true).Render(right)
		gap := width - lipgloss.Width(line) - lipgloss.Width(styled)
		if gap < 1 {
			gap = 1
		}
		line += strings.Repeat(" ", gap) + styled
	}
	return truncateVis(line, width)
}

func (v *conversationView) renderModal(width int, theme styles.Theme) string {
	switch v.mode {
	case modeAttach:
		return theme.AccentStyle().Render("attach: ") + v.attachInput.View()
	case modeNote:
		label := "note: "
		if v.noteDirty {
			label = "note*: "
		}
		return theme.AccentStyle().Render(label) + v.noteInput.View()
	case modeConfirmDelete:
		return theme.WarningStyle().Render("delete message for both sides? y/n")
	case modeSearch:
		return theme.AccentStyle().Render("find: ") + v.searchInput.View()
	case modeTemplates:
		return v.renderTemplates(width, theme)
	}
	return ""
}

func (v *conversationView) renderTemplates(width int, theme styles.Theme) string {
	const maxVisible = 8
	lines := []string{theme.AccentStyle().Bold(true).Render("templates (enter inserts, esc closes)")}
	start := maxInt(0, v.templateCursor-maxVisible+1)
	for i := start; i < len(v.templates) && i < start+maxVisible; i++ {
		t := v.templates[i]
		marker := "  "
		title := t.Title
		if i == v.templateCursor {
			marker = theme.AccentStyle().Render("> ")
			title = lipgloss.NewStyle().Bold(true).Render(title)
		}
		extra := ""
		if len(t.Attachments) > 0 {
			extra = fmt.Sprintf(" (%d files)", len(t.Attachments))
		}
		lines = append(lines, truncateVis(marker+title+theme.MutedStyle().Render(extra), width))
	}
	return strings.Join(lines, "\n")
}

func (v *conversationView) messageStyles(theme styles.Theme) styles.MessageStyles {
	if v.msgStyles.Theme.Name != theme.Name {
		v.msgStyles = styles.NewMessageStyles(theme)
	}
	return v.msgStyles
}
