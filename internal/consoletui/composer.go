package consoletui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgdesk/tgdesk/internal/consoletui/styles"
	"github.com/tgdesk/tgdesk/internal/timeline"
	"github.com/tgdesk/tgdesk/internal/uploads"
)

// composerAttachment tracks one file through the upload gateway. Until the
// upload finishes the draft cannot be sent with it.
type composerAttachment struct {
	file      uploads.File
	att       timeline.Attachment
	uploading bool
}

// composer holds everything the operator is about to send: text, uploaded
// attachments, inline buttons picked from a template, and an optional reply
// target. A failed send restores all of it verbatim.
type composer struct {
	input       textarea.Model
	attachments []composerAttachment
	buttons     [][]timeline.InlineButton
	replyTo     int64
	replyLabel  string

	focused bool
	lastErr error
}

func newComposer() *composer {
	input := textarea.New()
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.MaxHeight = 4
	input.SetHeight(1)
	input.Placeholder = "Message (i to focus, enter to send)"
	input.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "› "
		}
		return "  "
	})
	return &composer{input: input}
}

func (c *composer) Focus() tea.Cmd {
	c.focused = true
	c.input.Focus()
	return textarea.Blink
}

func (c *composer) Blur() {
	c.focused = false
	c.input.Blur()
}

func (c *composer) Focused() bool {
	return c.focused
}

func (c *composer) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return cmd
}

func (c *composer) SetWidth(width int) {
	c.input.SetWidth(maxInt(10, width-2))
}

// Draft captures the current composer state for a send. Attachments still in
// flight are excluded; Ready reports whether any remain.
func (c *composer) Draft() timeline.Draft {
	d := timeline.Draft{
		Text:            c.input.Value(),
		Buttons:         c.buttons,
		ReplyToServerID: c.replyTo,
	}
	for _, a := range c.attachments {
		if a.uploading {
			continue
		}
		d.Attachments = append(d.Attachments, a.att)
	}
	return d
}

// Ready reports whether the draft can be sent right now: something to send
// and no upload still in flight.
func (c *composer) Ready() bool {
	for _, a := range c.attachments {
		if a.uploading {
			return false
		}
	}
	return !c.Draft().Empty()
}

// Clear empties the composer after a successful send handoff.
func (c *composer) Clear() {
	c.input.Reset()
	c.attachments = nil
	c.buttons = nil
	c.replyTo = 0
	c.replyLabel = ""
	c.lastErr = nil
}

// Restore puts a failed draft back, byte for byte, so nothing typed is lost.
func (c *composer) Restore(d timeline.Draft) {
	c.input.SetValue(d.Text)
	c.input.CursorEnd()
	c.attachments = c.attachments[:0]
	for _, att := range d.Attachments {
		c.attachments = append(c.attachments, composerAttachment{
			file: uploads.File{Name: att.Name, Mime: att.Mime, Size: att.Size},
			att:  att,
		})
	}
	c.buttons = d.Buttons
	c.replyTo = d.ReplyToServerID
}

// SetReply targets the next send at an existing message.
func (c *composer) SetReply(serverID int64, label string) {
	c.replyTo = serverID
	c.replyLabel = label
}

func (c *composer) ClearReply() {
	c.replyTo = 0
	c.replyLabel = ""
}

// InsertTemplate merges a canned reply into the draft: text is appended,
// attachments and buttons replace whatever the template carries.
func (c *composer) InsertTemplate(text string, attachments []timeline.Attachment, buttons [][]timeline.InlineButton) {
	if text != "" {
		if c.input.Value() != "" {
			c.input.InsertString("\n")
		}
		c.input.InsertString(text)
	}
	for _, att := range attachments {
		c.attachments = append(c.attachments, composerAttachment{
			file: uploads.File{Name: att.Name, Mime: att.Mime, Size: att.Size},
			att:  att,
		})
	}
	if len(buttons) > 0 {
		c.buttons = buttons
	}
}

// BeginUpload registers accepted files as in-flight attachments.
func (c *composer) BeginUpload(files []uploads.File) {
	for _, f := range files {
		c.attachments = append(c.attachments, composerAttachment{file: f, uploading: true})
	}
}

// CompleteUpload resolves one in-flight attachment with its server
// descriptor.
func (c *composer) CompleteUpload(file uploads.File, att timeline.Attachment) {
	for i := range c.attachments {
		if c.attachments[i].uploading && c.attachments[i].file.Key() == file.Key() {
			c.attachments[i].uploading = false
			c.attachments[i].att = att
			return
		}
	}
}

// FailUpload drops one in-flight attachment and surfaces the error.
func (c *composer) FailUpload(file uploads.File, err error) {
	for i := range c.attachments {
		if c.attachments[i].uploading && c.attachments[i].file.Key() == file.Key() {
			c.attachments = append(c.attachments[:i], c.attachments[i+1:]...)
			break
		}
	}
	c.lastErr = err
}

// RemoveLastAttachment drops the newest attachment and returns its file so
// the caller can release the dedup slot.
func (c *composer) RemoveLastAttachment() (uploads.File, bool) {
	if len(c.attachments) == 0 {
		return uploads.File{}, false
	}
	last := c.attachments[len(c.attachments)-1]
	c.attachments = c.attachments[:len(c.attachments)-1]
	return last.file, true
}

// View renders the composer block: reply banner, attachments line, the
// button-policy warning, input, and error line.
func (c *composer) View(width int, theme styles.Theme) string {
	var lines []string

	if c.replyTo != 0 {
		label := c.replyLabel
		if label == "" {
			label = fmt.Sprintf("#%d", c.replyTo)
		}
		lines = append(lines, theme.MutedStyle().Render(truncateVis("↩ replying to "+label+"  (ctrl+r clears)", width)))
	}

	if len(c.attachments) > 0 {
		parts := make([]string, 0, len(c.attachments))
		for _, a := range c.attachments {
			name := a.file.Name
			if name == "" {
				name = a.att.Name
			}
			if a.uploading {
				parts = append(parts, name+"…")
			} else {
				parts = append(parts, name)
			}
		}
		lines = append(lines, theme.MutedStyle().Render(truncateVis("📎 "+strings.Join(parts, ", "), width)))
	}

	if c.Draft().ButtonsOmitted() {
		lines = append(lines, theme.WarningStyle().Render(truncateVis("buttons are dropped when sending more than one attachment", width)))
	}

	lines = append(lines, c.input.View())

	if c.lastErr != nil {
		lines = append(lines, theme.ErrorStyle().Render(truncateVis(c.lastErr.Error(), width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
