package styles

import (
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// MessageStyles contains pre-built styles for message rendering.
type MessageStyles struct {
	Theme Theme

	Inbound   lipgloss.Style
	Outbound  lipgloss.Style
	System    lipgloss.Style
	Pending   lipgloss.Style
	Timestamp lipgloss.Style
	Body      lipgloss.Style
	Reply     lipgloss.Style
	Edited    lipgloss.Style
	Highlight lipgloss.Style
}

// NewMessageStyles builds a reusable style set for messages.
func NewMessageStyles(theme Theme) MessageStyles {
	return MessageStyles{
		Theme:     theme,
		Inbound:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Inbound)).Bold(true),
		Outbound:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Outbound)).Bold(true),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.System)),
		Pending:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Pending)).Faint(true),
		Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Reply:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)).Bold(true),
		Edited:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)).Italic(true),
		Highlight: lipgloss.NewStyle().Background(lipgloss.Color(theme.Chrome.Warning)).Foreground(lipgloss.Color(theme.Base.Background)),
	}
}

// RenderSender renders the message origin label with a timestamp.
func (s MessageStyles) RenderSender(name string, out, pending bool, ts time.Time, showTime bool) string {
	style := s.Inbound
	if out {
		style = s.Outbound
	}
	label := style.Render(name)
	if pending {
		label += " " + s.Pending.Render("…sending")
	}
	if showTime && !ts.IsZero() {
		label += " " + s.Timestamp.Render(ts.Local().Format("15:04"))
	}
	return label
}

// RenderBody renders wrapped body text with an optional highlighted term.
func (s MessageStyles) RenderBody(body string, width int, highlight string) []string {
	wrapped := wrapMessageBody(NormalizeMarkup(body), width)
	lines := strings.Split(wrapped, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, s.highlightTerm(line, highlight))
	}
	return out
}

// RenderReplyQuote renders a quoted reply line with a vertical bar.
func (s MessageStyles) RenderReplyQuote(body string, width int) string {
	const prefix = "│ "
	renderWidth := width - lipgloss.Width(prefix)
	if renderWidth < 1 {
		renderWidth = 1
	}
	first := strings.SplitN(wrapMessageBody(NormalizeMarkup(body), renderWidth), "\n", 2)[0]
	return s.Reply.Render(prefix) + s.Timestamp.Render(first)
}

// RenderEditedMarker renders the "(edited)" suffix.
func (s MessageStyles) RenderEditedMarker(edited bool) string {
	if !edited {
		return ""
	}
	return s.Edited.Render("(edited)")
}

// highlightTerm marks case-insensitive occurrences of term.
func (s MessageStyles) highlightTerm(line, term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return line
	}
	lower := strings.ToLower(line)
	needle := strings.ToLower(term)

	var b strings.Builder
	cursor := 0
	for {
		idx := strings.Index(lower[cursor:], needle)
		if idx < 0 {
			break
		}
		start := cursor + idx
		end := start + len(needle)
		b.WriteString(line[cursor:start])
		b.WriteString(s.Highlight.Render(line[start:end]))
		cursor = end
	}
	b.WriteString(line[cursor:])
	return b.String()
}

// Message text uses a restricted HTML subset: bold, italic, code, links.
var (
	linkTagRe  = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	codeTagRe  = regexp.MustCompile(`(?is)<(?:code|pre)[^>]*>(.*?)</(?:code|pre)>`)
	otherTagRe = regexp.MustCompile(`(?s)</?[a-zA-Z][^>]*>`)
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"&amp;", "&",
)

// NormalizeMarkup reduces the markup subset to plain terminal text: links
// become "text (url)", code keeps backticks, the emphasis tags and any
// unknown tag are stripped with their inner text kept.
func NormalizeMarkup(body string) string {
	if !strings.ContainsAny(body, "<&") {
		return body
	}
	out := linkTagRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := linkTagRe.FindStringSubmatch(m)
		href, text := sub[1], strings.TrimSpace(otherTagRe.ReplaceAllString(sub[2], ""))
		if text == "" || text == href {
			return href
		}
		return text + " (" + href + ")"
	})
	out = codeTagRe.ReplaceAllString(out, "`$1`")
	out = otherTagRe.ReplaceAllString(out, "")
	return entityReplacer.Replace(out)
}

func wrapMessageBody(body string, width int) string {
	if width <= 0 {
		return body
	}
	parts := strings.Split(body, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}
