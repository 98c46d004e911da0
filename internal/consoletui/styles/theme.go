package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// MessageColors defines colors for message origins.
type MessageColors struct {
	Inbound  string
	Outbound string
	System   string
	Pending  string
}

// StatusColors defines colors for chat lifecycle states.
type StatusColors struct {
	New       string
	Active    string
	Closed    string
	Escalated string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
	Warning      string
	Error        string
}

// BorderColors defines border colors for pane state.
type BorderColors struct {
	ActivePane   string
	InactivePane string
	Divider      string
}

// Theme defines the console style tokens.
type Theme struct {
	Name        string
	BorderStyle string // "rounded", "sharp", "hidden"

	Base    BaseColors
	Message MessageColors
	Status  StatusColors
	Chrome  ChromeColors
	Borders BorderColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default": DefaultTheme,
	"light":   LightTheme,
}

// ForName returns the named theme, falling back to the default palette.
func ForName(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

// StatusColor returns the color token for a chat status string.
func (t Theme) StatusColor(status string) string {
	switch status {
	case "NEW":
		return t.Status.New
	case "ACTIVE":
		return t.Status.Active
	case "CLOSED":
		return t.Status.Closed
	case "ESCALATED":
		return t.Status.Escalated
	default:
		return t.Base.Muted
	}
}

// BaseStyle is the whole-screen foreground/background.
func (t Theme) BaseStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Foreground)).Background(lipgloss.Color(t.Base.Background))
}

// MutedStyle renders secondary text.
func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

// AccentStyle renders emphasized text.
func (t Theme) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

// WarningStyle renders non-fatal notices like the button-policy warning.
func (t Theme) WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Warning)).Bold(true)
}

// ErrorStyle renders failures in the status line.
func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Error))
}
