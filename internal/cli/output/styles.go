package output

import "github.com/charmbracelet/lipgloss"

// Status icons.
const (
	IconSuccess = "✓"
	IconWarning = "!"
	IconError   = "✗"
	IconSkipped = "-"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Info          lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	TypeName      lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer, so colour output follows
// the capabilities of the destination writer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	green := lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	yellow := lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	red := lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	blue := lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	gray := lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}

	return &Styles{
		Header1:       lr.NewStyle().Bold(true).Underline(true),
		Header2:       lr.NewStyle().Bold(true),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(gray),
		Success:       lr.NewStyle().Foreground(green),
		Warning:       lr.NewStyle().Foreground(yellow),
		Error:         lr.NewStyle().Foreground(red).Bold(true),
		Info:          lr.NewStyle().Foreground(blue),
		StatusSuccess: lr.NewStyle().Foreground(green).Bold(true),
		StatusFailed:  lr.NewStyle().Foreground(red).Bold(true),
		TypeName:      lr.NewStyle().Foreground(blue),
	}
}
