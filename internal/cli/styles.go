package cli

import "github.com/charmbracelet/lipgloss"

// Styling renders through lipgloss, which downgrades to plain text when
// stdout is not a terminal or NO_COLOR is set.
var (
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pathStyle  = lipgloss.NewStyle().Bold(true)
	titleStyle = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// truncate shortens s to maxLen bytes with an ellipsis.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
