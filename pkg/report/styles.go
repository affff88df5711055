package report

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // failures and warnings
	mintGreen   = lipgloss.Color("#A8E6CF") // passes
	amber       = lipgloss.Color("#FFD59E") // retries
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // headers
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	passStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	retryStyle = lipgloss.NewStyle().
			Foreground(amber)

	failStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(mutedGray)
)
