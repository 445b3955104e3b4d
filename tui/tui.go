// Package tui prepares the terminal for overlayctl's styled output.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI picks the lipgloss color profile from the environment:
// NO_COLOR disables styling, CLICOLOR_FORCE=1 or COLORTERM=truecolor force
// full color even when stdout is not a terminal. Otherwise lipgloss detects
// the profile itself.
func InitializeTUI() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
