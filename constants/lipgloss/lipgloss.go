// Package lipgloss centralizes the terminal styles used across codebundle.
// Colors are disabled when NO_COLOR is set or stdout is not a terminal.
package lipgloss

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ColorEnabled reports whether styled output should carry color.
var ColorEnabled = os.Getenv("NO_COLOR") == "" &&
	(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

func colored(c string) lipgloss.Style {
	if !ColorEnabled {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

var (
	Red     = colored("9")
	Green   = colored("10")
	Yellow  = colored("11")
	Cyan    = colored("14")
	BlueSky = colored("12")

	Bold = lipgloss.NewStyle().Bold(ColorEnabled)
	Dim  = lipgloss.NewStyle().Faint(ColorEnabled)

	Info = colored("14").Bold(ColorEnabled)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)
