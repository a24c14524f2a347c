package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Accent  = lipgloss.Color("#A78BFA") // lavender
	Success = lipgloss.Color("#34D399")
	Warning = lipgloss.Color("#FBBF24")
	Failure = lipgloss.Color("#F87171")
	Muted   = lipgloss.Color("#9CA3AF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Failure).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	passwordStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Accent).
			Padding(0, 1)

	passwordBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Accent).
				Padding(1, 3)

	SpinnerStyle = lipgloss.NewStyle().Foreground(Accent)
)

// Table cells.
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Accent).
				Padding(0, 1)

	TableRowStyle    = lipgloss.NewStyle().Padding(0, 1)
	TableRowAltStyle = TableRowStyle.Foreground(Muted)
)

const (
	IconSuccess = "✔"
	IconError   = "✖"
	IconWarning = "!"
	IconInfo    = "›"
	IconKey     = "🔑"
)

// PasswordBox renders an issued password with its digits spread out so it
// is easy to read aloud.
func PasswordBox(password string) string {
	digits := strings.Join(strings.Split(password, ""), " ")
	return passwordBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		IconKey+passwordStyle.Render(digits),
		"",
		MutedStyle.Render("Run `rendezvous peer -p "+password+"` on the other side."),
	))
}

func PrintError(msg string) {
	fmt.Println(ErrorStyle.Render(IconError + " " + msg))
}

func PrintWarning(msg string) {
	fmt.Println(WarningStyle.Render(IconWarning + " " + msg))
}

func PrintSuccessf(format string, args ...any) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), fmt.Sprintf(format, args...))
}

func PrintInfof(format string, args ...any) {
	fmt.Printf("%s %s\n", MutedStyle.Render(IconInfo), fmt.Sprintf(format, args...))
}
