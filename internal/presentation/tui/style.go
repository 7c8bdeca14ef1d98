package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/tubelife/pkg/domain"
)

var (
	green  = lipgloss.Color("76")
	yellow = lipgloss.Color("214")
	red    = lipgloss.Color("204")
	cyan   = lipgloss.Color("44")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	AccentStyle  = lipgloss.NewStyle().Foreground(cyan)
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(faint).
			Padding(0, 1)
)

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func WarnMsg(format string, a ...any) string {
	return WarnStyle.Render("!") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return ErrorStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

func InfoMsg(format string, a ...any) string {
	return AccentStyle.Render("●") + " " + fmt.Sprintf(format, a...)
}

// StateBadge renders the run state as a colored label.
func StateBadge(s domain.RunState) string {
	style := badgeStyle.Foreground(lipgloss.Color("0"))
	switch s {
	case domain.StateRunning:
		style = style.Background(green)
	case domain.StatePaused:
		style = style.Background(yellow)
	default:
		style = style.Background(dim)
	}
	return style.Render(s.String())
}

func categoryStyle(c domain.LogCategory) lipgloss.Style {
	switch c {
	case domain.LogWarn:
		return WarnStyle
	case domain.LogError:
		return ErrorStyle
	case domain.LogCycle:
		return SuccessStyle
	case domain.LogStep:
		return AccentStyle
	default:
		return MutedStyle
	}
}
