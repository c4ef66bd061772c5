package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gzhole/personaguard/internal/guard"
)

var (
	accent = lipgloss.Color("#E0A526") // golden
	muted  = lipgloss.Color("#8A8F98")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(muted)

	sectionStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(muted)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
)

func title(s string) string {
	return titleStyle.Render(s)
}

func section(s string) string {
	return sectionStyle.Render("─── " + s + " " + strings.Repeat("─", max(0, 48-len(s))))
}

func label(s string) string {
	return labelStyle.Render(s)
}

func passIcon(pass bool) string {
	if pass {
		return okStyle.Render("\xe2\x9c\x85") // ✅
	}
	return failStyle.Render("\xe2\x9d\x8c") // ❌
}

func actionIcon(action string) string {
	switch guard.Action(action) {
	case guard.ActionRedirect:
		return "\xe2\x86\xaa\xef\xb8\x8f" // ↪️
	case guard.ActionRepair:
		return "\xf0\x9f\x94\xa7" // wrench
	case guard.ActionEnhance:
		return "\xe2\x9c\xa8" // sparkles
	case guard.ActionPassthrough:
		return "\xe2\x9a\xa0\xef\xb8\x8f" // warning
	default:
		return "\xe2\x9d\x93" // question mark
	}
}
