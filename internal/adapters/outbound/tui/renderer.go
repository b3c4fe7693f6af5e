package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/reforge/reforge/internal/domain"
)

// ── Warm palette ──
var (
	accent    = lipgloss.Color("#D97706") // amber
	fg        = lipgloss.Color("#E8E6E3") // warm light gray
	dim       = lipgloss.Color("#6B7280") // muted gray
	faint     = lipgloss.Color("#3F3F46") // very dim
	success   = lipgloss.Color("#22C55E") // green
	lime      = lipgloss.Color("#A3E635")
	danger    = lipgloss.Color("#EF4444") // red
	warning   = lipgloss.Color("#F59E0B") // amber-yellow
	orange    = lipgloss.Color("#FB923C")
	info      = lipgloss.Color("#8B949E") // soft blue-gray
	skipColor = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	severityColors = map[domain.Severity]lipgloss.Color{
		domain.SeverityCritical: danger,
		domain.SeverityHigh:     orange,
		domain.SeverityMedium:   warning,
		domain.SeverityLow:      info,
	}

	dimStyle           = lipgloss.NewStyle().Foreground(dim)
	faintStyle         = lipgloss.NewStyle().Foreground(faint)
	passStyle          = lipgloss.NewStyle().Foreground(success)
	failStyle          = lipgloss.NewStyle().Foreground(danger)
	warnStyle          = lipgloss.NewStyle().Foreground(warning)
	skipStyle          = lipgloss.NewStyle().Foreground(skipColor)
	fileStyle          = lipgloss.NewStyle().Foreground(dim)
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(fg)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle          = lipgloss.NewStyle().Foreground(dim).Italic(true)
	separatorLine      = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderPlan formats a refactoring plan for terminal output.
func RenderPlan(plan *domain.RefactoringPlan) string {
	var b strings.Builder

	title := headerStyle.Render("reforge")
	subtitle := dimStyle.Render("Refactoring Plan")
	stats := dimStyle.Render(fmt.Sprintf("%d documents  ·  ", plan.DocumentsScanned)) +
		titleStyle.Render(fmt.Sprintf("%d opportunities", len(plan.Opportunities)))
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + stats))
	b.WriteString("\n\n")

	if len(plan.Opportunities) == 0 {
		b.WriteString("  " + passStyle.Render("No refactoring opportunities found.") + "\n\n")
		return b.String()
	}

	for i, opp := range plan.Opportunities {
		renderOpportunity(&b, i+1, opp)
	}

	b.WriteString("  " + separatorLine + "\n")
	b.WriteString("  " + hintStyle.Render("Run `reforge compare <file>` to evaluate the strategies side by side.") + "\n\n")
	return b.String()
}

func renderOpportunity(b *strings.Builder, n int, opp domain.RefactoringOpportunity) {
	sm := opp.Smell
	loc := shortenPath(sm.Location.File)
	if sm.Location.StartLine > 0 {
		loc = fmt.Sprintf("%s:%d", loc, sm.Location.StartLine)
	}
	fmt.Fprintf(b, "  %s %s %s  %s\n",
		dimStyle.Render(fmt.Sprintf("%2d.", n)),
		severityTag(sm.Severity),
		titleStyle.Render(string(sm.Type)),
		fileStyle.Render(loc),
	)
	if sm.Target != "" {
		fmt.Fprintf(b, "       %s %s\n", dimStyle.Render("target"), sm.Target)
	}
	if sm.Message != "" {
		fmt.Fprintf(b, "       %s\n", dimStyle.Render(sm.Message))
	}

	names := make([]string, len(opp.Strategies))
	for i, t := range opp.Strategies {
		names[i] = t.String()
	}
	fmt.Fprintf(b, "       %s %s\n", dimStyle.Render("strategies"), strings.Join(names, ", "))
	fmt.Fprintf(b, "       %s %s  %s %s\n",
		dimStyle.Render("complexity"), percent(opp.EstimatedComplexityImprovement),
		dimStyle.Render("cohesion"), percent(opp.EstimatedCohesionImprovement),
	)
	if opp.Recommendation != "" {
		fmt.Fprintf(b, "       %s %s\n", passStyle.Render("→"), opp.Recommendation)
	}
	b.WriteString("\n")
}

func severityTag(s domain.Severity) string {
	color, ok := severityColors[s]
	if !ok {
		color = fg
	}
	return lipgloss.NewStyle().Foreground(color).Bold(s >= domain.SeverityHigh).Render(padRight(s.String(), 8))
}

func percent(v float64) string {
	text := fmt.Sprintf("%+.0f%%", v*100)
	switch {
	case v > 0:
		return passStyle.Render(text)
	case v < 0:
		return failStyle.Render(text)
	default:
		return dimStyle.Render(text)
	}
}

func overallColor(score float64) lipgloss.Color {
	switch {
	case score >= 60:
		return success
	case score >= 30:
		return lime
	case score >= 0:
		return warning
	default:
		return danger
	}
}

func styledScore(score float64) string {
	return lipgloss.NewStyle().Bold(true).Foreground(overallColor(score)).Render(fmt.Sprintf("%6.1f", score))
}

// coloredBar renders score in [-100, 100] as a bar of the given width.
func coloredBar(score float64, width int) string {
	filled := int(score) * width / 100
	if filled < 0 {
		filled = -filled
	}
	filled = max(0, min(filled, width))
	empty := width - filled

	color := overallColor(score)
	filledStr := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", empty))
	return filledStr + emptyStr
}

func shortenPath(path string) string {
	if idx := strings.Index(path, "internal/"); idx >= 0 {
		return path[idx:]
	}
	parts := strings.Split(path, "/")
	if len(parts) > 3 {
		return strings.Join(parts[len(parts)-3:], "/")
	}
	return path
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncateOrPad(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "…"
	}
	return padRight(s, width)
}

// RenderHistory formats the run history for terminal output.
func RenderHistory(entries []domain.RunEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No run history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Run History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 60)) + "\n\n")

	for _, e := range entries {
		hash := e.CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		if hash == "" {
			hash = "·······"
		}
		day := e.Timestamp
		if len(day) > 10 {
			day = day[:10]
		}

		status := passStyle.Render("ok  ")
		if !e.Success {
			status = failStyle.Render("fail")
		}

		line := fmt.Sprintf("  %s  %s  %s  %s  %s",
			dimStyle.Render(day),
			faintStyle.Render(hash),
			padRight(e.Kind, 8),
			status,
			styledScore(e.Score),
		)
		if e.Document != "" {
			line += "  " + fileStyle.Render(shortenPath(e.Document))
		}
		if len(e.Strategies) > 0 {
			line += "  " + strings.Join(e.Strategies, " → ")
		}
		if e.StopReason != "" {
			line += "  " + warnStyle.Render(e.StopReason)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
