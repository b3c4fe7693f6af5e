package tui

import (
	"fmt"
	"strings"

	"github.com/reforge/reforge/internal/domain"
)

// RenderComparison formats a side-by-side strategy comparison.
func RenderComparison(cmp *domain.StrategyComparison) string {
	var b strings.Builder

	sm := cmp.Opportunity.Smell
	title := headerStyle.Render("Strategy Comparison")
	target := titleStyle.Render(sm.Target) + "  " + dimStyle.Render(string(sm.Type))
	where := fileStyle.Render(shortenPath(string(cmp.Opportunity.DocumentID)))
	b.WriteString(boxStyle.Render(title + "\n\n" + target + "\n" + where))
	b.WriteString("\n\n")

	if len(cmp.Succeeded) > 0 {
		hdr := fmt.Sprintf("  %-22s %-20s %6s  %5s  %s", "Strategy", "", "Score", "LCOM4", "Complexity")
		b.WriteString(titleStyle.Render(hdr) + "\n")
		b.WriteString("  " + separatorLine + "\n")
		for _, c := range cmp.Succeeded {
			marker := " "
			if cmp.Best != nil && cmp.Best.Strategy == c.Strategy {
				marker = passStyle.Render("★")
			}
			s := c.Score
			fmt.Fprintf(&b, "%s %s %s %s  %s  %s\n",
				marker,
				padRight(c.Strategy.String(), 22),
				coloredBar(s.Overall, 20),
				styledScore(s.Overall),
				dimStyle.Render(fmt.Sprintf("%d→%-2d", s.OriginalLCOM4, s.TransformedLCOM4)),
				dimStyle.Render(fmt.Sprintf("%+d cyclomatic", s.Base.CyclomaticDelta)),
			)
			for _, bc := range s.Base.BreakingChanges {
				fmt.Fprintf(&b, "    %s %s\n", warnStyle.Render("!"), dimStyle.Render(bc))
			}
		}
		b.WriteString("\n")
	}

	if len(cmp.Failed) > 0 {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			sectionHeaderStyle.Render("Failed"),
			dimStyle.Render(fmt.Sprintf("(%d)", len(cmp.Failed))),
		))
		for _, c := range cmp.Failed {
			fmt.Fprintf(&b, "    %s %s  %s\n", failStyle.Render("●"), c.Strategy, faintStyle.Render(c.Error))
		}
		b.WriteString("\n")
	}

	if cmp.Best != nil {
		b.WriteString("  " + passStyle.Render("Best: "+cmp.Best.Strategy.String()) +
			dimStyle.Render(fmt.Sprintf(" (%.1f)", cmp.Best.Score.Overall)) + "\n\n")
	} else {
		b.WriteString("  " + warnStyle.Render("No strategy met the minimum score.") + "\n\n")
	}
	return b.String()
}

// RenderResult formats the outcome of applying a single strategy.
func RenderResult(res *domain.RefactoringResult) string {
	var b strings.Builder
	b.WriteString("\n")
	if res.Success {
		fmt.Fprintf(&b, "  %s %s  %s\n", passStyle.Render("✓"), titleStyle.Render(res.Strategy.String()), styledScore(res.Score.Overall))
	} else {
		fmt.Fprintf(&b, "  %s %s  %s\n", failStyle.Render("✗"), titleStyle.Render(res.Strategy.String()), faintStyle.Render(res.Error))
	}
	for _, f := range res.ModifiedFiles {
		fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render("modified"), fileStyle.Render(f))
	}
	if res.BackupID != "" {
		fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render("backup"), res.BackupID)
	}
	b.WriteString("\n")
	return b.String()
}
