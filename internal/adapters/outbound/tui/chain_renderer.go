package tui

import (
	"fmt"
	"strings"

	"github.com/reforge/reforge/internal/domain"
)

// RenderChainResult formats a chain run step by step.
func RenderChainResult(res *domain.ChainResult) string {
	var b strings.Builder

	name := res.Chain.Name
	if name == "" {
		name = "custom chain"
	}
	title := headerStyle.Render("Chain: " + name)
	where := fileStyle.Render(shortenPath(string(res.DocumentID)))
	progress := dimStyle.Render(fmt.Sprintf("%d of %d steps completed", res.StepsCompleted, len(res.Chain.Strategies)))
	b.WriteString(boxStyle.Render(title + "\n\n" + where + "\n" + progress))
	b.WriteString("\n\n")

	for i, step := range res.Steps {
		n := dimStyle.Render(fmt.Sprintf("%d.", i+1))
		switch {
		case step.Skipped:
			fmt.Fprintf(&b, "  %s %s %s\n", n, skipStyle.Render("○"), skipStyle.Render(step.Strategy.String()+"  skipped"))
		case step.Success:
			fmt.Fprintf(&b, "  %s %s %s  %s\n", n, passStyle.Render("●"), padRight(step.Strategy.String(), 22), styledScore(step.Score.Overall))
		default:
			fmt.Fprintf(&b, "  %s %s %s  %s\n", n, failStyle.Render("●"), padRight(step.Strategy.String(), 22), faintStyle.Render(step.Error))
		}
	}
	b.WriteString("\n")

	if res.StopReason != nil {
		fmt.Fprintf(&b, "  %s step %d (%s): %s\n",
			warnStyle.Render("Stopped at"), res.StopReason.Step, res.StopReason.Strategy, res.StopReason.Reason)
	}
	if res.Error != "" {
		b.WriteString("  " + failStyle.Render(res.Error) + "\n")
	}
	if res.FinalScore != nil {
		fs := res.FinalScore
		fmt.Fprintf(&b, "  %s %s  %s\n",
			titleStyle.Render("Final"),
			styledScore(fs.Overall),
			dimStyle.Render(fmt.Sprintf("LCOM4 %d→%d", fs.OriginalLCOM4, fs.TransformedLCOM4)),
		)
	}
	switch {
	case res.Written:
		b.WriteString("  " + passStyle.Render("Changes written.") + "\n")
	default:
		b.WriteString("  " + dimStyle.Render("No changes written.") + "\n")
	}
	if res.BackupID != "" {
		b.WriteString("  " + hintStyle.Render("Undo with `reforge rollback "+res.BackupID+"`.") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// RenderChains lists strategy chains with their estimated impact.
func RenderChains(chains []domain.StrategyChain) string {
	if len(chains) == 0 {
		return "  " + dimStyle.Render("No valid chains.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	hdr := fmt.Sprintf("  %-24s %6s  %s", "Chain", "Impact", "Strategies")
	b.WriteString(titleStyle.Render(hdr) + "\n")
	b.WriteString("  " + separatorLine + "\n")
	for _, c := range chains {
		names := make([]string, len(c.Strategies))
		for i, t := range c.Strategies {
			names[i] = t.String()
		}
		fmt.Fprintf(&b, "  %s %6d  %s\n",
			truncateOrPad(c.Name, 24), c.EstimatedImpact, dimStyle.Render(strings.Join(names, " → ")))
		if c.Description != "" {
			fmt.Fprintf(&b, "  %s\n", faintStyle.Render(padRight("", 33)+c.Description))
		}
	}
	b.WriteString("\n")
	return b.String()
}
