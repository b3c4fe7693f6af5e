package tui

import (
	"fmt"
	"strings"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/cohesion"
)

// RenderCohesion formats the cohesion reports of one document: a class table
// followed by the clusters of every class that splits.
func RenderCohesion(id domain.DocumentID, reports []cohesion.Report) string {
	var b strings.Builder

	b.WriteString("  " + fileStyle.Render(shortenPath(string(id))) + "\n")
	if len(reports) == 0 {
		b.WriteString("    " + dimStyle.Render("no structs") + "\n\n")
		return b.String()
	}

	hdr := fmt.Sprintf("    %-28s %7s %6s  %s", "Class", "Methods", "Fields", "LCOM4")
	b.WriteString(titleStyle.Render(hdr) + "\n")
	for _, r := range reports {
		lcom := passStyle.Render(fmt.Sprintf("%d", r.LCOM4))
		if r.LCOM4 > 1 {
			lcom = warnStyle.Render(fmt.Sprintf("%d", r.LCOM4)) + "  " + severityTag(cohesion.LCOM4Severity(r.LCOM4))
		}
		fmt.Fprintf(&b, "    %s %7d %6d  %s\n", truncateOrPad(r.Class, 28), r.Methods, r.Fields, lcom)
	}

	for _, r := range reports {
		if len(r.Clusters) < 2 {
			continue
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "    %s %s\n", sectionHeaderStyle.Render(r.Class), dimStyle.Render(fmt.Sprintf("(%d clusters)", len(r.Clusters))))
		for _, c := range r.Clusters {
			icon := dimStyle.Render("○")
			if c.Extractable {
				icon = passStyle.Render("●")
			}
			fmt.Fprintf(&b, "      %s %s  %s\n", icon, titleStyle.Render(c.SuggestedName), dimStyle.Render(c.Responsibility))
			methods := append(append([]string{}, c.Methods...), c.Properties...)
			fmt.Fprintf(&b, "        %s %s\n", dimStyle.Render("methods"), strings.Join(methods, ", "))
			if len(c.Fields) > 0 {
				fmt.Fprintf(&b, "        %s %s\n", dimStyle.Render("fields "), strings.Join(c.Fields, ", "))
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}
