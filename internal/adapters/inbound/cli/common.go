package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reforge/reforge/internal/application"
	"github.com/reforge/reforge/internal/bootstrap"
	"github.com/reforge/reforge/internal/domain"
)

func projectPath(args []string, at int) (string, error) {
	path := "."
	if len(args) > at {
		path = args[at]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

func newService(opts *options) (*application.RefactorService, error) {
	logger, err := bootstrap.NewLogger(opts.verbose)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewRefactorService(logger)
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// pickOpportunity selects the index-th opportunity (1-based) of the plan,
// counting only those in file when file is set.
func pickOpportunity(plan *domain.RefactoringPlan, file string, index int) (domain.RefactoringOpportunity, error) {
	file = filepath.ToSlash(strings.TrimPrefix(file, "./"))
	n := 0
	for _, opp := range plan.Opportunities {
		if file != "" && string(opp.DocumentID) != file {
			continue
		}
		n++
		if n == index {
			return opp, nil
		}
	}
	if file != "" {
		return domain.RefactoringOpportunity{}, fmt.Errorf("no opportunity #%d in %s (%d found)", index, file, n)
	}
	return domain.RefactoringOpportunity{}, fmt.Errorf("no opportunity #%d (%d found)", index, n)
}
