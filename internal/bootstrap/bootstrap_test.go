package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/bootstrap"
)

func TestNewRefactorService_PlansFixture(t *testing.T) {
	svc, err := bootstrap.NewRefactorService(nil)
	require.NoError(t, err)

	plan, err := svc.Plan(context.Background(), "../../testdata/godclass")
	require.NoError(t, err)
	assert.Equal(t, 2, plan.DocumentsScanned)
	require.NotEmpty(t, plan.Opportunities)

	var targets []string
	for _, o := range plan.Opportunities {
		targets = append(targets, o.Smell.Target)
	}
	assert.Contains(t, targets, "Store")
}

func TestNewLogger(t *testing.T) {
	quiet, err := bootstrap.NewLogger(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(-1))

	verbose, err := bootstrap.NewLogger(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(-1))
}
