package cli_test

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/adapters/inbound/cli"
	"github.com/reforge/reforge/internal/domain"
)

const fixtureDir = "../../../../testdata/godclass"

// copyFixture copies the fixture project into a temp dir so commands that
// write can run against it.
func copyFixture(t *testing.T) string {
	t.Helper()
	dst := t.TempDir()
	err := filepath.WalkDir(fixtureDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(fixtureDir, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCmdForTest()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "reforge dev")
}

func TestPlanCmd_JSON(t *testing.T) {
	out, err := run(t, "plan", fixtureDir, "--json")
	require.NoError(t, err)

	var plan domain.RefactoringPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.NotEmpty(t, plan.Opportunities)
	assert.Equal(t, domain.DocumentID("store/store.go"), plan.Opportunities[0].DocumentID)
}

func TestPlanCmd_FailAt(t *testing.T) {
	_, err := run(t, "plan", fixtureDir, "--fail-at", "1")
	assert.Error(t, err)
}

func TestCohesionCmd(t *testing.T) {
	out, err := run(t, "cohesion", fixtureDir)
	require.NoError(t, err)
	assert.Contains(t, out, "store/store.go")
	assert.Contains(t, out, "Store")
}

func TestChainsCmd_MaxLen(t *testing.T) {
	out, err := run(t, "chains", fixtureDir, "--max-len", "1", "--json")
	require.NoError(t, err)

	var chains []domain.StrategyChain
	require.NoError(t, json.Unmarshal([]byte(out), &chains))
	assert.Len(t, chains, len(domain.AllRefactoringTypes))
}

func TestChainCmd_FlagValidation(t *testing.T) {
	_, err := run(t, "chain", "store/store.go", fixtureDir)
	assert.ErrorContains(t, err, "--name or --strategies")

	_, err = run(t, "chain", "store/store.go", fixtureDir, "--name", "god_class", "--strategies", "extract_class")
	assert.ErrorContains(t, err, "not both")

	_, err = run(t, "chain", "store/store.go", fixtureDir, "--name", "nope")
	assert.ErrorContains(t, err, "unknown chain")

	_, err = run(t, "chain", "store/store.go", fixtureDir, "--strategies", "extract_class,bogus")
	assert.ErrorContains(t, err, "bogus")
}

func TestChainCmd_WritesAndRollsBack(t *testing.T) {
	dir := copyFixture(t)
	storePath := filepath.Join(dir, "store", "store.go")
	before, err := os.ReadFile(storePath)
	require.NoError(t, err)

	out, err := run(t, "chain", "store/store.go", dir, "--strategies", "extract_interface,extract_class", "--json")
	require.NoError(t, err)

	var res domain.ChainResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Written, out)
	require.NotEmpty(t, res.BackupID)

	after, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Contains(t, string(after), "type StoreAPI interface")

	_, err = run(t, "rollback", res.BackupID, dir)
	require.NoError(t, err)
	restored, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(restored))

	out, err = run(t, "history", dir, "--json")
	require.NoError(t, err)
	var entries []domain.RunEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	assert.ElementsMatch(t, []string{"chain", "rollback"}, kinds)
}

func TestCompareCmd_UnknownFile(t *testing.T) {
	_, err := run(t, "compare", fixtureDir, "--file", "missing.go")
	assert.ErrorContains(t, err, "missing.go")
}
