//go:build basic || database || integration

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedRagdeltaPath holds the path to a shared ragdelta binary built once for all tests.
	sharedRagdeltaPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getRagdeltaBinary returns the path to the ragdelta binary, building it once if needed.
func getRagdeltaBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "ragdelta-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		ragdeltaPath := filepath.Join(tempDir, "ragdelta")
		buildCmd := exec.Command("go", "build", "-o", ragdeltaPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		err = buildCmd.Run()
		if err != nil {
			panic(fmt.Sprintf("failed to build ragdelta: %v", err))
		}

		sharedRagdeltaPath = ragdeltaPath
	})

	return sharedRagdeltaPath
}

// fixtureGroup is one (model, stratum) pair with the passes per item out of
// four repeats for each condition.
type fixtureGroup struct {
	model     string
	stratum   string
	baseline  []int
	treatment []int
}

// fixtureGroups has one strong improvement, one regression and one null effect.
var fixtureGroups = []fixtureGroup{
	{
		model: "gpt", stratum: "dense",
		baseline:  []int{0, 1, 1, 0, 2, 1, 0, 1, 2, 1, 0, 1, 1, 2, 0, 1},
		treatment: []int{3, 4, 3, 2, 4, 4, 2, 3, 4, 3, 3, 4, 3, 4, 2, 3},
	},
	{
		model: "llama", stratum: "dense",
		baseline:  []int{4, 3, 4, 4, 3, 4, 3, 4, 4, 3, 4, 4},
		treatment: []int{1, 1, 2, 0, 1, 2, 0, 1, 2, 1, 1, 0},
	},
	{
		model: "gpt", stratum: "sparse",
		baseline:  []int{2, 2, 1, 3, 2, 2, 1, 3},
		treatment: []int{2, 2, 1, 3, 2, 2, 1, 3},
	},
}

// writeFixture writes every fixture group as CSV reports under root using the
// default {model}/{stratum}/{condition}.csv layout.
func writeFixture(t *testing.T, root string) {
	t.Helper()
	for _, g := range fixtureGroups {
		dir := filepath.Join(root, g.model, g.stratum)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for condition, passes := range map[string][]int{"baseline": g.baseline, "rag": g.treatment} {
			var b strings.Builder
			b.WriteString("item_path,status,exemption\n")
			for i, p := range passes {
				for r := range 4 {
					status := "failed"
					if r < p {
						status = "passed"
					}
					fmt.Fprintf(&b, "suite.case_%02d,%s,\n", i, status)
				}
			}
			require.NoError(t, os.WriteFile(filepath.Join(dir, condition+".csv"), []byte(b.String()), 0o644))
		}
	}
}

// runRagdelta runs the shared binary with args and returns its combined output.
func runRagdelta(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getRagdeltaBinary(), args...)
	cmd.Env = append(os.Environ(), env...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return string(output), err
}
