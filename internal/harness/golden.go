package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/gplan/internal/compiler"
)

// GoldenDir is where RunWithGolden looks for golden files.
const GoldenDir = "testdata/golden"

// Snapshot renders a compilation for golden comparison: a header naming
// the scenario and the passes that fired, then the plan's Explain text.
func Snapshot(name string, res *compiler.Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", name)
	if len(res.Passes) > 0 {
		fmt.Fprintf(&b, "# passes: %s\n", strings.Join(res.Passes, ", "))
	}
	b.WriteString(res.Plan.Explain())
	return []byte(b.String())
}

// RunWithGolden runs the scenario, fails the test on unmet expectations,
// and compares the snapshot with <dir>/<name>.golden. An empty dir means
// GoldenDir.
func RunWithGolden(t *testing.T, s *Scenario, dir string) *Result {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	for _, e := range result.Errors {
		t.Errorf("%s: %s", s.Name, e)
	}
	if result.Compile == nil {
		return result
	}
	AssertGolden(t, dir, s.Name, result.Compile)
	return result
}

// AssertGolden compares an existing compilation with its golden file.
func AssertGolden(t *testing.T, dir, name string, res *compiler.Result) {
	t.Helper()
	newGoldie(t, dir).Assert(t, name, Snapshot(name, res))
}

// UpdateGolden writes the golden file for a compilation.
func UpdateGolden(t *testing.T, dir, name string, res *compiler.Result) {
	t.Helper()
	if err := newGoldie(t, dir).Update(t, name, Snapshot(name, res)); err != nil {
		t.Fatalf("update golden %s: %v", name, err)
	}
}

func newGoldie(t *testing.T, dir string) *goldie.Goldie {
	if dir == "" {
		dir = GoldenDir
	}
	return goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
}
