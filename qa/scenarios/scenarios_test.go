package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/dispatchboard/core/dispatch"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no scenarios found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			dispatch.ResetMetrics(nil)
			rep, err := Run(context.Background(), sc, nil)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := rep.Err(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestMismatchesAreReported(t *testing.T) {
	sc, err := Load("emergency_drag.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	calls := 3
	sc.Expected.Calls = &calls
	sc.Expected.Unassigned = []string{"W2"}
	sc.Steps[0].Expect.Outcome = "noop"

	dispatch.ResetMetrics(nil)
	rep, err := Run(context.Background(), sc, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rep.Mismatches) != 3 {
		t.Fatalf("expected 3 mismatches, got %v", rep.Mismatches)
	}
	if len(rep.Audit) != 1 || rep.Audit[0].Outcome != "assigned" {
		t.Fatalf("unexpected audit %+v", rep.Audit)
	}
}

func TestLoadRequiresAnchor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte("name: x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected anchor error")
	}
}
