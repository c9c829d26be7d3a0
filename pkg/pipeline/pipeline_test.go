package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/resflow/resflow/pkg/grid"
	"github.com/resflow/resflow/pkg/npy"
	"github.com/resflow/resflow/pkg/runner"
)

const rwoFixture = `**  TIME = 0 2020-Jan-01
** K = 1, J = 1
 1.0 2.0
**  TIME = 10 2020-Jan-11
** K = 1, J = 1
 3.0 4.0
`

func TestConvert(t *testing.T) {
	rwoDir := t.TempDir()
	path := filepath.Join(rwoDir, "caseA_PRES.rwo")
	if err := os.WriteFile(path, []byte(rwoFixture), 0644); err != nil {
		t.Fatal(err)
	}
	saveDir := filepath.Join(t.TempDir(), "results")

	res, err := Convert(ConvertOptions{
		RwoDir:   rwoDir,
		Case:     "caseA",
		Property: "PRES",
		Save:     true,
		SaveDir:  saveDir,
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if res.Array.NI != 2 || res.Array.NT != 2 {
		t.Errorf("shape = %s", res.Array.Shape())
	}
	if res.Markers != 2 || res.Steps != 2 {
		t.Errorf("Markers/Steps = %d/%d", res.Markers, res.Steps)
	}
	if res.Array.At(1, 0, 0, 1) != 4.0 {
		t.Errorf("At(1,0,0,1) = %v", res.Array.At(1, 0, 0, 1))
	}

	// The persisted artifact must load back with the same content.
	saved, err := npy.Read(res.ArrayPath)
	if err != nil {
		t.Fatalf("reading saved array: %v", err)
	}
	if saved.At(0, 0, 0, 0) != 1.0 {
		t.Errorf("saved At(0,0,0,0) = %v", saved.At(0, 0, 0, 0))
	}
}

func TestConvertMissingReport(t *testing.T) {
	_, err := Convert(ConvertOptions{
		RwoDir:   t.TempDir(),
		Case:     "caseA",
		Property: "PRES",
	})
	if err == nil {
		t.Fatal("expected error for missing report")
	}
}

func TestRunEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executable is a shell script")
	}

	archiveDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(archiveDir, "caseA.sr3"), []byte("sr3"), 0644); err != nil {
		t.Fatal(err)
	}

	// Fake Report tool: runs in the request directory and writes the
	// .rwo the convert stage expects.
	exe := filepath.Join(t.TempDir(), "report.sh")
	script := "#!/bin/sh\ntest -f caseA.rwd || exit 9\nmkdir -p rwo\ncat > rwo/caseA_PRES.rwo <<'EOF'\n" +
		rwoFixture + "EOF\n"
	if err := os.WriteFile(exe, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	p := New(runner.New(map[string]string{"test-version": exe}))
	res, err := p.Run(context.Background(), Options{
		ArchiveDir: archiveDir,
		Case:       "caseA",
		Property:   "PRES",
		Precision:  4,
		VersionTag: "test-version",
		Policy:     grid.PolicyWarn,
		Save:       true,
		SaveDir:    filepath.Join(archiveDir, "results"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.RunID == "" {
		t.Error("missing RunID")
	}
	if res.RequestPath == "" || res.ArrayPath == "" {
		t.Errorf("paths not recorded: %+v", res)
	}
	if res.Invocation == nil || res.Invocation.ExitCode != 0 {
		t.Errorf("invocation = %+v", res.Invocation)
	}
	if res.Array.Shape() != "(2, 1, 1, 2)" {
		t.Errorf("shape = %s", res.Array.Shape())
	}
}

func TestRunUnsupportedVersionAborts(t *testing.T) {
	archiveDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(archiveDir, "caseA.sr3"), []byte("sr3"), 0644); err != nil {
		t.Fatal(err)
	}

	p := New(runner.New(nil))
	_, err := p.Run(context.Background(), Options{
		ArchiveDir: archiveDir,
		Case:       "caseA",
		Property:   "PRES",
		Precision:  4,
		VersionTag: "unknown",
	})
	if err == nil {
		t.Fatal("expected report stage failure")
	}
}
