package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"ecocal/internal/version"
)

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "version: "+version.Version) {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestFetchRejectsNegativeLimit(t *testing.T) {
	chdir(t, t.TempDir())
	rootCmd.SetArgs([]string{"fetch", "--limit=-1"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		fetchLimit = 0
		appHandle = nil
	})

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--limit") {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestBackfillRequiresRange(t *testing.T) {
	chdir(t, t.TempDir())
	rootCmd.SetArgs([]string{"backfill", "--from", "2023-10-01"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		backfillFrom, backfillTo = "", ""
		appHandle = nil
	})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("backfill without --to should fail")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
