package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"insights/internal/parser/csv"
	"insights/internal/probe"
)

const helperEnv = "GO_WANT_MAIN_HELPER"

// TestHelperProcess runs main() in a subprocess when GO_WANT_MAIN_HELPER=1,
// with the flags that follow the "--" marker.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	args := os.Args
	sep := -1
	for i, a := range args {
		if a == "--" {
			sep = i
			break
		}
	}
	os.Args = []string{args[0]}
	if sep >= 0 {
		os.Args = append(os.Args, args[sep+1:]...)
	}
	main()
	os.Exit(0)
}

func runMainSubprocess(t *testing.T, flags ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--")
	cmd.Env = append(os.Environ(), helperEnv+"=1")
	cmd.Args = append(cmd.Args, flags...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func writeExtracts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

var goodLocation = map[string]string{"Location.csv": "LocationID,Name\n1,Tool Crib\n2,Paint Shop\n"}

// TestProbeDir checks reports come back sorted with contract findings.
func TestProbeDir(t *testing.T) {
	dir := writeExtracts(t, map[string]string{
		"Location.csv":         goodLocation["Location.csv"],
		"ProductInventory.csv": "ProductID,LocationID,Quantity\n1,1,many\n",
	})
	reps, err := probeDir(context.Background(), dir, csv.Options{TrimSpace: true})
	if err != nil {
		t.Fatalf("probeDir: %v", err)
	}
	if len(reps) != 2 || reps[0].Table != "Location" || reps[1].Table != "ProductInventory" {
		t.Fatalf("reports = %+v", reps)
	}
	if !reps[0].OK() {
		t.Errorf("Location should pass: %+v", reps[0])
	}
	if reps[1].OK() || len(reps[1].Missing) != 1 {
		t.Errorf("ProductInventory should fail with one missing column: %+v", reps[1])
	}
}

// TestMain_JSONOutput runs the binary and decodes its JSON.
func TestMain_JSONOutput(t *testing.T) {
	stdout, stderr, err := runMainSubprocess(t, "-dir", writeExtracts(t, goodLocation), "-json")
	if err != nil {
		t.Fatalf("main returned error: %v, stderr: %s", err, stderr)
	}
	var reps []probe.Report
	if err := json.Unmarshal([]byte(stdout), &reps); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, stdout)
	}
	if len(reps) != 1 || reps[0].Rows != 2 || reps[0].Columns[0].Inferred != "int" {
		t.Fatalf("unexpected report: %+v", reps)
	}
}

// TestMain_StrictFails checks -strict turns a contract failure into exit 1.
func TestMain_StrictFails(t *testing.T) {
	dir := writeExtracts(t, map[string]string{"Location.csv": "LocationID\n1\n"})
	stdout, _, err := runMainSubprocess(t, "-dir", dir, "-strict")
	if err == nil {
		t.Fatalf("expected non-zero exit, output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Location") || !strings.Contains(stdout, "FAIL") {
		t.Errorf("expected a FAIL line for Location, got:\n%s", stdout)
	}
}
