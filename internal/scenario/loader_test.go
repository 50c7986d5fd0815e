package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validScenario = `
id: SC-TEST-001
description: happy path
transport:
  outcomes: [success]
discovery:
  passes:
    - ["192.168.1.44:80"]
verify:
  "192.168.1.44:80": [controller]
identity:
  device_id: "aa:bb:cc:dd:ee:11"
  name: Controller-AA11
  led_count: 30
steps:
  - action: submit_credentials
    network: HomeNet
    secret: pw1234
  - action: await_state
    state: SUCCEEDED
expect:
  final_state: SUCCEEDED
  record:
    device_id: "aa:bb:cc:dd:ee:11"
    address: "192.168.1.44:80"
    configured: true
`

func TestParseValidScenario(t *testing.T) {
	sc, err := Parse([]byte(validScenario))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sc.ID != "SC-TEST-001" {
		t.Errorf("ID = %q, want SC-TEST-001", sc.ID)
	}
	if len(sc.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(sc.Steps))
	}
	if sc.Steps[0].Network != "HomeNet" || sc.Steps[0].Secret != "pw1234" {
		t.Errorf("step 1 credentials = %q/%q", sc.Steps[0].Network, sc.Steps[0].Secret)
	}
	if got := sc.Verify["192.168.1.44:80"]; len(got) != 1 || got[0] != "controller" {
		t.Errorf("verify script = %v", got)
	}
	if sc.Expect.Record == nil || !sc.Expect.Record.Configured {
		t.Errorf("expected a configured record expectation, got %+v", sc.Expect.Record)
	}
}

func TestParseRejectsMissingID(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - action: cancel\nexpect:\n  final_state: CANCELLED\n"))
	if err == nil {
		t.Fatal("expected an error for a scenario without an id")
	}
}

func TestParseRejectsUnknownAction(t *testing.T) {
	_, err := Parse([]byte(`
id: SC-BAD-001
steps:
  - action: reticulate_splines
expect:
  final_state: FAILED
`))
	if err == nil {
		t.Fatal("expected an error for an unknown action")
	}
}

func TestParseRejectsAwaitWithoutState(t *testing.T) {
	_, err := Parse([]byte(`
id: SC-BAD-002
steps:
  - action: await_state
expect:
  final_state: FAILED
`))
	if err == nil {
		t.Fatal("expected an error for await_state without a state")
	}
}

func TestLoadDirSortsAndRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()

	write := func(name, id string) {
		t.Helper()
		content := "id: " + id + "\nsteps:\n  - action: cancel\nexpect:\n  final_state: CANCELLED\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("b.yaml", "SC-B")
	write("a.yaml", "SC-A")

	scenarios, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(scenarios) != 2 || scenarios[0].ID != "SC-A" || scenarios[1].ID != "SC-B" {
		t.Errorf("unexpected order: %v, %v", scenarios[0].ID, scenarios[1].ID)
	}

	write("c.yaml", "SC-A")
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadAnnotatesParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	content := "steps:\n  - action: cancel\nexpect:\n  final_state: CANCELLED\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected a *LoadError, got %v", err)
	}
	if le.File != path {
		t.Errorf("expected file %q in the error, got %q", path, le.File)
	}
}
