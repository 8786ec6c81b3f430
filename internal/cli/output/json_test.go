package output

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatter_Format(t *testing.T) {
	f := &JSONFormatter{Indent: true}

	data := struct {
		Status string `json:"status"`
		PID    int    `json:"pid"`
	}{Status: "started", PID: 4242}

	got, err := f.Format(data)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if !strings.Contains(got, `"status": "started"`) {
		t.Errorf("expected indented status field, got: %s", got)
	}
	if !strings.Contains(got, `"pid": 4242`) {
		t.Errorf("expected pid field, got: %s", got)
	}
}

func TestJSONFormatter_FormatCompact(t *testing.T) {
	f := &JSONFormatter{Indent: false}

	got, err := f.Format(map[string]string{"status": "stopped"})
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if got != `{"status":"stopped"}` {
		t.Errorf("expected compact JSON, got: %s", got)
	}
}

func TestJSONFormatter_FormatTable(t *testing.T) {
	f := &JSONFormatter{}

	got, err := f.FormatTable(
		[]string{"ID", "STATUS"},
		[][]string{{"run-1", "exited"}, {"run-2"}},
	)
	if err != nil {
		t.Fatalf("FormatTable() error: %v", err)
	}

	var decoded []map[string]string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(decoded))
	}
	if decoded[0]["ID"] != "run-1" || decoded[0]["STATUS"] != "exited" {
		t.Errorf("unexpected first row: %v", decoded[0])
	}
	// Short rows pad missing cells with empty strings
	if decoded[1]["STATUS"] != "" {
		t.Errorf("expected padded cell, got: %v", decoded[1])
	}
}

func TestJSONFormatter_FormatError(t *testing.T) {
	f := &JSONFormatter{Indent: false}

	se := NewStructuredError(ErrCodeDaemonNotRunning, "daemon is not running").
		WithRecoveryCommand("open-webui-desktop serve")

	got, err := f.FormatError(se)
	if err != nil {
		t.Fatalf("FormatError() error: %v", err)
	}

	var decoded StructuredError
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Code != ErrCodeDaemonNotRunning {
		t.Errorf("code = %q, want %q", decoded.Code, ErrCodeDaemonNotRunning)
	}
	if decoded.RecoveryCommand != "open-webui-desktop serve" {
		t.Errorf("recovery command not carried through: %v", decoded)
	}
}
