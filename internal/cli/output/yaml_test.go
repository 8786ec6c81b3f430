package output

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestYAMLFormatter_Format(t *testing.T) {
	f := &YAMLFormatter{}

	got, err := f.Format(map[string]interface{}{
		"status":    "started",
		"reachable": true,
	})
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if !strings.Contains(got, "status: started") {
		t.Errorf("expected status line, got: %s", got)
	}
	if !strings.Contains(got, "reachable: true") {
		t.Errorf("expected reachable line, got: %s", got)
	}
}

func TestYAMLFormatter_FormatTable(t *testing.T) {
	f := &YAMLFormatter{}

	got, err := f.FormatTable(
		[]string{"KEY", "VALUE"},
		[][]string{{"port", "8080"}},
	)
	if err != nil {
		t.Fatalf("FormatTable() error: %v", err)
	}

	var decoded []map[string]string
	if err := yaml.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not a YAML sequence: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["KEY"] != "port" {
		t.Errorf("unexpected decode: %v", decoded)
	}
}
