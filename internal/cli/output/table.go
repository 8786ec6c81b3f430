package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// TableFormatter formats output as a human-readable table.
type TableFormatter struct {
	NoColor   bool // Disable ANSI colors
	Unicode   bool // Use Unicode box-drawing characters
	Condensed bool // Simplified output for non-TTY
}

// Format renders an object as aligned key/value rows. Slices and scalars
// fall back to indented JSON.
func (f *TableFormatter) Format(data interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, renderValue(obj[k])})
		}
		return f.FormatTable([]string{"KEY", "VALUE"}, rows)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw), nil
	}
	return pretty.String(), nil
}

// FormatError renders an error in human-readable format.
func (f *TableFormatter) FormatError(err StructuredError) (string, error) {
	var buf bytes.Buffer

	// Use simple format for non-TTY or condensed mode
	if f.Condensed || !f.isTTY() {
		buf.WriteString(fmt.Sprintf("Error: %s\n", err.Message))
		if err.Guidance != "" {
			buf.WriteString(fmt.Sprintf("  Guidance: %s\n", err.Guidance))
		}
		if err.RecoveryCommand != "" {
			buf.WriteString(fmt.Sprintf("  Try: %s\n", err.RecoveryCommand))
		}
		return buf.String(), nil
	}

	rule := strings.Repeat("-", 56)
	if f.Unicode {
		rule = strings.Repeat("─", 56)
	}

	buf.WriteString(rule + "\n")
	buf.WriteString(fmt.Sprintf("Error [%s]\n", err.Code))
	buf.WriteString(rule + "\n")
	buf.WriteString(fmt.Sprintf("\n%s\n", err.Message))

	if err.Guidance != "" {
		buf.WriteString(fmt.Sprintf("\n%s\n", err.Guidance))
	}
	if err.RecoveryCommand != "" {
		buf.WriteString(fmt.Sprintf("\nTry: %s\n", err.RecoveryCommand))
	}
	if err.CorrelationID != "" {
		buf.WriteString(fmt.Sprintf("\nCorrelation ID: %s\n", err.CorrelationID))
	}

	buf.WriteString("\n" + rule + "\n")

	return buf.String(), nil
}

// FormatTable renders tabular data with headers and alignment.
func (f *TableFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "No results found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	if f.Unicode && f.isTTY() {
		separators := make([]string, len(headers))
		for i := range separators {
			separators[i] = strings.Repeat("─", len(headers[i])+2)
		}
		fmt.Fprintln(w, strings.Join(separators, "\t"))
	}

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	if err := w.Flush(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// isTTY checks if stdout is a terminal.
func (f *TableFormatter) isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// renderValue flattens a decoded JSON value into a single table cell.
func renderValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
