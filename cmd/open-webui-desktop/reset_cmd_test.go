package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmResetWithForce(t *testing.T) {
	confirmed, err := confirmReset(true, strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, confirmed, "force must skip the prompt")
}

func TestConfirmResetReadsAnswer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "lowercase y", input: "y\n", expected: true},
		{name: "uppercase Y", input: "Y\n", expected: true},
		{name: "yes", input: "yes\n", expected: true},
		{name: "YES", input: "YES\n", expected: true},
		{name: "padded yes", input: "  yes  \n", expected: true},
		{name: "n", input: "n\n", expected: false},
		{name: "no", input: "no\n", expected: false},
		{name: "empty defaults to no", input: "\n", expected: false},
		{name: "anything else is no", input: "maybe\n", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirmed, err := confirmReset(false, strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, confirmed)
		})
	}
}

func TestConfirmResetNonInteractiveNeedsForce(t *testing.T) {
	// A pipe is an *os.File that is not a terminal, like piped stdin.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	confirmed, err := confirmReset(false, r)
	require.Error(t, err)
	assert.False(t, confirmed)
	assert.Contains(t, err.Error(), "non-interactive")
}
