package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

func TestServerSecretIsStable(t *testing.T) {
	keyring.MockInit()
	s := NewStore(t.TempDir(), zap.NewNop())

	first, err := s.ServerSecret(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, secretBytes*2, "hex-encoded secret")

	second, err := s.ServerSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestServerSecretEnvOverride(t *testing.T) {
	keyring.MockInit()
	t.Setenv(envOverride, "from-env")

	s := NewStore(t.TempDir(), zap.NewNop())
	got, err := s.ServerSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestResetRotatesSecret(t *testing.T) {
	keyring.MockInit()
	s := NewStore(t.TempDir(), zap.NewNop())

	first, err := s.ServerSecret(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Reset())

	second, err := s.ServerSecret(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestFileFallbackWhenKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	dir := t.TempDir()

	s := NewStore(dir, zap.NewNop())
	first, err := s.ServerSecret(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, secretFileName))
	require.NoError(t, err)
	assert.Equal(t, first, string(data))

	// A fresh store on the same data dir finds the file copy.
	again, err := NewStore(dir, zap.NewNop()).ServerSecret(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestResetRemovesFallbackFile(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	dir := t.TempDir()

	s := NewStore(dir, zap.NewNop())
	_, err := s.ServerSecret(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	_, err = os.Stat(filepath.Join(dir, secretFileName))
	assert.True(t, os.IsNotExist(err))
}
