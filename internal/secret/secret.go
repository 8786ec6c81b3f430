// Package secret owns the server session secret. The secret is handed to the
// managed server as WEBUI_SECRET_KEY so web sessions survive shell restarts.
// It lives in the OS keyring (Keychain, Secret Service, WinCred) with a
// file fallback for systems without one.
package secret

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

const (
	// ServiceName for keyring entries
	ServiceName = "open-webui-desktop"

	serverSecretEntry = "server-secret"

	// envOverride short-circuits storage entirely; it matches the variable
	// the server itself reads.
	envOverride = "WEBUI_SECRET_KEY"

	secretFileName = "secret.key"
	secretBytes    = 32
)

// Store resolves and persists the server secret.
type Store struct {
	dataDir string
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewStore creates a secret store rooted at the shell's data directory.
func NewStore(dataDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dataDir: dataDir, logger: logger}
}

// ServerSecret returns the stable session secret, generating and persisting
// one on first use. Resolution order: environment override, OS keyring,
// fallback file.
func (s *Store) ServerSecret(_ context.Context) (string, error) {
	if v := os.Getenv(envOverride); v != "" {
		return v, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, err := keyring.Get(ServiceName, serverSecretEntry); err == nil && v != "" {
		return v, nil
	}

	if data, err := os.ReadFile(s.secretPath()); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v, nil
		}
	}

	generated, err := generateSecret()
	if err != nil {
		return "", err
	}
	s.persist(generated)
	return generated, nil
}

// Reset forgets the stored secret. The next ServerSecret call generates a
// fresh one, which invalidates existing web sessions.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(ServiceName, serverSecretEntry); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.logger.Warn("Failed to delete server secret from keyring", zap.Error(err))
	}

	if err := os.Remove(s.secretPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove secret file: %w", err)
	}
	return nil
}

// persist stores the secret in the keyring, falling back to a file only
// readable by the current user.
func (s *Store) persist(secret string) {
	err := keyring.Set(ServiceName, serverSecretEntry, secret)
	if err == nil {
		s.logger.Debug("Stored server secret in OS keyring")
		return
	}
	s.logger.Warn("OS keyring unavailable, storing server secret on disk", zap.Error(err))

	if err := os.MkdirAll(s.dataDir, 0o700); err != nil {
		s.logger.Error("Failed to create data directory for secret file", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.secretPath(), []byte(secret), 0o600); err != nil {
		s.logger.Error("Failed to write secret file", zap.Error(err))
	}
}

func (s *Store) secretPath() string {
	return filepath.Join(s.dataDir, secretFileName)
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate server secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
