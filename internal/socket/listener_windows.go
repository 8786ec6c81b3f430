//go:build windows

package socket

import (
	"context"
	"fmt"
	"time"

	winio "github.com/Microsoft/go-winio"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/transport"
)

// listenNamedPipe creates a Windows named pipe listener. The default
// security descriptor restricts connections to the current user, so no
// per-connection credential check is needed.
func listenNamedPipe(pipeName string, logger *zap.Logger) (*Listener, error) {
	pipePath := normalizePipePath(pipeName)
	logger.Info("Creating Windows named pipe listener", zap.String("pipe", pipePath))

	config := &winio.PipeConfig{
		SecurityDescriptor: "",
		MessageMode:        false,
		InputBufferSize:    65536,
		OutputBufferSize:   65536,
	}

	ln, err := winio.ListenPipe(pipePath, config)
	if err != nil {
		return nil, fmt.Errorf("cannot create named pipe: %w", err)
	}

	return &Listener{
		Listener: ln,
		Source:   transport.ConnectionSourceSocket,
		Address:  pipePath,
	}, nil
}

// listenUnix is not available on Windows.
func listenUnix(string, *zap.Logger) (*Listener, error) {
	return nil, fmt.Errorf("unix domain sockets are not supported on Windows")
}

// isPipeAvailable probes the pipe with a short connect attempt.
func isPipeAvailable(endpoint string) bool {
	pipePath := extractPipePath(endpoint)
	if pipePath == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	conn, err := winio.DialPipeContext(ctx, pipePath)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
