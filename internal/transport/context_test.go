package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetConnectionSourceDefaultsToTCP(t *testing.T) {
	assert.Equal(t, ConnectionSourceTCP, GetConnectionSource(context.Background()))
}

func TestTagConnectionContextRoundTrip(t *testing.T) {
	ctx := TagConnectionContext(context.Background(), ConnectionSourceSocket)
	assert.Equal(t, ConnectionSourceSocket, GetConnectionSource(ctx))
}

func TestTrustedSources(t *testing.T) {
	assert.False(t, ConnectionSourceTCP.Trusted())
	assert.True(t, ConnectionSourceSocket.Trusted())
	assert.True(t, ConnectionSourceRenderer.Trusted())
}

func TestLoggingTransportPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewLoggingTransport(nil, zap.NewNop())}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
