package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("renderer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	surface, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "renderer", surface)
}

func TestTokenRejectsForeignIssuer(t *testing.T) {
	issuerA, err := NewTokenIssuer(time.Hour)
	require.NoError(t, err)
	issuerB, err := NewTokenIssuer(time.Hour)
	require.NoError(t, err)

	token, err := issuerA.Issue("renderer")
	require.NoError(t, err)

	_, err = issuerB.Verify(token)
	assert.Error(t, err)
}

func TestTokenRejectsTampering(t *testing.T) {
	issuer, err := NewTokenIssuer(time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("renderer")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = issuer.Verify(tampered)
	assert.Error(t, err)
}

func TestTokenExpires(t *testing.T) {
	issuer, err := NewTokenIssuer(time.Minute)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	issuer.now = func() time.Time { return past }
	token, err := issuer.Issue("renderer")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	assert.Error(t, err)
}
