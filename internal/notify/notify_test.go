package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyDelivers(t *testing.T) {
	d := New(zap.NewNop(), true)

	var gotTitle, gotBody string
	d.SetSendFunc(func(title, body string) error {
		gotTitle, gotBody = title, body
		return nil
	})

	require.NoError(t, d.Notify("Open WebUI", "Server is ready"))
	assert.Equal(t, "Open WebUI", gotTitle)
	assert.Equal(t, "Server is ready", gotBody)
}

func TestNotifyDisabledIsSilent(t *testing.T) {
	d := New(zap.NewNop(), false)

	called := false
	d.SetSendFunc(func(_, _ string) error {
		called = true
		return nil
	})

	require.NoError(t, d.Notify("Open WebUI", "Server is ready"))
	assert.False(t, called)
}

func TestNotifyReportsDeliveryFailure(t *testing.T) {
	d := New(zap.NewNop(), true)
	d.SetSendFunc(func(_, _ string) error {
		return errors.New("no notification daemon")
	})

	err := d.Notify("Open WebUI", "Server is ready")
	require.Error(t, err)
}
