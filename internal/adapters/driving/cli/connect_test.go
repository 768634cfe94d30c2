package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tdsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tdsync/internal/core/domain"
	"github.com/custodia-labs/tdsync/internal/core/services"
)

func stubPassword(t *testing.T, password string) {
	t.Helper()
	old := readPassword
	readPassword = func() string { return password }
	t.Cleanup(func() { readPassword = old })
}

func TestConnectCmd_UsesSavedAccount(t *testing.T) {
	cred := domain.NewCredential("tok", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0)
	conn := &mockConnectionService{cred: &cred}
	withServices(t, Services{ConnectionService: conn})

	out, err := executeCommand(t, "connect")

	require.NoError(t, err)
	assert.Equal(t, 1, conn.connects)
	assert.Contains(t, out, "Connected.")
	assert.Contains(t, out, "Token expires")
}

func TestConnectCmd_SavesAccountFirst(t *testing.T) {
	stubPassword(t, "hunter22")
	cred := domain.NewCredential("tok", "", time.Now(), 0)
	conn := &mockConnectionService{cred: &cred}
	configStore := memory.NewConfigStore()
	settings := services.NewSettingsService(configStore)
	withServices(t, Services{ConnectionService: conn, SettingsService: settings})

	_, err := executeCommand(t, "connect", "--email", "ops@example.com", "--company", "c-1")

	require.NoError(t, err)
	assert.Equal(t, 1, conn.connects)
	assert.Equal(t, "ops@example.com", configStore.GetString("timedoctor.email"))
	assert.Equal(t, "hunter22", configStore.GetString("timedoctor.password"))
	assert.Equal(t, "c-1", configStore.GetString("timedoctor.company_id"))
}

func TestConnectCmd_RejectsIncompleteAccount(t *testing.T) {
	stubPassword(t, "")
	conn := &mockConnectionService{}
	settings := services.NewSettingsService(memory.NewConfigStore())
	withServices(t, Services{ConnectionService: conn, SettingsService: settings})

	_, err := executeCommand(t, "connect", "--email", "ops@example.com", "--company", "c-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
	assert.Zero(t, conn.connects)
}

func TestConnectCmd_Failure(t *testing.T) {
	conn := &mockConnectionService{err: &domain.AuthError{Message: "bad password"}}
	withServices(t, Services{ConnectionService: conn})

	_, err := executeCommand(t, "connect")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect failed")
	assert.True(t, errors.Is(err, domain.ErrAuthInvalid))
}

func TestConnectCmd_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	_, err := executeCommand(t, "connect")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection service not configured")
}

func TestDisconnectCmd(t *testing.T) {
	t.Run("keeps account by default", func(t *testing.T) {
		conn := &mockConnectionService{}
		configStore := memory.NewConfigStore()
		require.NoError(t, configStore.Set("timedoctor.password", "hunter22"))
		withServices(t, Services{ConnectionService: conn, SettingsService: services.NewSettingsService(configStore)})

		out, err := executeCommand(t, "disconnect")

		require.NoError(t, err)
		assert.Equal(t, 1, conn.disconnects)
		assert.Equal(t, "hunter22", configStore.GetString("timedoctor.password"))
		assert.Contains(t, out, "Disconnected")
	})

	t.Run("forget clears password", func(t *testing.T) {
		conn := &mockConnectionService{}
		configStore := memory.NewConfigStore()
		require.NoError(t, configStore.Set("timedoctor.password", "hunter22"))
		withServices(t, Services{ConnectionService: conn, SettingsService: services.NewSettingsService(configStore)})

		_, err := executeCommand(t, "disconnect", "--forget")

		require.NoError(t, err)
		assert.Empty(t, configStore.GetString("timedoctor.password"))
	})
}
