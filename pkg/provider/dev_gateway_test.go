package provider_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/provider"
)

func TestDevGateway_Send(t *testing.T) {
	t.Parallel()

	t.Run("writes message to disk", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		gw := provider.NewDevGateway("dev-email", dir)

		receipt, err := gw.Send(context.Background(), "user@example.com", "Welcome", "Hello there")
		require.NoError(t, err)
		require.Equal(t, "dev-email", receipt.Provider)
		require.NotEmpty(t, receipt.MessageID)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
		require.NoError(t, err)

		var msg map[string]string
		require.NoError(t, json.Unmarshal(data, &msg))
		require.Equal(t, "user@example.com", msg["recipient"])
		require.Equal(t, "Welcome", msg["subject"])
		require.Equal(t, "Hello there", msg["body"])
		require.Equal(t, receipt.MessageID, msg["message_id"])
	})

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "outbox", "email")
		gw := provider.NewDevGateway("dev-email", dir)

		_, err := gw.Send(context.Background(), "user@example.com", "", "body")
		require.NoError(t, err)
		require.DirExists(t, dir)
	})

	t.Run("unique message ids per send", func(t *testing.T) {
		t.Parallel()

		gw := provider.NewDevGateway("dev-sms", t.TempDir())

		first, err := gw.Send(context.Background(), "+15550001111", "", "one")
		require.NoError(t, err)
		second, err := gw.Send(context.Background(), "+15550001111", "", "two")
		require.NoError(t, err)
		require.NotEqual(t, first.MessageID, second.MessageID)
	})
}
