package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/provider"
)

func TestFaultyGateway_Send(t *testing.T) {
	t.Parallel()

	t.Run("consumes failure plan then delegates", func(t *testing.T) {
		t.Parallel()

		inner := provider.NewDevGateway("dev-sms", t.TempDir())
		boom := errors.New("provider unavailable")
		gw := provider.NewFaultyGateway(inner, boom, boom, nil)

		_, err := gw.Send(context.Background(), "+15550001111", "", "first")
		require.ErrorIs(t, err, boom)

		_, err = gw.Send(context.Background(), "+15550001111", "", "second")
		require.ErrorIs(t, err, boom)

		receipt, err := gw.Send(context.Background(), "+15550001111", "", "third")
		require.NoError(t, err)
		require.Equal(t, "dev-sms", receipt.Provider)
		require.NotEmpty(t, receipt.MessageID)
		require.Equal(t, 3, gw.Calls())
	})

	t.Run("empty plan passes everything through", func(t *testing.T) {
		t.Parallel()

		inner := provider.NewDevGateway("dev-email", t.TempDir())
		gw := provider.NewFaultyGateway(inner)
		require.Equal(t, "dev-email", gw.Name())

		_, err := gw.Send(context.Background(), "user@example.com", "hi", "body")
		require.NoError(t, err)
	})
}
