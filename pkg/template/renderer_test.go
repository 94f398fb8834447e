package template_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fallback := template.Content{Subject: "fallback subject", Body: "fallback body"}

	t.Run("empty key returns fallback unchanged", func(t *testing.T) {
		t.Parallel()

		r, err := template.NewRenderer(template.NewMemoryStorage())
		require.NoError(t, err)

		got, err := r.Render(ctx, "", notification.ChannelEmail, "en", fallback, nil)
		require.NoError(t, err)
		assert.Equal(t, fallback, got)
	})

	t.Run("missing template returns fallback", func(t *testing.T) {
		t.Parallel()

		r, err := template.NewRenderer(template.NewMemoryStorage())
		require.NoError(t, err)

		got, err := r.Render(ctx, "welcome", notification.ChannelEmail, "en", fallback, nil)
		require.NoError(t, err)
		assert.Equal(t, fallback, got)
	})

	t.Run("interpolates variables", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStorage()
		require.NoError(t, store.Set(ctx, template.Template{
			Key:     "welcome",
			Channel: notification.ChannelEmail,
			Locale:  "en",
			Subject: "Welcome, {{name}}!",
			Body:    "Hi {{name}}, your plan is {{plan.tier}}.",
		}))

		r, err := template.NewRenderer(store)
		require.NoError(t, err)

		got, err := r.Render(ctx, "welcome", notification.ChannelEmail, "en", fallback, map[string]any{
			"name": "Ada",
			"plan": map[string]any{"tier": "pro"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Welcome, Ada!", got.Subject)
		assert.Equal(t, "Hi Ada, your plan is pro.", got.Body)
	})

	t.Run("missing variables render as empty string per field", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStorage()
		require.NoError(t, store.Set(ctx, template.Template{
			Key:     "reminder",
			Channel: notification.ChannelSMS,
			Locale:  "en",
			Subject: "Hello {{missing}}",
			Body:    "Due {{when}}: {{missing}}",
		}))

		r, err := template.NewRenderer(store)
		require.NoError(t, err)

		got, err := r.Render(ctx, "reminder", notification.ChannelSMS, "en", fallback, map[string]any{
			"when": "tomorrow",
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello ", got.Subject)
		assert.Equal(t, "Due tomorrow: ", got.Body)
	})

	t.Run("locale mismatch falls back", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStorage()
		require.NoError(t, store.Set(ctx, template.Template{
			Key:     "welcome",
			Channel: notification.ChannelEmail,
			Locale:  "en",
			Body:    "hello",
		}))

		r, err := template.NewRenderer(store)
		require.NoError(t, err)

		got, err := r.Render(ctx, "welcome", notification.ChannelEmail, "de", fallback, nil)
		require.NoError(t, err)
		assert.Equal(t, fallback, got)
	})

	t.Run("nil storage", func(t *testing.T) {
		t.Parallel()

		r, err := template.NewRenderer(nil)
		assert.ErrorIs(t, err, template.ErrStorageNil)
		assert.Nil(t, r)
	})
}
