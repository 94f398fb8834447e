package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

func TestLoad(t *testing.T) {
	t.Run("parses env tags with defaults", func(t *testing.T) {
		type withDefaults struct {
			Host string `env:"LOADER_TEST_HOST" envDefault:"localhost"`
			Port int    `env:"LOADER_TEST_PORT" envDefault:"5432"`
		}

		var cfg withDefaults
		require.NoError(t, config.Load(&cfg))
		require.Equal(t, "localhost", cfg.Host)
		require.Equal(t, 5432, cfg.Port)
	})

	t.Run("reads values from environment", func(t *testing.T) {
		type fromEnv struct {
			Workers int `env:"LOADER_TEST_WORKERS" envDefault:"1"`
		}

		t.Setenv("LOADER_TEST_WORKERS", "8")

		var cfg fromEnv
		require.NoError(t, config.Load(&cfg))
		require.Equal(t, 8, cfg.Workers)
	})

	t.Run("caches per type", func(t *testing.T) {
		type cached struct {
			Value string `env:"LOADER_TEST_CACHED" envDefault:"first"`
		}

		var first cached
		require.NoError(t, config.Load(&first))

		// A changed environment must not affect the cached value.
		t.Setenv("LOADER_TEST_CACHED", "second")

		var second cached
		require.NoError(t, config.Load(&second))
		require.Equal(t, first.Value, second.Value)
	})

	t.Run("rejects nil pointer", func(t *testing.T) {
		var cfg *struct{}
		require.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("fails on missing required values", func(t *testing.T) {
		type required struct {
			Token string `env:"LOADER_TEST_REQUIRED,required"`
		}

		var cfg required
		require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	})
}
