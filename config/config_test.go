package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnviron(t *testing.T) {
	base := []string{
		"JWT_SECRET=0123456789abcdef0123",
		"SUPABASE_URL=https://example.supabase.co",
		"SUPABASE_ANON_KEY=anon",
	}

	t.Run("Should apply defaults when only required values are set", func(t *testing.T) {
		cfg, err := LoadFromEnviron(base)
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.ServerPort)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "parkinglots", cfg.LotsSource)
		assert.Equal(t, time.Hour, cfg.JWTExpiration)
		assert.Empty(t, cfg.AdminEmails)
	})

	t.Run("Should override from environment and split admin emails", func(t *testing.T) {
		env := append([]string{
			"SERVER_PORT=9090",
			"DB_DRIVER=sqlite",
			"DATABASE_URL=file::memory:",
			"JWT_EXPIRATION=2h",
			"ADMIN_EMAILS= Boss@SDSU.edu , ,ops@sdsu.edu",
			"UNRELATED_VAR=ignored",
		}, base...)
		cfg, err := LoadFromEnviron(env)
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.ServerPort)
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
		assert.Equal(t, []string{"boss@sdsu.edu", "ops@sdsu.edu"}, cfg.AdminEmails)
	})

	t.Run("Should reject unknown database driver", func(t *testing.T) {
		_, err := LoadFromEnviron(append([]string{"DB_DRIVER=oracle"}, base...))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should require supabase settings for hosted auth", func(t *testing.T) {
		_, err := LoadFromEnviron([]string{"JWT_SECRET=0123456789abcdef0123"})
		require.Error(t, err)
	})

	t.Run("Should not require supabase settings for local auth", func(t *testing.T) {
		cfg, err := LoadFromEnviron([]string{"JWT_SECRET=0123456789abcdef0123", "AUTH_PROVIDER=local"})
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.AuthProvider)
	})
}
