package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret-that-is-long-enough-for-checks")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "hybrid", cfg.DBSchemaMode)
	assert.Equal(t, "log", cfg.MailTransport)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9999")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "15")
	t.Setenv("SITE_URL", "https://blog.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, "https://blog.example.com", cfg.SiteURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing port",
			cfg:     Config{JWTSecret: "x"},
			wantErr: "PORT is required",
		},
		{
			name:    "missing secret",
			cfg:     Config{Port: "8000"},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "unknown mail transport",
			cfg:     Config{Port: "8000", JWTSecret: "x", MailTransport: "pigeon"},
			wantErr: "MAIL_TRANSPORT",
		},
		{
			name:    "production default secret",
			cfg:     Config{Port: "8000", Env: "production", JWTSecret: defaultJWTSecret},
			wantErr: "must be changed",
		},
		{
			name:    "production short secret",
			cfg:     Config{Port: "8000", Env: "production", JWTSecret: "short"},
			wantErr: "at least 32 characters",
		},
		{
			name: "production weak db password",
			cfg: Config{
				Port:       "8000",
				Env:        "production",
				JWTSecret:  strings.Repeat("k", 40),
				DBPassword: "password",
			},
			wantErr: "DB_PASSWORD",
		},
		{
			name: "production ok",
			cfg: Config{
				Port:       "8000",
				Env:        "production",
				JWTSecret:  strings.Repeat("k", 40),
				DBPassword: "s3cure-and-long",
				DBSSLMode:  "require",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTTLFallbacks(t *testing.T) {
	var cfg Config
	assert.Equal(t, 30*time.Minute, cfg.ActivationTTL())
	assert.Equal(t, 30*time.Minute, cfg.PasswordResetTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL())
}
