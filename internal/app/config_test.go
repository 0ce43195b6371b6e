package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "PRICING",
		SkipFiles: true,
		SkipFlags: true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PRICING_DATABASE_URL", "postgres://localhost/pricing")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "postgres://localhost/pricing", cfg.DatabaseURL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_ExplicitAddrWinsOverPort(t *testing.T) {
	t.Setenv("PRICING_DATABASE_URL", "postgres://localhost/pricing")
	t.Setenv("PRICING_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestLoadConfig_Timezone(t *testing.T) {
	t.Setenv("PRICING_DATABASE_URL", "postgres://localhost/pricing")
	t.Setenv("PRICING_TIMEZONE", "Europe/Berlin")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		err  string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"DATABASE_URL": "", "PRICING_DATABASE_URL": ""},
			err:  "database URL is required",
		},
		{
			name: "unknown timezone",
			env:  map[string]string{"PRICING_DATABASE_URL": "postgres://x", "PRICING_TIMEZONE": "Mars/Olympus"},
			err:  "load timezone",
		},
		{
			name: "zero rate limit",
			env:  map[string]string{"PRICING_DATABASE_URL": "postgres://x", "PRICING_RATE_LIMIT_MAX": "0"},
			err:  "invalid rate limit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(testLoader())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}
