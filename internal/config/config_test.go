package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, int64(50), cfg.PaymentMinCents)
	assert.Equal(t, float64(72), cfg.RescheduleCutoff.Hours())
	assert.Equal(t, float64(20), cfg.SchedulingTimeout.Seconds())
}

func TestLoad_ProdRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SCHEDULING_WEBHOOK_SECRET", "")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULING_WEBHOOK_SECRET")
}

func TestLoad_ProdWithSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "release")
	t.Setenv("SCHEDULING_WEBHOOK_SECRET", "whsec")
	t.Setenv("MANAGE_TOKEN_SECRET", "manage")
	t.Setenv("INTERNAL_TOKEN", "internal")
	t.Setenv("SCHEDULING_API_TOKEN", "api")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.True(t, IsProdLike(cfg.AppEnv))
}

func TestLoad_RejectsBadLogFormat(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
}

func TestLoad_RejectsBadTimezone(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus")

	_, err := Load("testdata/does-not-exist.env")
	require.Error(t, err)
}
