package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"0d", 0, true},
		{"abc", 0, true},
		{"-1h", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiry(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_RequiresMongoAndSecret(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "s")
	_, err := LoadConfig()
	assert.EqualError(t, err, "MONGO_URI is required")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")
	_, err = LoadConfig()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	// 空字串也算有設定，要明確給 mongo
	t.Setenv("LEDGER_BACKEND", "mongo")
	t.Setenv("PAYMENT_CURRENCY", "INR")
	t.Setenv("JWT_EXPIRES_IN", "7d")
	t.Setenv("PASSWORD_ENCRYPTION_KEY", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "s3cret", cfg.EncryptionKey())
	assert.Equal(t, "INR", cfg.PaymentCurrency)

	t.Setenv("PASSWORD_ENCRYPTION_KEY", "other")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "other", cfg.EncryptionKey())
}

func TestLoadConfig_PostgresLedgerNeedsDSN(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("PG_DSN", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}
