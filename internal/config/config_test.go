package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_PORT", "DB_DRIVER", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL", "CACHE_TTL",
		"CONTRIBUTION_PER_MEMBER", "NOTIFY_BATCH_SIZE", "AMQP_URL", "IS_PROD",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8000", cfg.AppPort)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.ContributionPerMember.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 500, cfg.NotifyBatchSize)
	assert.Empty(t, cfg.AMQPURL)
	assert.False(t, cfg.IsProd)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverSQLite)
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("CONTRIBUTION_PER_MEMBER", "2500.50")
	t.Setenv("NOTIFY_BATCH_SIZE", "50")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("IS_PROD", "true")

	cfg := LoadConfig()

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "2500.5", cfg.ContributionPerMember.String())
	assert.Equal(t, 50, cfg.NotifyBatchSize)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.IsProd)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("JWT_REFRESH_TTL", "a week")
	t.Setenv("CONTRIBUTION_PER_MEMBER", "-10")
	t.Setenv("NOTIFY_BATCH_SIZE", "many")

	cfg := LoadConfig()

	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.True(t, cfg.ContributionPerMember.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 500, cfg.NotifyBatchSize)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "cbms"}
	assert.Equal(t, "u:p@tcp(db:3306)/cbms?parseTime=true&charset=utf8mb4", cfg.DSN())
}
