package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/gescom/internal/config"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestProvideGormLoggerConfig(t *testing.T) {
	dev := provideGormLoggerConfig(Config{Environment: "dev", SlowQuery: 50 * time.Millisecond})
	assert.Equal(t, gormlogger.Info, dev.Level)
	assert.Equal(t, 50*time.Millisecond, dev.SlowThreshold)
	assert.True(t, dev.IgnoreRecordNotFound)

	prod := provideGormLoggerConfig(Config{Environment: "production"})
	assert.Equal(t, gormlogger.Warn, prod.Level)

	forced := provideGormLoggerConfig(Config{Environment: "dev", SQLLogLevel: "error"})
	assert.Equal(t, gormlogger.Error, forced.Level)
}

func TestLoadConfigReadsSlowQueryThreshold(t *testing.T) {
	t.Setenv("DB_SLOW_QUERY_MS", "750")
	t.Setenv("DB_LOG_LEVEL", " Silent ")

	cfg := LoadConfig(config.Config{AppName: "gescom"})
	assert.Equal(t, 750*time.Millisecond, cfg.SlowQuery)
	assert.Equal(t, "silent", cfg.SQLLogLevel)

	t.Setenv("DB_SLOW_QUERY_MS", "-1")
	assert.Equal(t, 200*time.Millisecond, LoadConfig(config.Config{}).SlowQuery)
}

func TestLoadConfigCarriesCompanyAndSampling(t *testing.T) {
	cfg := LoadConfig(config.Config{Seller: config.SellerConfig{SIRET: " 12345678900012 "}})
	assert.Equal(t, "12345678900012", cfg.Company)
	assert.False(t, cfg.LogSampling)

	t.Setenv("LOG_SAMPLING", "on")
	assert.True(t, LoadConfig(config.Config{}).LogSampling)
}
