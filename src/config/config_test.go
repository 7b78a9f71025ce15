package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	LoadConfig()
	require.NotNil(t, Cfg)
	assert.Equal(t, 60*time.Minute, Cfg.AccessTokenExpiry)
	assert.Equal(t, int64(10*1024*1024), Cfg.MaxUploadSizeBytes)
	assert.True(t, decimal.New(1, -2).Equal(Cfg.AmountTolerance))
	assert.Equal(t, BatchPolicyDrop, Cfg.ExtractionBatchPolicy)
	assert.Equal(t, []string{"http://localhost:3000"}, Cfg.AllowedOrigins)
	assert.Equal(t, "llm", Cfg.DefaultExtractionSource)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PORT", "9090")
	t.Setenv("AMOUNT_TOLERANCE", "0.50")
	t.Setenv("EXTRACTION_BATCH_POLICY", "STRICT")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DEFAULT_EXTRACTION_SOURCE", "CSV")

	LoadConfig()
	assert.Equal(t, "9090", Cfg.Port)
	assert.True(t, decimal.RequireFromString("0.5").Equal(Cfg.AmountTolerance))
	assert.Equal(t, BatchPolicyStrict, Cfg.ExtractionBatchPolicy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, Cfg.LLMTimeout)
	assert.InDelta(t, 2.5, Cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, "csv", Cfg.DefaultExtractionSource)
}

func TestLoadConfigFallsBackOnBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AMOUNT_TOLERANCE", "-1")
	t.Setenv("EXTRACTION_BATCH_POLICY", "sometimes")
	t.Setenv("MAX_UPLOAD_SIZE_BYTES", "lots")
	t.Setenv("RATE_LIMIT_BURST", "many")
	t.Setenv("REPORT_CACHE_TTL", "forever")

	LoadConfig()
	assert.True(t, decimal.New(1, -2).Equal(Cfg.AmountTolerance))
	assert.Equal(t, BatchPolicyDrop, Cfg.ExtractionBatchPolicy)
	assert.Equal(t, int64(10*1024*1024), Cfg.MaxUploadSizeBytes)
	assert.Equal(t, 30, Cfg.RateLimitBurst)
	assert.Equal(t, 15*time.Minute, Cfg.ReportCacheTTL)
}
