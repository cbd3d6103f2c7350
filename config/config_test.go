package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-engine/financial"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 60, cfg.RateLimitRPM)
	assert.Empty(t, cfg.DBPath)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PORT":           "9090",
		"ENV":            "Development",
		"LOG_LEVEL":      "warn",
		"DB_PATH":        "/var/lib/loans.db",
		"REDIS_ADDR":     "localhost:6379",
		"CACHE_TTL":      "30s",
		"RATE_LIMIT_RPM": "5",
		"POLICY_FILE":    "policy.yaml",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/var/lib/loans.db", cfg.DBPath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.RateLimitRPM)
	assert.Equal(t, "policy.yaml", cfg.PolicyFile)
}

func TestFromLookup_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad ttl", map[string]string{"CACHE_TTL": "soon"}},
		{"negative ttl", map[string]string{"CACHE_TTL": "-1m"}},
		{"bad rpm", map[string]string{"RATE_LIMIT_RPM": "many"}},
		{"zero rpm", map[string]string{"RATE_LIMIT_RPM": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOAN_ENGINE_TEST_PORT=7070\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LOAN_ENGINE_TEST_PORT") })

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", os.Getenv("LOAN_ENGINE_TEST_PORT"))
}

func TestLoadPolicyFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
flat_processing_fee: "750"
processing_fee_rate: "0.04"
npl_threshold_days: 60
`), 0o600))

	p, err := LoadPolicyFromPath(path)
	require.NoError(t, err)

	def := financial.DefaultPolicy()
	assert.Equal(t, "750", p.FlatProcessingFee.String())
	assert.Equal(t, "0.04", p.ProcessingFeeRate.String())
	assert.Equal(t, 60, p.NPLThresholdDays)
	assert.True(t, p.FlatFeeCeiling.Equal(def.FlatFeeCeiling))
	assert.Equal(t, def.MaxTenureMonths, p.MaxTenureMonths)
}

func TestLoadPolicyFromPath_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPolicyFromPath(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read policy")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`flat_processing_fee: "abc"`), 0o600))
	_, err = LoadPolicyFromPath(bad)
	assert.ErrorContains(t, err, "flat_processing_fee")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`qualification_ratio: "1.5"`), 0o600))
	_, err = LoadPolicyFromPath(invalid)
	assert.ErrorContains(t, err, "invalid policy")
}

func TestLoadPolicyOrDefault(t *testing.T) {
	p, err := LoadPolicyOrDefault("")
	require.NoError(t, err)
	assert.True(t, p.FlatProcessingFee.Equal(financial.DefaultPolicy().FlatProcessingFee))
}
