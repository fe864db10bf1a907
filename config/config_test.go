package config

import (
	"testing"
	"time"
)

func setTestEnv(t *testing.T) {
	t.Setenv("SOLFUZZ_ENV", EnvTest)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("REDIS_SENTINEL_HOSTS", "")
	t.Setenv("REDIS_MASTER", "")
	t.Setenv("OVERRIDE_REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SOLC_PATH", "")
	t.Setenv("ECHIDNA_PATH", "")
	t.Setenv("CAMPAIGN_INTERVAL", "")
	t.Setenv("CAMPAIGN_TEST_LIMIT", "")
	t.Setenv("CAMPAIGN_SEQ_LEN", "")
	t.Setenv("CORE_COUNT", "")
	t.Setenv("SERVICE_NAME", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setTestEnv(t)

	cfg := LoadConfig()

	if cfg.Environment != EnvTest {
		t.Errorf("Environment = %q, want %q", cfg.Environment, EnvTest)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.CompilerPath != "solc" {
		t.Errorf("CompilerPath = %q, want solc", cfg.CompilerPath)
	}
	if cfg.EchidnaPath != "echidna" {
		t.Errorf("EchidnaPath = %q, want echidna", cfg.EchidnaPath)
	}
	if cfg.ServiceName != "solfuzz" {
		t.Errorf("ServiceName = %q, want solfuzz", cfg.ServiceName)
	}
	if cfg.CampaignConfig.SchedulingInterval != 10*time.Minute {
		t.Errorf("SchedulingInterval = %v, want 10m", cfg.CampaignConfig.SchedulingInterval)
	}
	if cfg.CampaignConfig.TestLimit != 50000 {
		t.Errorf("TestLimit = %d, want 50000", cfg.CampaignConfig.TestLimit)
	}
	if cfg.CampaignConfig.SeqLen != 100 {
		t.Errorf("SeqLen = %d, want 100", cfg.CampaignConfig.SeqLen)
	}
}

func TestLoadConfigDebugForcesDebugLevel(t *testing.T) {
	setTestEnv(t)
	t.Setenv("SOLFUZZ_ENV", EnvDebug)
	t.Setenv("LOG_LEVEL", "error")
	// debug environment needs no external collaborators wired in tests
	t.Setenv("DATABASE_URL", "postgres://localhost/solfuzz")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("OVERRIDE_REDIS_URL", "redis://localhost:6379")

	cfg := LoadConfig()
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug in debug environment", cfg.LogLevel)
	}
}

func TestLoadConfigCampaignOverrides(t *testing.T) {
	setTestEnv(t)
	t.Setenv("CAMPAIGN_INTERVAL", "30s")
	t.Setenv("CAMPAIGN_TEST_LIMIT", "1000")
	t.Setenv("CAMPAIGN_SEQ_LEN", "10")
	t.Setenv("CORE_COUNT", "2")

	cfg := LoadConfig()
	if cfg.CampaignConfig.SchedulingInterval != 30*time.Second {
		t.Errorf("SchedulingInterval = %v, want 30s", cfg.CampaignConfig.SchedulingInterval)
	}
	if cfg.CampaignConfig.TestLimit != 1000 {
		t.Errorf("TestLimit = %d, want 1000", cfg.CampaignConfig.TestLimit)
	}
	if cfg.CampaignConfig.SeqLen != 10 {
		t.Errorf("SeqLen = %d, want 10", cfg.CampaignConfig.SeqLen)
	}
	if cfg.CoreCount != 2 {
		t.Errorf("CoreCount = %d, want 2", cfg.CoreCount)
	}
}

func TestParseHelpersFallBackOnGarbage(t *testing.T) {
	if got := parseDuration("not-a-duration", time.Minute); got != time.Minute {
		t.Errorf("parseDuration fallback = %v, want 1m", got)
	}
	if got := parseInt("NaN", 7); got != 7 {
		t.Errorf("parseInt fallback = %d, want 7", got)
	}
}
