package config

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadFsyncPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.FsyncPolicy = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid fsyncPolicy")
	}
}

func TestValidateRejectsOutOfRangeScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Graph.NodeMinScore = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for nodeMinScore > 1")
	}
}

func TestApplyCLIOverridesOnlySetsExplicit(t *testing.T) {
	cfg := DefaultConfig()
	originalLevel := cfg.Logging.Level
	dp := "/tmp/data"
	cfg.ApplyCLIOverrides(&CLIOverrides{DataPath: &dp})
	if cfg.Storage.DataPath != "/tmp/data" {
		t.Error("expected data path override to apply")
	}
	if cfg.Logging.Level != originalLevel {
		t.Error("expected unset fields to remain unchanged")
	}
}

func TestConfigFromEnvOverridesThrottle(t *testing.T) {
	t.Setenv("COPILOT_MINER_THROTTLE_SEC", "60")
	cfg := ConfigFromEnv(DefaultConfig())
	if cfg.Miner.ThrottleSec != 60 {
		t.Errorf("expected throttleSec=60, got %d", cfg.Miner.ThrottleSec)
	}
}

func TestDaemonIntervalsMustBePositive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Daemons.MineInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero mine interval")
	}
	cfg.Daemons.MineInterval = time.Minute
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
