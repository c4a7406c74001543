package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOOPERD_PORT", "LOOPERD_SAMPLE_RATE",
		"PITCH_GRAIN_SIZE", "PITCH_HOP_RATIO", "PITCH_JOB_TIMEOUT_MS",
		"UNDO_STACK_LIMIT", "RECORDER_GLOBAL_TIMEOUT_MS", "MASTER_CAP_SECONDS",
		"AUTO_MUTE_MONITOR_ON_OVERDUB", "ALLOW_WRAP_OVERDUB",
		"LOOPBACK_RMS_THRESHOLD", "LOOPERD_EXPORT_DIR", "LOOPERD_OPUS_BITRATE",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.PitchGrainSize != 2048 {
		t.Errorf("PitchGrainSize = %d, want 2048", cfg.PitchGrainSize)
	}
	if cfg.PitchHopRatio != 0.25 {
		t.Errorf("PitchHopRatio = %v, want 0.25", cfg.PitchHopRatio)
	}
	if cfg.UndoStackLimit != 6 {
		t.Errorf("UndoStackLimit = %d, want 6", cfg.UndoStackLimit)
	}
	if cfg.RecorderGlobalTimeoutMs != 120000 {
		t.Errorf("RecorderGlobalTimeoutMs = %d, want 120000", cfg.RecorderGlobalTimeoutMs)
	}
	if cfg.MasterCapSeconds != 60 {
		t.Errorf("MasterCapSeconds = %v, want 60", cfg.MasterCapSeconds)
	}
	if !cfg.AutoMuteMonitorOnOverdub {
		t.Error("AutoMuteMonitorOnOverdub should default true")
	}
	if cfg.AllowWrapOverdub {
		t.Error("AllowWrapOverdub should default false")
	}
	if cfg.LoopbackRMSThreshold != 0.02 {
		t.Errorf("LoopbackRMSThreshold = %v, want 0.02", cfg.LoopbackRMSThreshold)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOPERD_PORT", "3000")
	t.Setenv("PITCH_GRAIN_SIZE", "4096")
	t.Setenv("UNDO_STACK_LIMIT", "10")
	t.Setenv("ALLOW_WRAP_OVERDUB", "true")
	t.Setenv("AUTO_MUTE_MONITOR_ON_OVERDUB", "false")
	t.Setenv("MASTER_CAP_SECONDS", "45.5")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.PitchGrainSize != 4096 {
		t.Errorf("PitchGrainSize = %d, want 4096", cfg.PitchGrainSize)
	}
	if cfg.UndoStackLimit != 10 {
		t.Errorf("UndoStackLimit = %d, want 10", cfg.UndoStackLimit)
	}
	if !cfg.AllowWrapOverdub {
		t.Error("AllowWrapOverdub should be true from env")
	}
	if cfg.AutoMuteMonitorOnOverdub {
		t.Error("AutoMuteMonitorOnOverdub should be false from env")
	}
	if cfg.MasterCapSeconds != 45.5 {
		t.Errorf("MasterCapSeconds = %v, want 45.5", cfg.MasterCapSeconds)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOPERD_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("invalid int env should fall back to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvBoolInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOW_WRAP_OVERDUB", "not-a-bool")
	cfg := Load()
	if cfg.AllowWrapOverdub {
		t.Error("invalid bool env should fall back to default false")
	}
}
