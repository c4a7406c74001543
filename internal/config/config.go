// Package config loads runtime configuration from environment variables
// with typed fallbacks, the same pattern the rest of this codebase's
// ancestry uses for its own env-driven settings.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for looperd.
type Config struct {
	// Server
	Port int

	// Sample rate the device and mixer run at.
	SampleRate int

	// Granular Pitch Engine (spec.md §4.3)
	PitchGrainSize    int
	PitchHopRatio     float64
	PitchJobTimeoutMs int

	// Undo
	UndoStackLimit int

	// Recording Lease (spec.md §4.2)
	RecorderGlobalTimeoutMs int
	MasterCapSeconds        float64

	// Overdub (spec.md §4.5)
	AutoMuteMonitorOnOverdub bool
	AllowWrapOverdub         bool

	// Loopback probe (spec.md §4.5)
	LoopbackRMSThreshold float64

	// Export (spec.md §4.8)
	ExportOutputDir string
	OpusBitrate     int
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("LOOPERD_PORT", 8080),

		SampleRate: envInt("LOOPERD_SAMPLE_RATE", 48000),

		PitchGrainSize:    envInt("PITCH_GRAIN_SIZE", 2048),
		PitchHopRatio:     envFloat("PITCH_HOP_RATIO", 0.25),
		PitchJobTimeoutMs: envInt("PITCH_JOB_TIMEOUT_MS", 45000),

		UndoStackLimit: envInt("UNDO_STACK_LIMIT", 6),

		RecorderGlobalTimeoutMs: envInt("RECORDER_GLOBAL_TIMEOUT_MS", 120000),
		MasterCapSeconds:        envFloat("MASTER_CAP_SECONDS", 60),

		AutoMuteMonitorOnOverdub: envBool("AUTO_MUTE_MONITOR_ON_OVERDUB", true),
		AllowWrapOverdub:         envBool("ALLOW_WRAP_OVERDUB", false),

		LoopbackRMSThreshold: envFloat("LOOPBACK_RMS_THRESHOLD", 0.02),

		ExportOutputDir: envStr("LOOPERD_EXPORT_DIR", "/tmp/loopdeck-exports"),
		OpusBitrate:     envInt("LOOPERD_OPUS_BITRATE", 96000),
	}
}

// RecorderGlobalTimeout returns RecorderGlobalTimeoutMs as a time.Duration.
func (c Config) RecorderGlobalTimeout() time.Duration {
	return time.Duration(c.RecorderGlobalTimeoutMs) * time.Millisecond
}

// PitchJobTimeout returns PitchJobTimeoutMs as a time.Duration.
func (c Config) PitchJobTimeout() time.Duration {
	return time.Duration(c.PitchJobTimeoutMs) * time.Millisecond
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
