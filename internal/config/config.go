package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

type GameConfig struct {
	// InteractionWaitSeconds bounds how long a requested interaction
	// waits for the target's response before it is declined.
	InteractionWaitSeconds int `json:"interaction_wait_seconds"`
	// DriverIntervalSeconds configures how often the autonomous driver
	// scans for seats whose turn it should play.
	DriverIntervalSeconds int    `json:"driver_interval_seconds"`
	DriverRetryCount      int    `json:"driver_retry_count"`
	DriverRetryBaseMillis int    `json:"driver_retry_base_millis"`
	DatabasePath          string `json:"database_path"`
	// CellWeights overrides the autopilot's per-cell utility, keyed by
	// cell number ("1".."6").
	CellWeights map[string]float64 `json:"cell_weights"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetInteractionWait returns the configured response window, or a safe
// default when no config was loaded.
func GetInteractionWait() time.Duration {
	if cfg == nil || cfg.InteractionWaitSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.InteractionWaitSeconds) * time.Second
}

// GetDriverInterval returns the autonomous scan interval.
func GetDriverInterval() time.Duration {
	if cfg == nil || cfg.DriverIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.DriverIntervalSeconds) * time.Second
}

// GetDriverRetry returns the retry count and base delay for transient
// store failures during autonomous turns.
func GetDriverRetry() (int, time.Duration) {
	retries := 3
	base := 200 * time.Millisecond
	if cfg != nil && cfg.DriverRetryCount > 0 {
		retries = cfg.DriverRetryCount
	}
	if cfg != nil && cfg.DriverRetryBaseMillis > 0 {
		base = time.Duration(cfg.DriverRetryBaseMillis) * time.Millisecond
	}
	return retries, base
}

// GetCellWeights returns the configured per-cell utility overrides,
// keyed by cell number. Unparseable keys are skipped.
func GetCellWeights() map[int]float64 {
	if cfg == nil || len(cfg.CellWeights) == 0 {
		return nil
	}
	weights := make(map[int]float64, len(cfg.CellWeights))
	for key, w := range cfg.CellWeights {
		cell, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		weights[cell] = w
	}
	return weights
}

// GetDatabasePath returns the configured SQLite path.
func GetDatabasePath() string {
	if cfg == nil || cfg.DatabasePath == "" {
		return "fortnight.db"
	}
	return cfg.DatabasePath
}
