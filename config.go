package osal

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed osal.yaml
var defaultConfig []byte

// ConfigEnv names a YAML file applied on top of the built-in configuration.
const ConfigEnv = "OSAL_CONFIG"

// Config holds the constants of the abstraction layer. They are read once
// per process and never change afterwards.
type Config struct {
	TickRateHz          uint32                `yaml:"tick_rate_hz"`
	CPUClockHz          uint64                `yaml:"cpu_clock_hz"`
	MaxPriorities       uint32                `yaml:"max_priorities"`
	MinimalStackSize    uint32                `yaml:"minimal_stack_size"`
	MaxTaskNameLen      int                   `yaml:"max_task_name_len"`
	TotalHeapSize       uint64                `yaml:"total_heap_size"`
	TimerQueueLength    uint32                `yaml:"timer_queue_length"`
	TimerTaskPriority   ThreadDefaultPriority `yaml:"timer_task_priority"`
	TimerTaskStackDepth uint32                `yaml:"timer_task_stack_depth"`
	InitialTick         uint64                `yaml:"initial_tick"`
	MaxThreads          int                   `yaml:"max_threads"`
}

// ParseConfig applies the YAML document data on top of the built-in
// configuration and validates the result. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg, err := decodeConfig(defaultConfig, Config{})
	if err != nil {
		return Config{}, err
	}
	return decodeConfig(data, cfg)
}

func decodeConfig(data []byte, cfg Config) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("osal: parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.TickRateHz == 0 || c.TickRateHz > 1_000_000:
		return fmt.Errorf("osal: tick_rate_hz %d out of range 1..1000000", c.TickRateHz)
	case c.MaxPriorities == 0:
		return errors.New("osal: max_priorities must be at least 1")
	case c.MaxTaskNameLen < 2:
		return fmt.Errorf("osal: max_task_name_len %d must be at least 2", c.MaxTaskNameLen)
	case c.TimerQueueLength == 0:
		return errors.New("osal: timer_queue_length must be at least 1")
	case c.MaxThreads < 0:
		return fmt.Errorf("osal: max_threads %d is negative", c.MaxThreads)
	}
	return nil
}

// CurrentConfig returns the process configuration: the built-in document
// overlaid by the file named in OSAL_CONFIG. An unreadable or invalid
// overlay is logged and ignored.
var CurrentConfig = sync.OnceValue(loadConfig)

func loadConfig() Config {
	cfg, err := ParseConfig(nil)
	if err != nil {
		panic(err)
	}
	path := os.Getenv(ConfigEnv)
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var overlay Config
		if overlay, err = decodeConfig(data, cfg); err == nil {
			return overlay
		}
	}
	logger().Warn("osal: ignoring config overlay", "path", path, "err", err)
	return cfg
}

// truncateName shortens name to the longest task name the kernel stores.
func truncateName(name string) string {
	if n := CurrentConfig().MaxTaskNameLen - 1; len(name) > n {
		return name[:n]
	}
	return name
}
