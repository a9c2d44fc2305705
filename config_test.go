package osal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TickRateHz != 1000 || cfg.MaxPriorities != 9 || cfg.MaxTaskNameLen != 16 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.TimerTaskPriority != PriorityRealtime || cfg.TimerQueueLength != 10 {
		t.Fatalf("timer defaults = %+v", cfg)
	}
	if cfg.MaxThreads != 0 {
		t.Fatalf("max_threads = %d", cfg.MaxThreads)
	}
}

func TestParseConfig_Overlay(t *testing.T) {
	cfg, err := ParseConfig([]byte("tick_rate_hz: 100\ntimer_task_priority: 6\nmax_threads: 4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TickRateHz != 100 || cfg.TimerTaskPriority != PriorityHigh || cfg.MaxThreads != 4 {
		t.Fatalf("overlay = %+v", cfg)
	}
	if cfg.TotalHeapSize != 1<<20 {
		t.Fatalf("untouched key lost its default: %d", cfg.TotalHeapSize)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := []struct {
		doc  string
		want string
	}{
		{"tick_rate_hz: 0", "tick_rate_hz"},
		{"tick_rate_hz: 2000000", "tick_rate_hz"},
		{"max_priorities: 0", "max_priorities"},
		{"max_task_name_len: 1", "max_task_name_len"},
		{"timer_queue_length: 0", "timer_queue_length"},
		{"max_threads: -1", "max_threads"},
		{"timer_task_priority: urgent", "unknown priority"},
		{"timer_task_priority: 9", "out of range"},
		{"tick_rate: 10", "not found"},
	}
	for _, c := range cases {
		_, err := ParseConfig([]byte(c.doc))
		if err == nil {
			t.Errorf("%q accepted", c.doc)
			continue
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Errorf("%q: error %q does not mention %q", c.doc, err, c.want)
		}
	}
}

func TestLoadConfig_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osal.yaml")
	if err := os.WriteFile(path, []byte("cpu_clock_hz: 16000000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigEnv, path)
	if got := loadConfig().CPUClockHz; got != 16_000_000 {
		t.Fatalf("CPUClockHz = %d", got)
	}

	t.Setenv(ConfigEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if got := loadConfig(); got.TickRateHz != 1000 {
		t.Fatalf("missing overlay changed the config: %+v", got)
	}
}

func TestTruncateName(t *testing.T) {
	n := CurrentConfig().MaxTaskNameLen - 1
	long := strings.Repeat("x", n+5)
	if got := truncateName(long); len(got) != n {
		t.Fatalf("len = %d, want %d", len(got), n)
	}
	if got := truncateName("short"); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := NewThread(long, 0, PriorityNormal, nil).Name(); len(got) != n {
		t.Fatalf("thread name len = %d", len(got))
	}
}
