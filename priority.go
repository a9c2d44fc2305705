package osal

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ThreadDefaultPriority is the backend independent priority of a thread,
// from least to most urgent.
type ThreadDefaultPriority uint8

const (
	PriorityNone ThreadDefaultPriority = iota
	PriorityIdle
	PriorityLow
	PriorityBelowNormal
	PriorityNormal
	PriorityAboveNormal
	PriorityHigh
	PriorityRealtime
	PriorityISR
)

var priorityNames = [...]string{
	PriorityNone:        "none",
	PriorityIdle:        "idle",
	PriorityLow:         "low",
	PriorityBelowNormal: "below_normal",
	PriorityNormal:      "normal",
	PriorityAboveNormal: "above_normal",
	PriorityHigh:        "high",
	PriorityRealtime:    "realtime",
	PriorityISR:         "isr",
}

func (p ThreadDefaultPriority) String() string {
	if int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return fmt.Sprintf("ThreadDefaultPriority(%d)", uint8(p))
}

// ParsePriority parses a priority name as printed by String. Case and the
// choice of '_' or '-' do not matter.
func ParsePriority(s string) (ThreadDefaultPriority, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for p, name := range priorityNames {
		if name == s {
			return ThreadDefaultPriority(p), nil
		}
	}
	return 0, fmt.Errorf("osal: unknown priority %q", s)
}

// UnmarshalYAML accepts a priority name or its ordinal.
func (p *ThreadDefaultPriority) UnmarshalYAML(value *yaml.Node) error {
	var n uint8
	if err := value.Decode(&n); err == nil {
		if n > uint8(PriorityISR) {
			return fmt.Errorf("osal: priority %d out of range", n)
		}
		*p = ThreadDefaultPriority(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
