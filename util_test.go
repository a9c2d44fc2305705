package osal

import (
	"testing"
	"time"
)

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// ms converts milliseconds to ticks at the configured rate.
func ms(n int) Tick {
	return DurationToTicks(time.Duration(n) * time.Millisecond)
}
