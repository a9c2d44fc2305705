package osal

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParsePriority(t *testing.T) {
	for p := PriorityNone; p <= PriorityISR; p++ {
		got, err := ParsePriority(p.String())
		if err != nil || got != p {
			t.Fatalf("ParsePriority(%q) = %v, %v", p.String(), got, err)
		}
	}
	if got, err := ParsePriority(" Above-Normal "); err != nil || got != PriorityAboveNormal {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Fatal("unknown name accepted")
	}
	if s := ThreadDefaultPriority(42).String(); s != "ThreadDefaultPriority(42)" {
		t.Fatalf("String() = %q", s)
	}
}

func TestPriority_UnmarshalYAML(t *testing.T) {
	var v struct {
		A ThreadDefaultPriority `yaml:"a"`
		B ThreadDefaultPriority `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: low\nb: 8\n"), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != PriorityLow || v.B != PriorityISR {
		t.Fatalf("got %v, %v", v.A, v.B)
	}
}
