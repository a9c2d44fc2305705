package osal

import "testing"

func TestRawToken_OneShot(t *testing.T) {
	before := boxedCount()
	v := 7
	tok := intoRaw(&v)
	if boxedCount() != before+1 {
		t.Fatal("box not stored")
	}
	if p, ok := peekRaw[int](tok); !ok || *p != 7 {
		t.Fatal("peek failed")
	}
	if p, ok := fromRaw[int](tok); !ok || *p != 7 {
		t.Fatal("reconstruction failed")
	}
	if _, ok := fromRaw[int](tok); ok {
		t.Fatal("second reconstruction succeeded")
	}
	if boxedCount() != before {
		t.Fatal("box leaked")
	}
}

func TestRawToken_WrongType(t *testing.T) {
	tok := intoRaw(new(int))
	if _, ok := fromRaw[string](tok); ok {
		t.Fatal("reconstructed with the wrong type")
	}
	if _, ok := peekRaw[int](tok); ok {
		t.Fatal("box survived a failed reconstruction")
	}
}

func TestRawToken_Unique(t *testing.T) {
	a, b := intoRaw(new(int)), intoRaw(new(int))
	defer fromRaw[int](a)
	defer fromRaw[int](b)
	if a == b || a == 0 {
		t.Fatalf("tokens %d and %d", a, b)
	}
}
