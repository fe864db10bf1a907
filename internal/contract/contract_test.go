package contract

import (
	"testing"
)

func TestStubContractStartsAtZero(t *testing.T) {
	c := NewStubContract()
	if got := c.Value(); got != 0 {
		t.Fatalf("fresh contract value = %d, want 0", got)
	}
}

func TestSetValueRoundTrip(t *testing.T) {
	c := NewStubContract()
	c.SetValue(42)
	if got := c.Value(); got != 42 {
		t.Fatalf("Value() = %d, want 42", got)
	}
}

// FuzzSetValue checks the setter persists exactly what it was given,
// including negative and extreme values.
func FuzzSetValue(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(42))
	f.Add(int64(-1))
	f.Add(int64(1) << 62)

	f.Fuzz(func(t *testing.T, v int64) {
		c := NewStubContract()
		c.SetValue(v)
		if got := c.Value(); got != v {
			t.Fatalf("Value() = %d, want %d", got, v)
		}
	})
}
