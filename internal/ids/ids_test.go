package ids

import (
	"testing"
	"time"
)

func TestNewIsMonotonic(t *testing.T) {
	at := time.Unix(1700000000, 0)
	prev := NewAt(at)
	for i := 0; i < 100; i++ {
		next := NewAt(at)
		if next <= prev {
			t.Fatalf("id %q not greater than %q", next, prev)
		}
		prev = next
	}
}

func TestNewLength(t *testing.T) {
	if got := len(New()); got != 26 {
		t.Fatalf("len = %d, want 26", got)
	}
}
