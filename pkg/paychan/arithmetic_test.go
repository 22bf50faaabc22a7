package paychan

import "testing"

func TestSaturatingArithmetic(t *testing.T) {
	const maxUint64 = ^uint64(0)

	if got := satAdd(maxUint64, 1); got != maxUint64 {
		t.Fatalf("satAdd overflow: got %d", got)
	}
	if got := satAdd(2, 3); got != 5 {
		t.Fatalf("satAdd: got %d, want 5", got)
	}
	if got := satSub(1, 2); got != 0 {
		t.Fatalf("satSub underflow: got %d", got)
	}
	if got := satSub(5, 3); got != 2 {
		t.Fatalf("satSub: got %d, want 2", got)
	}
}
