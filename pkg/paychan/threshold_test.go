package paychan_test

import (
	"testing"

	"github.com/gauss-project/powerpay/pkg/paychan"
)

func TestThreshold(t *testing.T) {
	for _, tc := range []struct {
		amount uint64
		want   uint16
	}{
		{0, 100},
		{9_999, 100},
		{10_000, 200},
		{99_999, 200},
		{100_000, 500},
		{999_999, 500},
		{1_000_000, 1000},
		{^uint64(0), 1000},
	} {
		if got := paychan.Threshold(tc.amount); got != tc.want {
			t.Errorf("threshold(%d): got %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestDraw(t *testing.T) {
	for _, tc := range []struct {
		name              string
		now, seed, intent uint64
		want              uint16
	}{
		{name: "sum", now: 1_700_000_000, seed: 50, intent: 500_000, want: 50},
		{name: "wraps at basis", now: 9_999, seed: 1, intent: 0, want: 0},
		{name: "saturates", now: ^uint64(0) - 1, seed: 10, intent: 10, want: uint16(^uint64(0) % paychan.Basis)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := paychan.Draw(tc.now, tc.seed, tc.intent)
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
			if again := paychan.Draw(tc.now, tc.seed, tc.intent); again != got {
				t.Fatalf("draw not deterministic: %d != %d", again, got)
			}
		})
	}
}

func TestExecutes(t *testing.T) {
	if paychan.Executes(100, 100) {
		t.Fatal("value equal to threshold executed")
	}
	if !paychan.Executes(99, 100) {
		t.Fatal("value below threshold skipped")
	}
	if paychan.Executes(0, 0) {
		t.Fatal("zero threshold executed")
	}
	if !paychan.Executes(paychan.Basis-1, paychan.Basis) {
		t.Fatal("full threshold skipped")
	}
}
