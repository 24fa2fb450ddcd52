// README: Token estimate and cost tests.
package ai

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one two three", 4},
		{"a b c d e f", 8},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.in); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	if got := EstimateCost(1_000_000, 0); got != 0.075 {
		t.Fatalf("input cost: %v", got)
	}
	if got := EstimateCost(0, 1_000_000); got != 0.3 {
		t.Fatalf("output cost: %v", got)
	}
	if got := EstimateCost(1000, 500); got != 0.000225 {
		t.Fatalf("mixed cost: %v", got)
	}
}
