package models

import "testing"

func TestCalculateFreshnessStatus(t *testing.T) {
	tests := []struct {
		age      int
		expected string
	}{
		{-1, FreshnessUnavailable},
		{0, FreshnessFresh},
		{9, FreshnessFresh},
		{10, FreshnessStale},
		{59, FreshnessStale},
		{60, FreshnessUnavailable},
	}
	for _, tc := range tests {
		if got := CalculateFreshnessStatus(tc.age); got != tc.expected {
			t.Errorf("CalculateFreshnessStatus(%d) = %q, expected %q", tc.age, got, tc.expected)
		}
	}
}

func TestCalculateFreshnessScore(t *testing.T) {
	tests := []struct {
		age      int
		expected int
	}{
		{-1, 0},
		{0, 100},
		{5, 100},
		{60, 0},
		{600, 0},
	}
	for _, tc := range tests {
		if got := CalculateFreshnessScore(tc.age); got != tc.expected {
			t.Errorf("CalculateFreshnessScore(%d) = %d, expected %d", tc.age, got, tc.expected)
		}
	}

	mid := CalculateFreshnessScore(30)
	if mid <= 0 || mid >= 100 {
		t.Errorf("score at 30s should be between 0 and 100, got %d", mid)
	}
}
