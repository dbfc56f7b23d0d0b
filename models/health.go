package models

import "time"

// DataFreshness describes how current the reconciled state is relative to the backend
type DataFreshness struct {
	LastPolledAt        *time.Time `json:"lastPolledAt"`
	AgeSeconds          int        `json:"ageSeconds"`
	Status              string     `json:"status"` // "fresh", "stale", "unavailable"
	Score               int        `json:"score"`  // 0-100
	EntityCount         int        `json:"entityCount"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastError           string     `json:"lastError,omitempty"`
}

// FreshnessStatus constants
const (
	FreshnessFresh       = "fresh"       // < 10s
	FreshnessStale       = "stale"       // 10s - 60s
	FreshnessUnavailable = "unavailable" // > 60s or no data
)

// CalculateFreshnessStatus returns the freshness status based on age
func CalculateFreshnessStatus(ageSeconds int) string {
	if ageSeconds < 0 {
		return FreshnessUnavailable
	}
	if ageSeconds < 10 {
		return FreshnessFresh
	}
	if ageSeconds < 60 {
		return FreshnessStale
	}
	return FreshnessUnavailable
}

// CalculateFreshnessScore returns a 0-100 score based on data age
func CalculateFreshnessScore(ageSeconds int) int {
	if ageSeconds < 0 {
		return 0
	}
	if ageSeconds <= 5 {
		return 100
	}
	if ageSeconds >= 60 {
		return 0
	}
	// Linear decay from 100 at 5s to 0 at 60s
	return 100 - ((ageSeconds - 5) * 100 / 55)
}
