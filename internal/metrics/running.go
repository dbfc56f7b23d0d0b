package metrics

import "math"

// Running accumulates mean and population standard deviation in O(1) space
// using Welford's online update.
type Running struct {
	n    int
	mean float64
	m2   float64
}

// Add folds one observation into the running statistics
func (r *Running) Add(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
}

// Count returns the number of observations
func (r *Running) Count() int { return r.n }

// Mean returns the running mean, 0 with no observations
func (r *Running) Mean() float64 { return r.mean }

// StdDev returns the population standard deviation.
// Returns 0 if fewer than 2 observations.
func (r *Running) StdDev() float64 {
	if r.n < 2 {
		return 0
	}
	return math.Sqrt(r.m2 / float64(r.n))
}

// Summary is a frozen view of a Running accumulator
type Summary struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`
}

// Summary freezes the current statistics
func (r *Running) Summary() Summary {
	return Summary{Samples: r.n, Mean: r.mean, StdDev: r.StdDev()}
}

// Summarize computes a Summary over values in one pass
func Summarize(values []float64) Summary {
	var r Running
	for _, v := range values {
		r.Add(v)
	}
	return r.Summary()
}
