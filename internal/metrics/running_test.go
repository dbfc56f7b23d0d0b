package metrics

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		stddev float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{4}, 4, 0},
		{"constant", []float64{3, 3, 3}, 3, 0},
		{"classic", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.values)
			if s.Samples != len(tc.values) {
				t.Errorf("Samples = %d, expected %d", s.Samples, len(tc.values))
			}
			if math.Abs(s.Mean-tc.mean) > 1e-9 {
				t.Errorf("Mean = %f, expected %f", s.Mean, tc.mean)
			}
			if math.Abs(s.StdDev-tc.stddev) > 1e-9 {
				t.Errorf("StdDev = %f, expected %f", s.StdDev, tc.stddev)
			}
		})
	}
}

func TestRunning_Incremental(t *testing.T) {
	var r Running
	for _, v := range []float64{1, 2, 3, 4} {
		r.Add(v)
	}
	if r.Count() != 4 {
		t.Errorf("Count = %d", r.Count())
	}
	if r.Mean() != 2.5 {
		t.Errorf("Mean = %f", r.Mean())
	}
	if math.Abs(r.StdDev()-math.Sqrt(1.25)) > 1e-9 {
		t.Errorf("StdDev = %f", r.StdDev())
	}
}
