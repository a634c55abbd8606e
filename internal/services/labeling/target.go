// Package labeling computes forward-looking targets, tests them for stationarity and selects
// the rows that carry a trading signal.
package labeling

import (
	"fmt"
	"math"
)

// Aggregation reduces the closes of the forward window.
type Aggregation string

const (
	AggMax  Aggregation = "max"
	AggMin  Aggregation = "min"
	AggMean Aggregation = "mean"
	AggLast Aggregation = "last"
)

var aggregationPrefix = map[Aggregation]string{
	AggMax:  "highest",
	AggMin:  "lowest",
	AggMean: "mean",
	AggLast: "last",
}

// ParseAggregation maps a configuration value to an Aggregation. Empty means AggMax.
func ParseAggregation(s string) (Aggregation, error) {
	if s == "" {
		return AggMax, nil
	}
	a := Aggregation(s)
	if _, ok := aggregationPrefix[a]; !ok {
		return "", fmt.Errorf("unknown target aggregation %q", s)
	}
	return a, nil
}

// TargetSpec defines the forward label.
type TargetSpec struct {
	Aggregation Aggregation
	Horizon     int
}

// Validate checks the aggregation and horizon.
func (s TargetSpec) Validate() error {
	if _, ok := aggregationPrefix[s.Aggregation]; !ok {
		return fmt.Errorf("unknown target aggregation %q", s.Aggregation)
	}
	if s.Horizon < 1 {
		return fmt.Errorf("target horizon must be positive, got %d", s.Horizon)
	}
	return nil
}

// Column is the panel column name of the target, e.g. highest_close_next_20_days_percent.
func (s TargetSpec) Column() string {
	return fmt.Sprintf("%s_close_next_%d_days_percent", aggregationPrefix[s.Aggregation], s.Horizon)
}

// ForwardTarget is (agg(close[t+1..t+H]) - close[t]) / close[t]. It is missing unless close[t]
// and all H future closes exist, so the last H rows are always missing.
func ForwardTarget(close []float64, spec TargetSpec) []float64 {
	n := len(close)
	out := make([]float64, n)
	h := spec.Horizon
	for t := range out {
		out[t] = math.NaN()
		cur := close[t]
		if h < 1 || t+h >= n || math.IsNaN(cur) || cur == 0 {
			continue
		}
		window := close[t+1 : t+h+1]
		v, ok := aggregate(window, spec.Aggregation)
		if !ok {
			continue
		}
		out[t] = (v - cur) / cur
	}
	return out
}

func aggregate(window []float64, agg Aggregation) (float64, bool) {
	acc := 0.0
	for i, x := range window {
		if math.IsNaN(x) {
			return 0, false
		}
		switch agg {
		case AggMax:
			if i == 0 || x > acc {
				acc = x
			}
		case AggMin:
			if i == 0 || x < acc {
				acc = x
			}
		case AggMean:
			acc += x
		case AggLast:
			acc = x
		default:
			return 0, false
		}
	}
	if agg == AggMean {
		acc /= float64(len(window))
	}
	return acc, true
}
