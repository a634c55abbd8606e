package labeling

import (
	"fmt"
	"math"
)

// DefaultStationarityThreshold is the p-value above which a target is rejected.
const DefaultStationarityThreshold = 0.05

// Gate rejects instruments whose target series has a unit root.
type Gate struct {
	Threshold float64
}

// GateResult carries the test outcome.
type GateResult struct {
	PValue     float64
	Statistic  float64
	Stationary bool
}

// Check drops missing values from target and runs ADF with AIC lag selection.
func (g Gate) Check(target []float64) (GateResult, error) {
	clean := make([]float64, 0, len(target))
	for _, v := range target {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) < MinADFObservations {
		return GateResult{}, fmt.Errorf("%w: %d", ErrTooFewObservations, len(clean))
	}
	res, err := ADF(clean, ADFOptions{MaxLag: -1})
	if err != nil {
		return GateResult{}, err
	}
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultStationarityThreshold
	}
	return GateResult{
		PValue:     res.PValue,
		Statistic:  res.Statistic,
		Stationary: res.PValue <= threshold,
	}, nil
}
