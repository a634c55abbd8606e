package models

import (
	"math"
	"sort"
)

// Stage names the pipeline step at which an instrument was dropped.
type Stage string

const (
	StageLoad         Stage = "load"
	StageAdjust       Stage = "adjust"
	StagePanel        Stage = "panel"
	StageStationarity Stage = "stationarity"
	StageSplit        Stage = "split"
	StagePersist      Stage = "persist"
	StageIngest       Stage = "ingest"
)

// Skip records an instrument that was left out of a run and why.
// PValue is NaN unless the skip came from the stationarity gate.
type Skip struct {
	Symbol string
	Stage  Stage
	Reason string
	PValue float64
}

// NewSkip creates a Skip without a p-value.
func NewSkip(symbol string, stage Stage, reason string) Skip {
	return Skip{Symbol: symbol, Stage: stage, Reason: reason, PValue: math.NaN()}
}

// RunReport summarises one pipeline run.
type RunReport struct {
	Processed []string
	Skipped   []Skip
	TrainRows int
	TestRows  int
}

// Sort orders processed symbols and skips deterministically.
func (r *RunReport) Sort() {
	sort.Strings(r.Processed)
	sort.SliceStable(r.Skipped, func(i, j int) bool {
		if r.Skipped[i].Symbol != r.Skipped[j].Symbol {
			return r.Skipped[i].Symbol < r.Skipped[j].Symbol
		}
		return r.Skipped[i].Stage < r.Skipped[j].Stage
	})
}
