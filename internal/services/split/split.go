// Package split turns per-instrument panels into pooled, chronologically ordered train and
// test panels without letting any instrument's test rows precede its train rows.
package split

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/labeling"
)

// ErrSplitMode is returned unless exactly one of Cutoff and HoldoutRows is set.
var ErrSplitMode = errors.New("exactly one of cutoff date and holdout rows must be set")

// StationarityGate decides whether an instrument's target series is usable.
type StationarityGate interface {
	Check(target []float64) (labeling.GateResult, error)
}

// Config is the immutable split configuration.
type Config struct {
	Target      labeling.TargetSpec
	DropColumns []string
	// MinDate drops earlier rows when set.
	MinDate  time.Time
	Rule     labeling.Rule
	Ichimoku models.IchimokuColumns

	// Cutoff sends rows dated on or after it to test.
	Cutoff time.Time
	// HoldoutRows sends each instrument's trailing rows to test.
	HoldoutRows int

	// EarningsExclusionDays drops rows with days_since_earnings <= N. Zero disables it.
	EarningsExclusionDays int

	// Gate is optional.
	Gate StationarityGate
}

// Validate reports configuration errors, which are fatal for a run.
func (c Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}
	if _, err := labeling.ParseRule(string(c.Rule)); err != nil {
		return err
	}
	if c.Cutoff.IsZero() == (c.HoldoutRows <= 0) {
		return ErrSplitMode
	}
	if c.EarningsExclusionDays < 0 {
		return fmt.Errorf("earnings exclusion days must not be negative, got %d", c.EarningsExclusionDays)
	}
	if c.Rule != labeling.RuleNone && c.Ichimoku.Conversion == "" {
		return fmt.Errorf("signal rule %s needs ichimoku column names", c.Rule)
	}
	return nil
}

// Result holds the pooled panels. Features never includes Target.
type Result struct {
	Train     *models.Panel
	Test      *models.Panel
	Features  []string
	Target    string
	Processed []string
	Skipped   []models.Skip
}

// Build labels, filters and splits every panel. Instruments are handled in symbol order and
// an instrument that cannot be used is recorded in Result.Skipped.
func Build(panels map[string]*models.Panel, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(panels))
	for s := range panels {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	res := &Result{Target: cfg.Target.Column()}
	var reference *models.Panel
	var trains, tests []*models.Panel

	for _, sym := range symbols {
		p, skip := prepare(sym, panels[sym], cfg)
		if skip != nil {
			res.Skipped = append(res.Skipped, *skip)
			continue
		}
		if reference == nil {
			reference = p
		} else if err := reference.SameSchema(p); err != nil {
			res.Skipped = append(res.Skipped, models.NewSkip(sym, models.StageSplit, err.Error()))
			continue
		}
		train, test := partition(p, cfg)
		trains = append(trains, train)
		tests = append(tests, test)
		res.Processed = append(res.Processed, sym)
	}

	if reference == nil {
		res.Train = models.NewPanel(nil)
		res.Test = models.NewPanel(nil)
		return res, nil
	}
	res.Features = features(reference, res.Target)

	var err error
	if res.Train, err = models.Concat(trains...); err != nil {
		return nil, fmt.Errorf("concat train: %w", err)
	}
	if res.Test, err = models.Concat(tests...); err != nil {
		return nil, fmt.Errorf("concat test: %w", err)
	}
	res.Train.SortByDate()
	res.Test.SortByDate()
	return res, nil
}

// prepare labels and filters one instrument. It returns the modelable rows or a skip.
func prepare(sym string, in *models.Panel, cfg Config) (*models.Panel, *models.Skip) {
	skip := func(stage models.Stage, reason string) *models.Skip {
		s := models.NewSkip(sym, stage, reason)
		return &s
	}
	if in == nil || in.Len() == 0 {
		return nil, skip(models.StageSplit, "empty panel")
	}

	p := in.Clone()
	p.FillLabel(models.ColSymbol, sym)
	close, ok := p.Col(models.ColClose)
	if !ok {
		return nil, skip(models.StageSplit, "close column missing")
	}
	target := labeling.ForwardTarget(close, cfg.Target)
	p.Set(cfg.Target.Column(), target)

	if cfg.Gate != nil {
		g, err := cfg.Gate.Check(target)
		if err != nil {
			return nil, skip(models.StageStationarity, err.Error())
		}
		if !g.Stationary {
			s := skip(models.StageStationarity, "target is not stationary")
			s.PValue = g.PValue
			return nil, s
		}
	}

	if !cfg.MinDate.IsZero() {
		mask := make([]bool, p.Len())
		for i, d := range p.Dates() {
			mask[i] = !d.Before(cfg.MinDate)
		}
		p = p.Filter(mask)
	}

	p, err := labeling.Filter(p, cfg.Rule, cfg.Ichimoku)
	if err != nil {
		return nil, skip(models.StageSplit, err.Error())
	}

	if n := cfg.EarningsExclusionDays; n > 0 {
		days, ok := p.Col(models.ColDaysSinceEarnings)
		if !ok {
			return nil, skip(models.StageSplit, "days_since_earnings column missing")
		}
		mask := make([]bool, p.Len())
		for i, d := range days {
			mask[i] = math.IsNaN(d) || d > float64(n)
		}
		p = p.Filter(mask)
	}

	p.Drop(cfg.DropColumns...)
	cols := append(features(p, cfg.Target.Column()), cfg.Target.Column())
	return p.DropIncomplete(cols), nil
}

func partition(p *models.Panel, cfg Config) (train, test *models.Panel) {
	if cfg.HoldoutRows > 0 {
		cut := p.Len() - cfg.HoldoutRows
		if cut < 0 {
			cut = 0
		}
		return p.Slice(0, cut), p.Slice(cut, p.Len())
	}
	mask := make([]bool, p.Len())
	for i, d := range p.Dates() {
		mask[i] = d.Before(cfg.Cutoff)
	}
	inverse := make([]bool, len(mask))
	for i, m := range mask {
		inverse[i] = !m
	}
	return p.Filter(mask), p.Filter(inverse)
}

func features(p *models.Panel, target string) []string {
	names := p.Names()
	out := names[:0]
	for _, n := range names {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}
