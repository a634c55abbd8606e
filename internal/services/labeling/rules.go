package labeling

import (
	"errors"
	"fmt"
	"math"

	"FinPanel/internal/domain/models"
	"FinPanel/internal/services/indicators"
)

// ErrUnknownRule is returned for signal rule names outside the known set.
var ErrUnknownRule = errors.New("unknown signal rule")

// Rule selects the rows that carry a trading signal.
type Rule string

const (
	// RuleNone keeps every row.
	RuleNone      Rule = ""
	RuleBullish   Rule = "bullish_cloud_crossover"
	RuleBearish   Rule = "bearish_cloud_crossover"
	RuleCrossover Rule = "cloud_crossover"
)

// ParseRule validates a configured rule name. Empty and "none" mean RuleNone.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(s); r {
	case RuleNone, RuleBullish, RuleBearish, RuleCrossover:
		return r, nil
	case "none":
		return RuleNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
}

// SignalMask evaluates rule on every row. A row with any missing input is false.
//
// The conversion and base lines have just crossed when the sign of their difference changed
// from the previous row. Bullish requires the difference to be positive now and close above
// both leading spans; bearish mirrors it.
func SignalMask(p *models.Panel, rule Rule, cols models.IchimokuColumns) ([]bool, error) {
	mask := make([]bool, p.Len())
	if rule == RuleNone {
		for i := range mask {
			mask[i] = true
		}
		return mask, nil
	}
	if _, err := ParseRule(string(rule)); err != nil {
		return nil, err
	}

	get := func(name string) ([]float64, error) {
		v, ok := p.Col(name)
		if !ok {
			return nil, fmt.Errorf("signal rule %s: column %q missing", rule, name)
		}
		return v, nil
	}
	close, err := get(models.ColClose)
	if err != nil {
		return nil, err
	}
	conversion, err := get(cols.Conversion)
	if err != nil {
		return nil, err
	}
	base, err := get(cols.Base)
	if err != nil {
		return nil, err
	}
	spanA, err := get(cols.SpanA)
	if err != nil {
		return nil, err
	}
	spanB, err := get(cols.SpanB)
	if err != nil {
		return nil, err
	}

	diff := indicators.Diff(conversion, base)
	crossed := indicators.CrossoverPolarity(diff)
	for i := range mask {
		if crossed[i] != -1 || math.IsNaN(close[i]) || math.IsNaN(spanA[i]) || math.IsNaN(spanB[i]) {
			continue
		}
		bullish := diff[i] > 0 && close[i] > spanA[i] && close[i] > spanB[i]
		bearish := diff[i] < 0 && close[i] < spanA[i] && close[i] < spanB[i]
		switch rule {
		case RuleBullish:
			mask[i] = bullish
		case RuleBearish:
			mask[i] = bearish
		case RuleCrossover:
			mask[i] = bullish || bearish
		}
	}
	return mask, nil
}

// Filter keeps the rows of p selected by rule.
func Filter(p *models.Panel, rule Rule, cols models.IchimokuColumns) (*models.Panel, error) {
	mask, err := SignalMask(p, rule, cols)
	if err != nil {
		return nil, err
	}
	return p.Filter(mask), nil
}
