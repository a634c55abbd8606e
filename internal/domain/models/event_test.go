package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventKind(t *testing.T) {
	cases := map[string]EventKind{
		"chartEvent/earnings":  EventEarnings,
		"chartEvent/dividends": EventDividend,
		"chartEvent/split":     EventSplit,
		"earnings":             EventEarnings,
	}
	for in, want := range cases {
		got, err := ParseEventKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEventKind("chartEvent/ipo")
	assert.Error(t, err)
}

func TestEventValidate(t *testing.T) {
	ts := time.Date(2024, 2, 1, 21, 0, 0, 0, time.UTC)
	assert.NoError(t, NewEarnings("AAPL", ts, EarningsPayload{EPSActual: 2.1}).Validate())
	assert.NoError(t, NewSplit("AAPL", ts, SplitPayload{From: 1, To: 4}).Validate())

	bad := NewDividend("AAPL", ts, DividendPayload{Ordinary: 0.24})
	bad.Kind = EventSplit
	assert.Error(t, bad.Validate())

	both := NewDividend("AAPL", ts, DividendPayload{})
	both.Split = &SplitPayload{From: 1, To: 2}
	assert.Error(t, both.Validate())
}

func TestEventKeyAndRatio(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	e := NewSplit("NVDA", ts, SplitPayload{From: 1, To: 10})
	assert.Equal(t, "NVDA|1700000000|split", e.Key())
	assert.Equal(t, 10.0, e.Split.Ratio())
	assert.Len(t, FilterEvents([]Event{e, NewEarnings("NVDA", ts, EarningsPayload{})}, EventEarnings), 1)
}
