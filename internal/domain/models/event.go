package models

import (
	"fmt"
	"strings"
	"time"
)

// EventKind enumerates the corporate event variants.
type EventKind uint8

const (
	EventEarnings EventKind = iota + 1
	EventDividend
	EventSplit
)

func (k EventKind) String() string {
	switch k {
	case EventEarnings:
		return "earnings"
	case EventDividend:
		return "dividend"
	case EventSplit:
		return "split"
	default:
		return fmt.Sprintf("event_kind(%d)", uint8(k))
	}
}

// ParseEventKind accepts both short names and the chart event names used by the event source
// ("chartEvent/earnings", "chartEvent/dividends", "chartEvent/split").
func ParseEventKind(s string) (EventKind, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "chartevent/") {
	case "earnings":
		return EventEarnings, nil
	case "dividend", "dividends":
		return EventDividend, nil
	case "split", "splits":
		return EventSplit, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// EarningsPayload holds the reported and estimated figures of an earnings release.
type EarningsPayload struct {
	FiscalPeriod        string
	FiscalEndDate       int64
	EPSActual           float64
	EPSEstimate         float64
	EPSReportedActual   float64
	EPSReportedEstimate float64
	SalesActual         float64
	SalesEstimate       float64
}

// DividendPayload holds dividend amounts.
type DividendPayload struct {
	Ordinary float64
	Special  float64
}

// SplitPayload holds a split ratio expressed as From:To shares.
type SplitPayload struct {
	From float64
	To   float64
}

// Ratio returns the number of new shares per old share.
func (s SplitPayload) Ratio() float64 {
	if s.From == 0 {
		return 0
	}
	return s.To / s.From
}

// Event is a corporate event. Exactly one payload is set and it matches Kind.
type Event struct {
	Symbol    string
	Kind      EventKind
	Timestamp time.Time

	Earnings *EarningsPayload
	Dividend *DividendPayload
	Split    *SplitPayload
}

// NewEarnings creates an earnings event.
func NewEarnings(symbol string, ts time.Time, p EarningsPayload) Event {
	return Event{Symbol: symbol, Kind: EventEarnings, Timestamp: ts, Earnings: &p}
}

// NewDividend creates a dividend event.
func NewDividend(symbol string, ts time.Time, p DividendPayload) Event {
	return Event{Symbol: symbol, Kind: EventDividend, Timestamp: ts, Dividend: &p}
}

// NewSplit creates a split event.
func NewSplit(symbol string, ts time.Time, p SplitPayload) Event {
	return Event{Symbol: symbol, Kind: EventSplit, Timestamp: ts, Split: &p}
}

// Validate checks that the payload matches the kind.
func (e Event) Validate() error {
	if e.Symbol == "" {
		return fmt.Errorf("event: symbol required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event %s: timestamp required", e.Symbol)
	}
	set := 0
	for _, ok := range []bool{e.Earnings != nil, e.Dividend != nil, e.Split != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("event %s: expected exactly one payload, got %d", e.Symbol, set)
	}
	switch e.Kind {
	case EventEarnings:
		if e.Earnings == nil {
			return fmt.Errorf("event %s: earnings payload missing", e.Symbol)
		}
	case EventDividend:
		if e.Dividend == nil {
			return fmt.Errorf("event %s: dividend payload missing", e.Symbol)
		}
	case EventSplit:
		if e.Split == nil {
			return fmt.Errorf("event %s: split payload missing", e.Symbol)
		}
	default:
		return fmt.Errorf("event %s: %s", e.Symbol, e.Kind)
	}
	return nil
}

// Key identifies an event uniquely per (symbol, timestamp, kind).
func (e Event) Key() string {
	return fmt.Sprintf("%s|%d|%s", e.Symbol, e.Timestamp.Unix(), e.Kind)
}

// FilterEvents returns events of the given kind, preserving order.
func FilterEvents(events []Event, kind EventKind) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
