package panel

import (
	"fmt"
	"time"
	_ "time/tzdata" // exchange timezone must resolve on hosts without zoneinfo
)

// ExchangeTimezone is the default anchoring timezone.
const ExchangeTimezone = "America/New_York"

// CloseHour is the local hour every row is anchored to.
const CloseHour = 16

// LoadLocation resolves name, defaulting to ExchangeTimezone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = ExchangeTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Anchor keeps the calendar date of t, as written in t's own location, and moves it to the
// close of the trading day in loc. Intraday time-of-day is ignored, so a date-only value stored
// as midnight UTC anchors to the same trading day as a timestamp taken on the exchange floor.
func Anchor(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, CloseHour, 0, 0, 0, loc)
}

// AnchorInstant anchors a real point in time, such as an event timestamp, by its calendar
// date on the exchange: 20:30 New York time stays on that day even though it is already
// the next day in UTC.
func AnchorInstant(t time.Time, loc *time.Location) time.Time {
	return Anchor(t.In(loc), loc)
}

// NextBusinessDays returns the n weekdays following after, anchored like after.
// Exchange holidays are not modelled.
func NextBusinessDays(after time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := after
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// businessDaysBetween counts weekdays in (from, to].
func businessDaysBetween(from, to time.Time) int {
	n := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			n++
		}
	}
	return n
}
