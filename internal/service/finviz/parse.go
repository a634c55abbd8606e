package finviz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"FinPanel/internal/domain/models"
)

// ErrNoChartData is returned when the quote page carries no embedded data object.
var ErrNoChartData = errors.New("finviz: chart data not found in page")

var dataMarker = []byte("var data = ")

type chartEvent struct {
	EventType           string   `json:"eventType"`
	DateTimestamp       int64    `json:"dateTimestamp"`
	FiscalPeriod        string   `json:"fiscalPeriod"`
	FiscalEndDate       *float64 `json:"fiscalEndDate"`
	EPSActual           *float64 `json:"epsActual"`
	EPSEstimate         *float64 `json:"epsEstimate"`
	EPSReportedActual   *float64 `json:"epsReportedActual"`
	EPSReportedEstimate *float64 `json:"epsReportedEstimate"`
	SalesActual         *float64 `json:"salesActual"`
	SalesEstimate       *float64 `json:"salesEstimate"`
	Ordinary            *float64 `json:"ordinary"`
	Special             *float64 `json:"special"`
	FactorFrom          *float64 `json:"factorFrom"`
	FactorTo            *float64 `json:"factorTo"`
}

type pageData struct {
	ChartEvents []chartEvent `json:"chartEvents"`
}

// parseQuotePage extracts the chartEvents array embedded in a quote page.
// Events of unknown type are returned in skipped and left out of the result.
func parseQuotePage(symbol string, page []byte, loc *time.Location) (events []models.Event, skipped []string, err error) {
	i := bytes.Index(page, dataMarker)
	if i < 0 {
		return nil, nil, fmt.Errorf("%w (%s)", ErrNoChartData, symbol)
	}
	var data pageData
	if err := json.NewDecoder(bytes.NewReader(page[i+len(dataMarker):])).Decode(&data); err != nil {
		return nil, nil, fmt.Errorf("decode chart data %s: %w", symbol, err)
	}
	return toEvents(symbol, data.ChartEvents, loc)
}

func toEvents(symbol string, raw []chartEvent, loc *time.Location) ([]models.Event, []string, error) {
	if loc == nil {
		loc = time.UTC
	}
	var (
		out     []models.Event
		skipped []string
	)
	for _, ce := range raw {
		kind, err := models.ParseEventKind(ce.EventType)
		if err != nil {
			skipped = append(skipped, ce.EventType)
			continue
		}
		if ce.DateTimestamp <= 0 {
			return nil, nil, fmt.Errorf("finviz %s: %s event without timestamp", symbol, kind)
		}
		ts := time.Unix(ce.DateTimestamp, 0).In(loc)

		var e models.Event
		switch kind {
		case models.EventEarnings:
			fiscalEnd := int64(0)
			if ce.FiscalEndDate != nil {
				fiscalEnd = int64(*ce.FiscalEndDate)
			}
			e = models.NewEarnings(symbol, ts, models.EarningsPayload{
				FiscalPeriod:        ce.FiscalPeriod,
				FiscalEndDate:       fiscalEnd,
				EPSActual:           orNaN(ce.EPSActual),
				EPSEstimate:         orNaN(ce.EPSEstimate),
				EPSReportedActual:   orNaN(ce.EPSReportedActual),
				EPSReportedEstimate: orNaN(ce.EPSReportedEstimate),
				SalesActual:         orNaN(ce.SalesActual),
				SalesEstimate:       orNaN(ce.SalesEstimate),
			})
		case models.EventDividend:
			e = models.NewDividend(symbol, ts, models.DividendPayload{
				Ordinary: orNaN(ce.Ordinary),
				Special:  orNaN(ce.Special),
			})
		case models.EventSplit:
			e = models.NewSplit(symbol, ts, models.SplitPayload{
				From: orNaN(ce.FactorFrom),
				To:   orNaN(ce.FactorTo),
			})
		}
		out = append(out, e)
	}
	return out, skipped, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
