package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"FinPanel/internal/domain/models"
	domrepo "FinPanel/internal/domain/repository"
	pkgch "FinPanel/pkg/clickhouse"
	applogger "FinPanel/pkg/logger"
)

var (
	barColumns = []string{
		"symbol", "date", "open", "high", "low", "close",
		"adjusted_close", "volume", "dividend_amount", "split_coefficient",
	}
	adjustedColumns = append(append([]string{}, barColumns...), "split_factor")
	earningsColumns = []string{
		"symbol", "ts", "fiscal_period", "fiscal_end_date", "eps_actual", "eps_estimate",
		"eps_reported_actual", "eps_reported_estimate", "sales_actual", "sales_estimate",
	}
	instrumentColumns = []string{"symbol", "company", "sector", "industry", "indices"}
	dividendColumns   = []string{"symbol", "ts", "ordinary", "special"}
	splitColumns      = []string{"symbol", "ts", "split_from", "split_to"}
	indicatorColumns  = []string{"symbol", "date", "feature", "value"}
	symbolDateKey     = []string{"symbol", "date"}
	symbolTSKey       = []string{"symbol", "ts"}
	indicatorKey      = []string{"symbol", "date", "feature"}
	instrumentKey     = []string{"symbol"}
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// CHMarketStore implements domrepo.MarketStore on ClickHouse.
// Bar dates are stored as calendar dates and read back at midnight UTC.
type CHMarketStore struct {
	client *pkgch.Client
	db     querier
	writer domrepo.RowWriter
	l      *applogger.Logger
}

// NewCHMarketStore creates a store on the client's pool.
func NewCHMarketStore(ch *pkgch.Client) *CHMarketStore {
	return &CHMarketStore{
		client: ch,
		db:     ch.DB(),
		writer: NewClickHouseRowWriter(ch.DB()),
	}
}

// SetLogger injects a structured logger.
func (s *CHMarketStore) SetLogger(l *applogger.Logger) {
	s.l = l
	if w, ok := s.writer.(*ClickHouseRowWriter); ok {
		w.SetLogger(l)
	}
}

// Init creates the database and tables.
func (s *CHMarketStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, SchemaStatements(s.client.Database()))
}

// Health pings ClickHouse.
func (s *CHMarketStore) Health(ctx context.Context) error { return s.client.Health(ctx) }

// Close closes the pool.
func (s *CHMarketStore) Close() error { return s.client.Close() }

func (s *CHMarketStore) Instruments(ctx context.Context) ([]models.Instrument, error) {
	const q = `SELECT symbol, company, sector, industry, indices FROM instruments FINAL ORDER BY symbol`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.logErr("instruments query", "", err)
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		var in models.Instrument
		if err := rows.Scan(&in.Symbol, &in.Company, &in.Sector, &in.Industry, &in.Indices); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *CHMarketStore) RawBars(ctx context.Context, symbol string) ([]models.PriceBar, error) {
	const q = `
        SELECT symbol, date, open, high, low, close, adjusted_close, volume, dividend_amount, split_coefficient
        FROM daily_bars FINAL
        WHERE symbol = ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.logErr("raw_bars query", symbol, err)
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 4096)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close,
			&b.AdjustedClose, &b.Volume, &b.DividendAmount, &b.SplitCoefficient); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		b.Date = dateOnly(b.Date)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Events returns all events of a symbol ordered by timestamp, earnings first on ties.
func (s *CHMarketStore) Events(ctx context.Context, symbol string) ([]models.Event, error) {
	var out []models.Event
	for _, kind := range []models.EventKind{models.EventEarnings, models.EventDividend, models.EventSplit} {
		evs, err := s.eventsOf(ctx, symbol, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, evs...)
	}
	sortEvents(out)
	return out, nil
}

func (s *CHMarketStore) eventsOf(ctx context.Context, symbol string, kind models.EventKind) ([]models.Event, error) {
	table, cols, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE symbol = ? ORDER BY ts ASC", strings.Join(cols, ", "), table)
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		s.logErr("events query", symbol, err)
		return nil, fmt.Errorf("query %s %s: %w", table, symbol, err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			sym string
			ts  time.Time
			e   models.Event
		)
		switch kind {
		case models.EventEarnings:
			var p models.EarningsPayload
			err = rows.Scan(&sym, &ts, &p.FiscalPeriod, &p.FiscalEndDate, &p.EPSActual, &p.EPSEstimate,
				&p.EPSReportedActual, &p.EPSReportedEstimate, &p.SalesActual, &p.SalesEstimate)
			e = models.NewEarnings(sym, ts.UTC(), p)
		case models.EventDividend:
			var p models.DividendPayload
			err = rows.Scan(&sym, &ts, &p.Ordinary, &p.Special)
			e = models.NewDividend(sym, ts.UTC(), p)
		case models.EventSplit:
			var p models.SplitPayload
			err = rows.Scan(&sym, &ts, &p.From, &p.To)
			e = models.NewSplit(sym, ts.UTC(), p)
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s %s: %w", table, symbol, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *CHMarketStore) UpsertInstruments(ctx context.Context, instruments []models.Instrument, update bool) (domrepo.UpsertResult, error) {
	return s.writer.UpsertBatch(ctx, instrumentBatch(instruments, update))
}

func (s *CHMarketStore) UpsertBars(ctx context.Context, bars []models.PriceBar, update bool) (domrepo.UpsertResult, error) {
	return s.writer.UpsertBatch(ctx, barBatch(bars, update))
}

func (s *CHMarketStore) UpsertAdjustedBars(ctx context.Context, bars []models.AdjustedBar, update bool) (domrepo.UpsertResult, error) {
	return s.writer.UpsertBatch(ctx, adjustedBatch(bars, update))
}

// UpsertEvents writes each kind to its own table.
func (s *CHMarketStore) UpsertEvents(ctx context.Context, events []models.Event, update bool) (domrepo.UpsertResult, error) {
	var total domrepo.UpsertResult
	batches, err := eventBatches(events, update)
	if err != nil {
		return total, err
	}
	for _, b := range batches {
		res, err := s.writer.UpsertBatch(ctx, b)
		if err != nil {
			return total, err
		}
		total.Add(res)
	}
	return total, nil
}

// UpsertIndicatorRows stores every non-missing numeric cell of p in long format.
func (s *CHMarketStore) UpsertIndicatorRows(ctx context.Context, symbol string, p *models.Panel, update bool) (domrepo.UpsertResult, error) {
	return s.writer.UpsertBatch(ctx, indicatorBatch(symbol, p, update))
}

func (s *CHMarketStore) logErr(op, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+op+" error",
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

func instrumentBatch(instruments []models.Instrument, update bool) domrepo.Batch {
	b := domrepo.Batch{Table: TableInstruments, Columns: instrumentColumns, KeyColumns: instrumentKey, Update: update}
	for _, in := range instruments {
		indices := in.Indices
		if indices == nil {
			indices = []string{}
		}
		b.Rows = append(b.Rows, domrepo.Record{
			"symbol": in.Symbol, "company": in.Company, "sector": in.Sector,
			"industry": in.Industry, "indices": indices,
		})
	}
	return b
}

func barRecord(bar models.PriceBar) domrepo.Record {
	return domrepo.Record{
		"symbol":            bar.Symbol,
		"date":              dateOnly(bar.Date),
		"open":              bar.Open,
		"high":              bar.High,
		"low":               bar.Low,
		"close":             bar.Close,
		"adjusted_close":    bar.AdjustedClose,
		"volume":            bar.Volume,
		"dividend_amount":   bar.DividendAmount,
		"split_coefficient": bar.SplitCoefficient,
	}
}

func barBatch(bars []models.PriceBar, update bool) domrepo.Batch {
	b := domrepo.Batch{Table: TableDailyBars, Columns: barColumns, KeyColumns: symbolDateKey, Update: update}
	for _, bar := range bars {
		b.Rows = append(b.Rows, barRecord(bar))
	}
	return b
}

func adjustedBatch(bars []models.AdjustedBar, update bool) domrepo.Batch {
	b := domrepo.Batch{Table: TableAdjustedBars, Columns: adjustedColumns, KeyColumns: symbolDateKey, Update: update}
	for _, bar := range bars {
		r := barRecord(bar.PriceBar)
		r["split_factor"] = bar.SplitFactor
		b.Rows = append(b.Rows, r)
	}
	return b
}

// eventBatches groups events by kind, in earnings, dividend, split order. Empty kinds are omitted.
func eventBatches(events []models.Event, update bool) ([]domrepo.Batch, error) {
	byKind := make(map[models.EventKind]*domrepo.Batch)
	order := []models.EventKind{models.EventEarnings, models.EventDividend, models.EventSplit}
	for _, kind := range order {
		table, cols, err := eventTable(kind)
		if err != nil {
			return nil, err
		}
		byKind[kind] = &domrepo.Batch{Table: table, Columns: cols, KeyColumns: symbolTSKey, Update: update}
	}

	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		ts := e.Timestamp.UTC().Truncate(time.Second)
		r := domrepo.Record{"symbol": e.Symbol, "ts": ts}
		switch e.Kind {
		case models.EventEarnings:
			p := e.Earnings
			r["fiscal_period"] = p.FiscalPeriod
			r["fiscal_end_date"] = p.FiscalEndDate
			r["eps_actual"] = p.EPSActual
			r["eps_estimate"] = p.EPSEstimate
			r["eps_reported_actual"] = p.EPSReportedActual
			r["eps_reported_estimate"] = p.EPSReportedEstimate
			r["sales_actual"] = p.SalesActual
			r["sales_estimate"] = p.SalesEstimate
		case models.EventDividend:
			r["ordinary"] = e.Dividend.Ordinary
			r["special"] = e.Dividend.Special
		case models.EventSplit:
			r["split_from"] = e.Split.From
			r["split_to"] = e.Split.To
		}
		byKind[e.Kind].Rows = append(byKind[e.Kind].Rows, r)
	}

	var out []domrepo.Batch
	for _, kind := range order {
		if b := byKind[kind]; len(b.Rows) > 0 {
			out = append(out, *b)
		}
	}
	return out, nil
}

func eventTable(kind models.EventKind) (string, []string, error) {
	switch kind {
	case models.EventEarnings:
		return TableEarnings, earningsColumns, nil
	case models.EventDividend:
		return TableDividends, dividendColumns, nil
	case models.EventSplit:
		return TableSplits, splitColumns, nil
	default:
		return "", nil, fmt.Errorf("no table for %s", kind)
	}
}

func indicatorBatch(symbol string, p *models.Panel, update bool) domrepo.Batch {
	b := domrepo.Batch{Table: TableIndicatorRows, Columns: indicatorColumns, KeyColumns: indicatorKey, Update: update}
	dates := p.Dates()
	for _, name := range p.Names() {
		col, _ := p.Col(name)
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			b.Rows = append(b.Rows, domrepo.Record{
				"symbol": symbol, "date": dateOnly(dates[i]), "feature": name, "value": v,
			})
		}
	}
	return b
}

// dateOnly keeps the calendar date of t in its own location at midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortEvents(evs []models.Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Kind < b.Kind
	})
}
