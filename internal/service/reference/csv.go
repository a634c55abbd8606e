// Package reference loads instrument reference data from screener CSV exports.
package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"FinPanel/internal/domain/models"
	applogger "FinPanel/pkg/logger"
)

// ErrNoTickerColumn is returned for an export without a Ticker header.
var ErrNoTickerColumn = errors.New("reference: no Ticker column")

// Source reads every *.csv file in a directory. Tickers listed in a file named in
// indexFiles are members of that index; a ticker seen in several files is merged.
type Source struct {
	dir        string
	indexFiles map[string]string
	l          *applogger.Logger
}

func New(dir string, indexFiles map[string]string) *Source {
	return &Source{dir: dir, indexFiles: indexFiles, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *Source) SetLogger(l *applogger.Logger) { s.l = l }

// Instruments returns the merged reference rows sorted by symbol.
func (s *Source) Instruments(ctx context.Context) ([]models.Instrument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reference dir: %w", err)
	}

	merged := make(map[string]*models.Instrument)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := s.readFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", e.Name(), err)
		}
		index := s.indexFiles[e.Name()]
		for _, in := range rows {
			merge(merged, in, index)
		}
		s.l.Debug("reference file loaded",
			applogger.String("file", e.Name()),
			applogger.String("index", index),
			applogger.Int("rows", len(rows)),
		)
	}

	out := make([]models.Instrument, 0, len(merged))
	for _, in := range merged {
		sort.Strings(in.Indices)
		out = append(out, *in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Source) readFile(path string) ([]models.Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one export. Headers match case-insensitively; Company, Sector and Industry
// are optional and rows without a ticker are ignored.
func Parse(r io.Reader) ([]models.Instrument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoTickerColumn
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["ticker"]; !ok {
		return nil, ErrNoTickerColumn
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []models.Instrument
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		sym := strings.ToUpper(field(rec, "ticker"))
		if sym == "" {
			continue
		}
		out = append(out, models.Instrument{
			Symbol:   sym,
			Company:  field(rec, "company"),
			Sector:   field(rec, "sector"),
			Industry: field(rec, "industry"),
		})
	}
	return out, nil
}

// merge keeps the first non-empty descriptive fields and collects index memberships.
func merge(into map[string]*models.Instrument, in models.Instrument, index string) {
	cur, ok := into[in.Symbol]
	if !ok {
		cur = &models.Instrument{Symbol: in.Symbol}
		into[in.Symbol] = cur
	}
	if cur.Company == "" {
		cur.Company = in.Company
	}
	if cur.Sector == "" {
		cur.Sector = in.Sector
	}
	if cur.Industry == "" {
		cur.Industry = in.Industry
	}
	if index != "" && !slices.Contains(cur.Indices, index) {
		cur.Indices = append(cur.Indices, index)
	}
}
