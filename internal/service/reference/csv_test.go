package reference

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"FinPanel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestParse(t *testing.T) {
	rows, err := Parse(strings.NewReader("\ufeffNo.,Ticker,Company,Sector,Industry\n" +
		"1,aapl,Apple Inc.,Technology,Consumer Electronics\n" +
		"2,,Blank,,\n" +
		"3,XOM,Exxon Mobil Corp,Energy\n"))
	require.NoError(t, err)
	assert.Equal(t, []models.Instrument{
		{Symbol: "AAPL", Company: "Apple Inc.", Sector: "Technology", Industry: "Consumer Electronics"},
		{Symbol: "XOM", Company: "Exxon Mobil Corp", Sector: "Energy"},
	}, rows)
}

func TestParseRequiresTicker(t *testing.T) {
	_, err := Parse(strings.NewReader("Symbol,Sector\nAAPL,Technology\n"))
	assert.ErrorIs(t, err, ErrNoTickerColumn)
	_, err = Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoTickerColumn)
}

func TestSourceMergesFilesAndIndices(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sp500.csv", "Ticker,Company,Sector,Industry\nAAPL,Apple Inc.,Technology,Consumer Electronics\nJPM,JPMorgan Chase,Financial,Banks\n")
	writeFile(t, dir, "nasdaq100.csv", "Ticker,Company,Sector,Industry\nAAPL,Apple,,\n")
	writeFile(t, dir, "all.csv", "Ticker,Company,Sector,Industry\nPLTR,Palantir,Technology,Software\n")
	writeFile(t, dir, "notes.txt", "ignored")

	src := New(dir, map[string]string{"sp500.csv": "s_and_p_500", "nasdaq100.csv": "nasdaq_100"})
	got, err := src.Instruments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, models.Instrument{
		Symbol: "AAPL", Company: "Apple", Sector: "Technology", Industry: "Consumer Electronics",
		Indices: []string{"nasdaq_100", "s_and_p_500"},
	}, got[0])
	assert.Equal(t, "JPM", got[1].Symbol)
	assert.Equal(t, []string{"s_and_p_500"}, got[1].Indices)
	assert.Equal(t, "PLTR", got[2].Symbol)
	assert.Empty(t, got[2].Indices)
}

func TestSourceMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), nil).Instruments(context.Background())
	assert.Error(t, err)
}
