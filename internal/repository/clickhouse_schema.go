package repository

import "fmt"

// Table names.
const (
	TableInstruments   = "instruments"
	TableDailyBars     = "daily_bars"
	TableAdjustedBars  = "daily_bars_adjusted"
	TableEarnings      = "events_earnings"
	TableDividends     = "events_dividend"
	TableSplits        = "events_split"
	TableIndicatorRows = "indicator_rows"
)

// VersionColumn orders row versions for ReplacingMergeTree; the writer fills it.
const VersionColumn = "version"

// SchemaStatements returns idempotent DDL for the pipeline tables. Every table is a
// ReplacingMergeTree keyed by its upsert key, so a re-insert with a higher version replaces a row.
func SchemaStatements(database string) []string {
	table := func(name, cols, order string) string {
		return fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s.%s (%s, %s UInt64) ENGINE = ReplacingMergeTree(%s) ORDER BY %s",
			database, name, cols, VersionColumn, VersionColumn, order)
	}
	bars := "symbol LowCardinality(String), date Date, open Float64, high Float64, low Float64, " +
		"close Float64, adjusted_close Float64, volume Float64, dividend_amount Float64, split_coefficient Float64"
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		table(TableInstruments,
			"symbol String, company String, sector LowCardinality(String), industry String, indices Array(String)",
			"symbol"),
		table(TableDailyBars, bars, "(symbol, date)"),
		table(TableAdjustedBars, bars+", split_factor Float64", "(symbol, date)"),
		table(TableEarnings,
			"symbol LowCardinality(String), ts DateTime('UTC'), fiscal_period String, fiscal_end_date Int64, "+
				"eps_actual Float64, eps_estimate Float64, eps_reported_actual Float64, eps_reported_estimate Float64, "+
				"sales_actual Float64, sales_estimate Float64",
			"(symbol, ts)"),
		table(TableDividends,
			"symbol LowCardinality(String), ts DateTime('UTC'), ordinary Float64, special Float64",
			"(symbol, ts)"),
		table(TableSplits,
			"symbol LowCardinality(String), ts DateTime('UTC'), split_from Float64, split_to Float64",
			"(symbol, ts)"),
		table(TableIndicatorRows,
			"symbol LowCardinality(String), date Date, feature LowCardinality(String), value Float64",
			"(symbol, date, feature)"),
	}
}
