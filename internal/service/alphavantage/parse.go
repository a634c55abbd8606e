package alphavantage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinPanel/internal/domain/models"
	"FinPanel/pkg/util"
)

var (
	// ErrRateLimited is returned when the provider answers with a throttling note instead of data.
	ErrRateLimited = errors.New("alphavantage: rate limited")
	// ErrNoData is returned when the response carries no daily series.
	ErrNoData = errors.New("alphavantage: no time series in response")
)

type dailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
}

// parseDailyAdjusted decodes a TIME_SERIES_DAILY_ADJUSTED JSON body into bars sorted by date.
// Dates are calendar dates at midnight in loc.
func parseDailyAdjusted(symbol string, body []byte, loc *time.Location) ([]models.PriceBar, error) {
	var resp dailyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode daily %s: %w", symbol, err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage %s: %s", symbol, resp.ErrorMessage)
	}
	if resp.Series == nil {
		if note := resp.Note + resp.Information; strings.Contains(strings.ToLower(note), "call frequency") ||
			strings.Contains(strings.ToLower(note), "rate limit") {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, note)
		}
		return nil, fmt.Errorf("%w (%s)", ErrNoData, symbol)
	}

	bars := make([]models.PriceBar, 0, len(resp.Series))
	for day, v := range resp.Series {
		d, err := util.ParseDate(day, loc)
		if err != nil {
			return nil, fmt.Errorf("alphavantage %s: bad date %q: %w", symbol, day, err)
		}
		bars = append(bars, models.PriceBar{
			Symbol:           symbol,
			Date:             d,
			Open:             util.ParseFloatNaN(v["1. open"]),
			High:             util.ParseFloatNaN(v["2. high"]),
			Low:              util.ParseFloatNaN(v["3. low"]),
			Close:            util.ParseFloatNaN(v["4. close"]),
			AdjustedClose:    util.ParseFloatNaN(v["5. adjusted close"]),
			Volume:           util.ParseFloatNaN(v["6. volume"]),
			DividendAmount:   util.ParseFloatNaN(v["7. dividend amount"]),
			SplitCoefficient: util.ParseFloatNaN(v["8. split coefficient"]),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
