package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsRenderAsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(String("run", "r1"))
	l.Info("instrument skipped",
		String("symbol", "AAPL"),
		Int("rows", 3),
		Float64("p_value", math.NaN()),
		Duration("took", 1500*time.Millisecond),
		Date("cutoff", time.Date(2024, 6, 3, 16, 0, 0, 0, time.UTC)),
		Error(errors.New("boom")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "instrument skipped", got["message"])
	assert.Equal(t, "r1", got["run"])
	assert.Equal(t, "AAPL", got["symbol"])
	assert.Equal(t, float64(3), got["rows"])
	assert.Equal(t, "NaN", got["p_value"])
	assert.Equal(t, float64(1500), got["took"])
	assert.Equal(t, "2024-06-03", got["cutoff"])
	assert.Equal(t, "boom", got["error"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
	l, err := New(&Config{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	Nop().Info("discarded")
	assert.NotNil(t, l)
}
