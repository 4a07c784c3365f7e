package indicators

import (
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	values := SMA([]float64{100.0, 102.0, 101.0, 103.0, 104.0}, 3)
	require.Len(t, values, 5)

	assert.False(t, values[0].Valid)
	assert.False(t, values[1].Valid)
	assert.InDelta(t, 101.0, values[2].Float64, 0.0001)
	assert.InDelta(t, 102.0, values[3].Float64, 0.0001)
	assert.InDelta(t, 102.666667, values[4].Float64, 0.0001) // (101 + 103 + 104) / 3
}

func TestSMA_MatchesTALib(t *testing.T) {
	closes := closesOf(randomWalk(120, 3))
	expected := talib.Sma(closes, 20)

	for i, v := range SMA(closes, 20) {
		if i < 19 {
			assert.False(t, v.Valid)
			continue
		}
		require.True(t, v.Valid)
		assert.InDelta(t, expected[i], v.Float64, 1e-9, "index %d", i)
	}
}

func TestEMA(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		span     int
		expected []float64
	}{
		{
			name:     "bias corrected seed",
			values:   []float64{1, 2, 3},
			span:     3,
			expected: []float64{1, 1.666667, 2.428571},
		},
		{
			name:     "constant series",
			values:   []float64{5, 5, 5, 5},
			span:     9,
			expected: []float64{5, 5, 5, 5},
		},
		{
			name:     "single value",
			values:   []float64{42},
			span:     50,
			expected: []float64{42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := EMA(tt.values, tt.span)
			require.Len(t, values, len(tt.expected))
			for i, v := range values {
				assert.True(t, v.Valid, "EMA is defined on every bar")
				assert.InDelta(t, tt.expected[i], v.Float64, 0.0001, "index %d", i)
			}
		})
	}
}

func TestMACD(t *testing.T) {
	closes := closesOf(randomWalk(80, 11))
	line, signal := MACD(closes, 12, 26, 9)
	fast := EMA(closes, 12)
	slow := EMA(closes, 26)

	require.Len(t, line, len(closes))
	require.Len(t, signal, len(closes))
	for i := range closes {
		assert.InDelta(t, fast[i].Float64-slow[i].Float64, line[i].Float64, 1e-12)
		assert.True(t, signal[i].Valid)
	}

	// A flat series has no convergence or divergence.
	flatLine, flatSignal := MACD([]float64{10, 10, 10, 10}, 12, 26, 9)
	for i := range flatLine {
		assert.InDelta(t, 0.0, flatLine[i].Float64, 1e-12)
		assert.InDelta(t, 0.0, flatSignal[i].Float64, 1e-12)
	}
}
