package indicators

import (
	"testing"

	"cryptoPredictor/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeRatio(t *testing.T) {
	sma, ratio := VolumeRatio([]float64{100, 100, 100, 400}, 4)
	require.Len(t, ratio, 4)

	assert.False(t, ratio[2].Valid)
	assert.InDelta(t, 175.0, sma[3].Float64, 1e-9)
	assert.InDelta(t, 400.0/175.0, ratio[3].Float64, 1e-9)

	_, zero := VolumeRatio([]float64{0, 0, 0}, 3)
	assert.False(t, zero[2].Valid, "zero average volume leaves the ratio undefined")
}

func TestReturns(t *testing.T) {
	r1 := Returns([]float64{100, 110, 99}, 1)
	assert.False(t, r1[0].Valid)
	assert.InDelta(t, 0.1, r1[1].Float64, 1e-12)
	assert.InDelta(t, -0.1, r1[2].Float64, 1e-12)

	r2 := Returns([]float64{100, 110, 99}, 2)
	assert.False(t, r2[1].Valid)
	assert.InDelta(t, -0.01, r2[2].Float64, 1e-12)

	zero := Returns([]float64{0, 5}, 1)
	assert.False(t, zero[1].Valid, "a zero base price leaves the return undefined")
}

func TestVolatility(t *testing.T) {
	returns := []domain.NullFloat64{domain.Null, domain.Float(0.01), domain.Float(0.03), domain.Float(0.02)}
	vol := Volatility(returns, 3)

	assert.False(t, vol[2].Valid, "window containing an undefined return")
	require.True(t, vol[3].Valid)
	assert.InDelta(t, 0.01, vol[3].Float64, 1e-12)
}
