package indicators

import "cryptoPredictor/internal/domain"

// Bands is one row of Bollinger Bands.
type Bands struct {
	Middle domain.NullFloat64
	Upper  domain.NullFloat64
	Lower  domain.NullFloat64
	Width  domain.NullFloat64 // (Upper - Lower) / Middle
}

// Bollinger computes bands of numStdDev sample standard deviations around a
// period-length SMA.
func Bollinger(closes []float64, period int, numStdDev float64) []Bands {
	middle := SMA(closes, period)
	stdDev := rolling(defined(closes), period, sampleStdDev)

	out := make([]Bands, len(closes))
	for i := range closes {
		if !middle[i].Valid || !stdDev[i].Valid {
			continue
		}
		offset := numStdDev * stdDev[i].Float64
		b := Bands{
			Middle: middle[i],
			Upper:  domain.Float(middle[i].Float64 + offset),
			Lower:  domain.Float(middle[i].Float64 - offset),
		}
		b.Width = domain.Div(domain.Sub(b.Upper, b.Lower), b.Middle)
		out[i] = b
	}
	return out
}
