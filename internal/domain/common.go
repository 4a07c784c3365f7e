package domain

// Direction is the action carried by a signal (BUY or HOLD).
type Direction string

const (
	Buy  Direction = "BUY"
	Hold Direction = "HOLD"
)

// Trend labels the prevailing market direction of a series.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
	TrendUnknown  Trend = "unknown" // Not enough history to decide
)

// ScoreSource tells which scorer produced a prediction.
type ScoreSource string

const (
	SourceRules ScoreSource = "rules"
	SourceModel ScoreSource = "model"
)
