package analytics

import (
	"math"
	"sort"
	"time"

	"cryptoPredictor/internal/domain"
)

// PerformanceMetrics holds performance metrics for a set of replayed
// signals. Amounts are in R, multiples of the risk taken on each trade.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	ExpiredTrades int // Closed at the horizon without touching a level
	WinRate       float64
	TotalR        float64
	MaxDrawdown   float64 // Deepest fall of cumulative R from its running peak
	ProfitFactor  float64 // Gross winning R over gross losing R
	AverageWin    float64
	AverageLoss   float64 // Zero or negative
	SharpeRatio   float64 // Mean R over its sample standard deviation

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	RecoveryFactor       float64
	Expectancy           float64 // Mean R per trade
	AverageConfidence    float64
	MonthlyReturns       map[string]float64
	Drawdowns            []Drawdown
	EquityCurve          []EquityPoint
}

// Drawdown represents a drawdown period
type Drawdown struct {
	StartTime time.Time
	EndTime   time.Time
	Peak      float64
	Trough    float64
	Depth     float64
	Duration  time.Duration
}

// EquityPoint represents a point on the cumulative R curve
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzePerformance calculates performance metrics from trades. The input
// slice is not reordered.
func AnalyzePerformance(trades []*domain.Trade) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		MonthlyReturns: make(map[string]float64),
		Drawdowns:      make([]Drawdown, 0),
		EquityCurve:    make([]EquityPoint, 0),
	}

	if len(trades) == 0 {
		return metrics
	}

	// Sort trades by entry time
	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTime.Before(ordered[j].EntryTime)
	})

	var equity, peak float64
	var grossWin, grossLoss, confidence float64
	var currentDrawdown *Drawdown
	var consecutiveWins, consecutiveLosses int
	var totalDuration time.Duration
	results := make([]float64, 0, len(ordered))

	for _, trade := range ordered {
		metrics.TotalTrades++
		results = append(results, trade.R)
		confidence += trade.Confidence
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
		if trade.Reason == domain.ExitExpired {
			metrics.ExpiredTrades++
		}

		if trade.IsWin() {
			metrics.WinningTrades++
			grossWin += trade.R
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			metrics.LosingTrades++
			grossLoss -= trade.R
			consecutiveLosses++
			consecutiveWins = 0
		}
		metrics.MaxConsecutiveWins = max(metrics.MaxConsecutiveWins, consecutiveWins)
		metrics.MaxConsecutiveLosses = max(metrics.MaxConsecutiveLosses, consecutiveLosses)

		equity += trade.R
		metrics.MonthlyReturns[trade.ExitTime.Format("2006-01")] += trade.R

		// Update drawdown tracking
		if equity >= peak {
			peak = equity
			if currentDrawdown != nil {
				currentDrawdown.EndTime = trade.ExitTime
				currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
				metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
				currentDrawdown = nil
			}
		} else {
			depth := peak - equity
			if currentDrawdown == nil {
				currentDrawdown = &Drawdown{StartTime: trade.ExitTime, Peak: peak}
			}
			if depth > currentDrawdown.Depth {
				currentDrawdown.Depth = depth
				currentDrawdown.Trough = equity
			}
			metrics.MaxDrawdown = math.Max(metrics.MaxDrawdown, depth)
		}

		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Time:     trade.ExitTime,
			Value:    equity,
			Drawdown: peak - equity,
		})
	}

	// Close any open drawdown
	if currentDrawdown != nil {
		currentDrawdown.EndTime = ordered[len(ordered)-1].ExitTime
		currentDrawdown.Duration = currentDrawdown.EndTime.Sub(currentDrawdown.StartTime)
		metrics.Drawdowns = append(metrics.Drawdowns, *currentDrawdown)
	}

	n := float64(metrics.TotalTrades)
	metrics.TotalR = equity
	metrics.WinRate = float64(metrics.WinningTrades) / n
	metrics.Expectancy = equity / n
	metrics.AverageConfidence = confidence / n
	metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.TotalTrades)
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = grossWin / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = -grossLoss / float64(metrics.LosingTrades)
	}
	if grossLoss > 0 {
		metrics.ProfitFactor = grossWin / grossLoss
	}
	if metrics.MaxDrawdown > 0 {
		metrics.RecoveryFactor = metrics.TotalR / metrics.MaxDrawdown
	}
	metrics.SharpeRatio = calculateSharpeRatio(results)

	return metrics
}

// calculateSharpeRatio returns mean over sample standard deviation, or 0
// when fewer than two results or no dispersion.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}

// GetMonthlyReturns returns the monthly returns as a sorted slice
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, r := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: r,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value in R
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
