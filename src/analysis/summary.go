package analysis

import (
	"sort"

	"stream-operators/src/analysis/core"
	"stream-operators/src/models"
)

// SummarizeEmissions buckets emissions by creation time into windowSeconds
// wide windows and reports price statistics and emission outcomes per window.
// Input order does not matter; the result is ordered by window start.
func SummarizeEmissions(emissions []models.MEmission, windowSeconds int64) []models.MWindowSummary {
	if len(emissions) == 0 || windowSeconds <= 0 {
		return nil
	}

	sorted := make([]models.MEmission, len(emissions))
	copy(sorted, emissions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	timestamps := make([]int64, len(sorted))
	for i, e := range sorted {
		timestamps[i] = e.CreatedAt.Unix()
	}

	windows := ResampleIndices(timestamps, windowSeconds)
	out := make([]models.MWindowSummary, 0, len(windows))
	for _, w := range windows {
		out = append(out, summarizeWindow(sorted, w))
	}
	return out
}

func summarizeWindow(sorted []models.MEmission, w Window) models.MWindowSummary {
	prices := make([]float64, len(w.Indices))
	summary := models.MWindowSummary{
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Count:     len(w.Indices),
	}

	for i, idx := range w.Indices {
		e := sorted[idx]
		prices[i] = e.Price
		if e.Passed {
			summary.Passed++
		}
		if i == 0 || e.Price < summary.Low {
			summary.Low = e.Price
		}
		if i == 0 || e.Price > summary.High {
			summary.High = e.Price
		}
	}

	summary.Open = prices[0]
	summary.Close = prices[len(prices)-1]
	summary.MeanPrice, summary.StdPrice = core.CalculateMeanStd(prices)
	summary.CloseZScore = core.CalculateZScore(summary.Close, summary.MeanPrice, summary.StdPrice)
	summary.LastResult = sorted[w.Indices[len(w.Indices)-1]].Result
	return summary
}
