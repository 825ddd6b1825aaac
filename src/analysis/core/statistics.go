package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMean computes the arithmetic mean; zero for an empty slice.
func CalculateMean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation (N denominator).
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	mean := CalculateMean(data)

	// For single element, return std = 0
	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// CalculateSampleVariance computes the two-pass sample variance (N-1 denominator).
// The second return value is false when fewer than two points are available.
func CalculateSampleVariance(data []float64) (float64, bool) {
	if len(data) < 2 {
		return 0, false
	}
	mean := CalculateMean(data)
	sum := 0.0
	for _, v := range data {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(data)-1), true
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates Z-Score (Standard Score).
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}
