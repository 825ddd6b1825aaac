package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------

func parseLimit(raw string, max int) (int, error) {
	if raw == "" {
		return max, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func filterBySymbols(emissions []models.MEmission, symbols []string) []models.MEmission {
	if len(symbols) == 0 {
		return emissions
	}
	out := make([]models.MEmission, 0, len(emissions))
	for _, e := range emissions {
		if contains(symbols, e.Symbol) {
			out = append(out, e)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func filterByOperator(emissions []models.MEmission, operatorID string) []models.MEmission {
	out := make([]models.MEmission, 0, len(emissions))
	for _, e := range emissions {
		if e.OperatorID == operatorID {
			out = append(out, e)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func sortEmissions(emissions []models.MEmission) []models.MEmission {
	sort.Slice(emissions, func(i, j int) bool { return emissions[i].Symbol < emissions[j].Symbol })
	return emissions
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
