package utils

// -----------------------------------------------------------------------------

// Retention defaults for in-memory emission history.
const (
	DefaultRetentionDays      = 7
	DefaultEmissionsPerSymbol = 500
	MinEmissionsPerSymbol     = 50
)
