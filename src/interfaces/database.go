package interfaces

import "stream-operators/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveEmissions inserts a batch of operator results.
	SaveEmissions(emissions []models.MEmission) error

	// -----------------------------------------------------------------------------

	// SaveGeneratedFunction records the source of a synthesized function.
	SaveGeneratedFunction(record models.MGeneratedFunctionRecord) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
