package storage

import (
	"database/sql"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/logger"
	"stream-operators/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if log == nil {
		log = logger.NewLogger(cfg, "SQLiteDB")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open sqlite "+dsn, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach sqlite "+dsn, err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables creates the journal tables if missing. Existing history is kept.
func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS emissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operator_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			kind TEXT NOT NULL,
			mode TEXT NOT NULL,
			price REAL,
			result TEXT,
			accumulator TEXT,
			passed INTEGER,
			timestamp INTEGER,
			market_open INTEGER,
			created_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create emissions", err)
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_emissions_symbol ON emissions (symbol, created_at)`); err != nil {
		return helpers.NewDatabaseError("failed to index emissions", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS generated_functions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operator_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			signature TEXT,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create generated_functions", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveEmissions(emissions []models.MEmission) error {
	if len(emissions) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO emissions (operator_id, symbol, kind, mode, price, result, accumulator, passed, timestamp, market_open, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range emissions {
		row := toEmissionRow(e)
		_, err := stmt.Exec(row.OperatorID, row.Symbol, row.Kind, row.Mode, row.Price, row.Result, row.Accumulator,
			row.Passed, row.Timestamp, row.MarketOpen, row.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveGeneratedFunction(record models.MGeneratedFunctionRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := d.DB.Exec(`
		INSERT INTO generated_functions (operator_id, kind, name, signature, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.OperatorID, string(record.Kind), record.Name, record.Signature, record.Source, createdAt.UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	cutoff := retentionCutoff(d.Config)

	d.Logger.Info("Cleaning up data older than %d days (created_at < %d)...", retentionDays(d.Config), cutoff)

	if _, err := d.DB.Exec("DELETE FROM emissions WHERE created_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup emissions error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM generated_functions WHERE created_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup generated_functions error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

// CountEmissions returns how many emissions are journaled for symbol.
func (d *AsyncSQLiteDB) CountEmissions(symbol string) (int, error) {
	var n int
	err := d.DB.QueryRow("SELECT COUNT(*) FROM emissions WHERE symbol = ?", symbol).Scan(&n)
	return n, err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
