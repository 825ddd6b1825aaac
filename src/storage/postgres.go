package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/logger"
	"stream-operators/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every table inside a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	if log == nil {
		log = logger.NewLogger(cfg, "PostgresDB")
	}
	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("failed to create schema %s", d.Schema), err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

func (d *PostgresDB) table(name string) string {
	return fmt.Sprintf(`"%s"."%s"`, d.Schema, name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			operator_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			kind TEXT NOT NULL,
			mode TEXT NOT NULL,
			price DOUBLE PRECISION,
			result JSONB,
			accumulator JSONB,
			passed BOOLEAN,
			timestamp BIGINT,
			market_open BOOLEAN,
			created_at BIGINT NOT NULL
		);
	`, d.table("emissions"))
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create emissions", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			operator_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			signature TEXT,
			source TEXT NOT NULL,
			created_at BIGINT NOT NULL
		);
	`, d.table("generated_functions"))
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create generated_functions", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveEmissions(emissions []models.MEmission) error {
	if len(emissions) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (operator_id, symbol, kind, mode, price, result, accumulator, passed, timestamp, market_open, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, d.table("emissions")))
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

func (d *PostgresDB) SaveGeneratedFunction(record models.MGeneratedFunctionRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := d.DB.Exec(fmt.Sprintf(`
		INSERT INTO %s (operator_id, kind, name, signature, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.table("generated_functions")),
		record.OperatorID, string(record.Kind), record.Name, record.Signature, record.Source, createdAt.UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	cutoff := retentionCutoff(d.Config)

	d.Logger.Info("Cleaning up data older than %d days (created_at < %d)...", retentionDays(d.Config), cutoff)

	for _, name := range []string{"emissions", "generated_functions"} {
		if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, d.table(name)), cutoff); err != nil {
			d.Logger.Error("Cleanup %s error: %v", name, err)
		}
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
