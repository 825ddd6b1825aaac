package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stream-operators/src/helpers"
	"stream-operators/src/interfaces"
	"stream-operators/src/logger"
	"stream-operators/src/models"
)

const (
	defaultJournalBatch    = 100
	defaultJournalInterval = 2 * time.Second
	defaultJournalRetries  = 3
	defaultJournalBackoff  = 200 * time.Millisecond
	cleanupInterval        = time.Hour
)

// -----------------------------------------------------------------------------

// NewDatabase opens the configured backend. It returns nil when storage is disabled.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	}
	return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
}

// -----------------------------------------------------------------------------

// Journal buffers emissions and writes them to the database in batches. It
// also records synthesized functions straight through.
type Journal struct {
	DB        interfaces.IDatabase
	BatchSize int
	Interval  time.Duration
	Logger    *logger.Logger

	// a batch is retried with exponential backoff before it is dropped
	Retries    int
	RetryDelay time.Duration

	mu      sync.Mutex
	pending []models.MEmission
	flushCh chan struct{}
}

func NewJournal(db interfaces.IDatabase, log *logger.Logger) *Journal {
	if log == nil {
		log = logger.NewLogger(nil, "Journal")
	}
	return &Journal{
		DB:        db,
		BatchSize: defaultJournalBatch,
		Interval:  defaultJournalInterval,
		Logger:    log,

		Retries:    defaultJournalRetries,
		RetryDelay: defaultJournalBackoff,
		flushCh:    make(chan struct{}, 1),
	}
}

// Emit queues e; a full batch wakes the writer.
func (j *Journal) Emit(e models.MEmission) {
	j.mu.Lock()
	j.pending = append(j.pending, e)
	full := len(j.pending) >= j.BatchSize
	j.mu.Unlock()

	if full {
		select {
		case j.flushCh <- struct{}{}:
		default:
		}
	}
}

func (j *Journal) SaveGeneratedFunction(record models.MGeneratedFunctionRecord) error {
	return j.DB.SaveGeneratedFunction(record)
}

// Pending returns the number of buffered emissions.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Flush writes every buffered emission. A batch that still fails after the
// retries is dropped and logged.
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	batch := j.pending
	j.pending = nil
	j.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	err := helpers.RetryWithBackoff(ctx, j.Logger, "save emissions", j.Retries, j.RetryDelay, func() error {
		return j.DB.SaveEmissions(batch)
	})
	if err != nil {
		j.Logger.Error("Failed to save %d emissions: %v", len(batch), err)
		return err
	}
	j.Logger.Debug("Saved %d emissions", len(batch))
	return nil
}

// -----------------------------------------------------------------------------

// Run flushes on every interval or full batch and applies retention hourly,
// until ctx is done. A final flush happens on exit.
func (j *Journal) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	if err := j.DB.CleanupOldData(); err != nil {
		j.Logger.Warning("Initial cleanup failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			// ctx is already done; the last batch still gets its retries
			_ = j.Flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			_ = j.Flush(ctx)
		case <-j.flushCh:
			_ = j.Flush(ctx)
		case <-cleanup.C:
			if err := j.DB.CleanupOldData(); err != nil {
				j.Logger.Warning("Cleanup failed: %v", err)
			}
		}
	}
}
