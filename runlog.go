package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ===========================================================================
// RUN LOG
// ===========================================================================
//
// Training runs and their per-epoch metrics are recorded in a small SQLite
// database so experiments can be compared later with `refbot history`.
// Everything here is best-effort: a broken or missing database must never
// fail a training run.
// ===========================================================================

// RunLog records training runs in a SQLite database.
type RunLog struct {
	db *sql.DB
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID        int64
	Task      string
	Optimizer string
	Epochs    int
	BatchSize int
	StartedAt time.Time
	FinalLoss float64
	FinalAcc  float64
	Finished  bool
}

// OpenRunLog opens (and if needed creates) the run database.
func OpenRunLog(path string) (*RunLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: opening database: %w", err)
	}

	rl := &RunLog{db: db}
	if err := rl.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: initializing schema: %w", err)
	}

	return rl, nil
}

// initSchema creates the tables.
func (rl *RunLog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task TEXT NOT NULL,
		optimizer TEXT NOT NULL,
		epochs INTEGER NOT NULL,
		batch_size INTEGER NOT NULL,
		learning_rate REAL NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		final_loss REAL,
		final_accuracy REAL
	);
	CREATE TABLE IF NOT EXISTS epochs (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		epoch INTEGER NOT NULL,
		train_loss REAL NOT NULL,
		val_loss REAL NOT NULL,
		val_accuracy REAL NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		PRIMARY KEY (run_id, epoch)
	);
	`
	_, err := rl.db.Exec(schema)
	return err
}

// Close closes the database.
func (rl *RunLog) Close() error { return rl.db.Close() }

// BeginRun inserts a new run row and returns its id.
func (rl *RunLog) BeginRun(task string, config TrainingConfig) (int64, error) {
	res, err := rl.db.Exec(
		`INSERT INTO runs (task, optimizer, epochs, batch_size, learning_rate) VALUES (?, ?, ?, ?, ?)`,
		task, config.Optimizer, config.NumEpochs, config.BatchSize, config.LearningRate,
	)
	if err != nil {
		return 0, fmt.Errorf("runlog: inserting run: %w", err)
	}
	return res.LastInsertId()
}

// LogEpoch records one epoch of a run.
func (rl *RunLog) LogEpoch(runID int64, stats EpochStats) error {
	_, err := rl.db.Exec(
		`INSERT OR REPLACE INTO epochs (run_id, epoch, train_loss, val_loss, val_accuracy, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stats.Epoch, stats.TrainLoss, stats.ValLoss, stats.ValAccuracy,
		stats.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("runlog: inserting epoch: %w", err)
	}
	return nil
}

// FinishRun marks a run complete with its final metrics.
func (rl *RunLog) FinishRun(runID int64, finalLoss, finalAcc float64) error {
	_, err := rl.db.Exec(
		`UPDATE runs SET finished_at = CURRENT_TIMESTAMP, final_loss = ?, final_accuracy = ? WHERE id = ?`,
		finalLoss, finalAcc, runID,
	)
	if err != nil {
		return fmt.Errorf("runlog: finishing run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (rl *RunLog) Recent(limit int) ([]RunRecord, error) {
	rows, err := rl.db.Query(
		`SELECT id, task, optimizer, epochs, batch_size, started_at,
		        COALESCE(final_loss, 0), COALESCE(final_accuracy, 0),
		        finished_at IS NOT NULL
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: querying runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Task, &r.Optimizer, &r.Epochs, &r.BatchSize,
			&r.StartedAt, &r.FinalLoss, &r.FinalAcc, &r.Finished); err != nil {
			return nil, fmt.Errorf("runlog: scanning run: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
