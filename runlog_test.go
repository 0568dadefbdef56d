package main

import (
	"path/filepath"
	"testing"
	"time"
)

// TestRunLogRoundtrip exercises the full run lifecycle.
func TestRunLogRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	rl, err := OpenRunLog(path)
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	defer rl.Close()

	config := DefaultTrainingConfig()
	config.NumEpochs = 2

	runID, err := rl.BeginRun("qa1", config)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	for epoch := 1; epoch <= 2; epoch++ {
		err := rl.LogEpoch(runID, EpochStats{
			Epoch:       epoch,
			TrainLoss:   1.0 / float64(epoch),
			ValLoss:     1.2 / float64(epoch),
			ValAccuracy: 0.4 * float64(epoch),
			Elapsed:     3 * time.Second,
		})
		if err != nil {
			t.Fatalf("LogEpoch %d: %v", epoch, err)
		}
	}

	if err := rl.FinishRun(runID, 0.6, 0.8); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := rl.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	r := runs[0]
	if r.ID != runID {
		t.Errorf("expected run id %d, got %d", runID, r.ID)
	}
	if r.Task != "qa1" || r.Optimizer != "rmsprop" || r.Epochs != 2 {
		t.Errorf("run metadata wrong: %+v", r)
	}
	if !r.Finished {
		t.Error("run should be marked finished")
	}
	if r.FinalLoss != 0.6 || r.FinalAcc != 0.8 {
		t.Errorf("final metrics wrong: loss %g, acc %g", r.FinalLoss, r.FinalAcc)
	}
}

// TestRunLogUnfinished checks that in-flight runs show up without final
// metrics.
func TestRunLogUnfinished(t *testing.T) {
	rl, err := OpenRunLog(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	defer rl.Close()

	if _, err := rl.BeginRun("qa2", DefaultTrainingConfig()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	runs, err := rl.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Finished {
		t.Error("run should not be marked finished")
	}
}

// TestRunLogOrdering checks newest-first ordering and the limit.
func TestRunLogOrdering(t *testing.T) {
	rl, err := OpenRunLog(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	defer rl.Close()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := rl.BeginRun("qa1", DefaultTrainingConfig())
		if err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := rl.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("expected newest-first [%d %d], got [%d %d]", ids[2], ids[1], runs[0].ID, runs[1].ID)
	}
}
