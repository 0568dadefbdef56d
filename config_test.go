package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigDefaults checks that a missing file yields defaults.
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Task != "qa1" {
		t.Errorf("expected default task qa1, got %q", cfg.Task)
	}
	if cfg.Train.Epochs != 120 || cfg.Train.BatchSize != 32 {
		t.Errorf("unexpected training defaults: %+v", cfg.Train)
	}
	if cfg.Train.Optimizer != "rmsprop" {
		t.Errorf("expected default optimizer rmsprop, got %q", cfg.Train.Optimizer)
	}
	if cfg.Demo.StoryIndex != 10 {
		t.Errorf("expected default story index 10, got %d", cfg.Demo.StoryIndex)
	}
}

// TestLoadConfigPartial checks that omitted fields are backfilled.
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refbot.yaml")
	content := "task: qa2\ntrain:\n  epochs: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Task != "qa2" {
		t.Errorf("expected task qa2, got %q", cfg.Task)
	}
	if cfg.Train.Epochs != 5 {
		t.Errorf("expected 5 epochs, got %d", cfg.Train.Epochs)
	}
	// Everything else falls back to defaults.
	if cfg.Train.BatchSize != 32 {
		t.Errorf("expected backfilled batch size 32, got %d", cfg.Train.BatchSize)
	}
	if cfg.Paths.ModelPath != "refbot_model.bin" {
		t.Errorf("expected backfilled model path, got %q", cfg.Paths.ModelPath)
	}
}

// TestLoadConfigMalformed checks that bad YAML is an error.
func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refbot.yaml")
	if err := os.WriteFile(path, []byte("task: [unclosed"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

// TestTrainingConfigConversion checks the config-to-trainer mapping.
func TestTrainingConfigConversion(t *testing.T) {
	cfg := defaultConfig()
	cfg.Train.Epochs = 7
	cfg.Train.Optimizer = "adam"
	cfg.Train.LearningRate = 0.005

	tc := cfg.TrainingConfig()
	if tc.NumEpochs != 7 || tc.Optimizer != "adam" || tc.LearningRate != 0.005 {
		t.Errorf("conversion wrong: %+v", tc)
	}
	// Optimizer internals keep their defaults.
	if tc.RMSRho != 0.9 || tc.AdamBeta1 != 0.9 {
		t.Errorf("optimizer defaults lost: %+v", tc)
	}
}
