package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PathsConfig locates the dataset and model artifacts.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir"`
	ModelPath string `yaml:"model"`
	VocabPath string `yaml:"vocab"`
	RunLog    string `yaml:"run_log"`
}

// TrainSection mirrors TrainingConfig in the YAML file.
type TrainSection struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Optimizer    string  `yaml:"optimizer"`
	GradientClip float64 `yaml:"gradient_clip"`
}

// DemoSection configures the interactive demo.
type DemoSection struct {
	StoryIndex int `yaml:"story_index"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Task  string       `yaml:"task"`
	Paths PathsConfig  `yaml:"paths"`
	Train TrainSection `yaml:"train"`
	Demo  DemoSection  `yaml:"demo"`
}

// DefaultConfigPath is used unless REFBOT_CONFIG points elsewhere.
const DefaultConfigPath = "refbot.yaml"

// LoadConfig reads the config from path. A missing file yields defaults;
// a malformed file is an error.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefaultConfig resolves the config path from REFBOT_CONFIG and loads it.
func LoadDefaultConfig() (*AppConfig, error) {
	path := os.Getenv("REFBOT_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadConfig(path)
}

// TrainingConfig converts the train section into the trainer's config.
func (c *AppConfig) TrainingConfig() TrainingConfig {
	tc := DefaultTrainingConfig()
	tc.NumEpochs = c.Train.Epochs
	tc.BatchSize = c.Train.BatchSize
	tc.LearningRate = c.Train.LearningRate
	tc.Optimizer = c.Train.Optimizer
	tc.GradientClipValue = c.Train.GradientClip
	return tc
}

func defaultConfig() *AppConfig {
	tc := DefaultTrainingConfig()
	return &AppConfig{
		Task: "qa1",
		Paths: PathsConfig{
			DataDir:   "data",
			ModelPath: "refbot_model.bin",
			VocabPath: "refbot_vocab.json",
			RunLog:    "refbot_runs.db",
		},
		Train: TrainSection{
			Epochs:       tc.NumEpochs,
			BatchSize:    tc.BatchSize,
			LearningRate: tc.LearningRate,
			Optimizer:    tc.Optimizer,
			GradientClip: tc.GradientClipValue,
		},
		Demo: DemoSection{StoryIndex: 10},
	}
}

// applyConfigDefaults backfills zero values after a partial YAML file.
func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Task == "" {
		cfg.Task = def.Task
	}
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = def.Paths.DataDir
	}
	if cfg.Paths.ModelPath == "" {
		cfg.Paths.ModelPath = def.Paths.ModelPath
	}
	if cfg.Paths.VocabPath == "" {
		cfg.Paths.VocabPath = def.Paths.VocabPath
	}
	if cfg.Paths.RunLog == "" {
		cfg.Paths.RunLog = def.Paths.RunLog
	}
	if cfg.Train.Epochs == 0 {
		cfg.Train.Epochs = def.Train.Epochs
	}
	if cfg.Train.BatchSize == 0 {
		cfg.Train.BatchSize = def.Train.BatchSize
	}
	if cfg.Train.LearningRate == 0 {
		cfg.Train.LearningRate = def.Train.LearningRate
	}
	if cfg.Train.Optimizer == "" {
		cfg.Train.Optimizer = def.Train.Optimizer
	}
	if cfg.Train.GradientClip == 0 {
		cfg.Train.GradientClip = def.Train.GradientClip
	}
}
