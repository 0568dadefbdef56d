package main

import (
	"flag"
	"fmt"
)

// RunTrainCommand implements the training CLI: fetch the dataset, build
// the vocabulary, vectorize, train, save model and vocabulary, and record
// the run.
func RunTrainCommand(args []string) error {
	cfg, err := LoadDefaultConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("train", flag.ExitOnError)

	// Dataset
	task := fs.String("task", cfg.Task, "bAbI task to train on (qa1, qa2)")
	dataDir := fs.String("data", cfg.Paths.DataDir, "Directory for the bAbI archive")
	onlySupporting := fs.Bool("only-supporting", false, "Keep only supporting facts in each story")
	maxLength := fs.Int("max-length", 0, "Discard stories longer than this many tokens (0 = keep all)")

	// Training hyperparameters
	epochs := fs.Int("epochs", cfg.Train.Epochs, "Number of training epochs")
	batchSize := fs.Int("batch", cfg.Train.BatchSize, "Batch size")
	lr := fs.Float64("lr", cfg.Train.LearningRate, "Learning rate")
	optimizer := fs.String("optimizer", cfg.Train.Optimizer, "Optimizer: rmsprop, adam, sgd")

	// Output
	modelPath := fs.String("model", cfg.Paths.ModelPath, "Output model path")
	vocabPath := fs.String("vocab", cfg.Paths.VocabPath, "Output vocabulary path")
	runLogPath := fs.String("runlog", cfg.Paths.RunLog, "Run log database path (empty to disable)")

	// Compute
	singleThreaded := fs.Bool("single-threaded", false, "Disable parallel matmul")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *singleThreaded {
		SetGlobalComputeConfig(SingleThreadedConfig())
	}

	fmt.Println("\t --------------------- Refbot --------------------- \t")
	fmt.Println()
	fmt.Printf("CPU: %s\n", DescribeCPU())
	fmt.Println()

	// Step 1: dataset
	fmt.Printf("Step 1: Fetching bAbI dataset (task %s)\n", *task)
	archive, err := FetchDataset(*dataDir)
	if err != nil {
		return err
	}
	trainStories, err := OpenTask(archive, *task, "train", *onlySupporting, *maxLength)
	if err != nil {
		return err
	}
	testStories, err := OpenTask(archive, *task, "test", *onlySupporting, *maxLength)
	if err != nil {
		return err
	}
	fmt.Printf("  %d training stories, %d test stories\n", len(trainStories), len(testStories))
	fmt.Println()

	// Step 2: vocabulary
	fmt.Println("Step 2: Building vocabulary")
	vocab := BuildVocab(trainStories, testStories)
	fmt.Printf("  Vocab size: %d unique words (+1 reserved)\n", vocab.Size()-1)
	fmt.Printf("  Story max length: %d words\n", vocab.StoryMaxLen())
	fmt.Printf("  Query max length: %d words\n", vocab.QueryMaxLen())
	fmt.Println()

	// Step 3: vectorization
	fmt.Println("Step 3: Vectorizing the word sequences")
	trainData, err := vocab.Vectorize(trainStories)
	if err != nil {
		return err
	}
	testData, err := vocab.Vectorize(testStories)
	if err != nil {
		return err
	}
	fmt.Println()

	// Step 4: model
	fmt.Println("Step 4: Initializing memory network")
	model := NewMemoryNetwork(DefaultMemNetConfig(vocab.Size(), vocab.StoryMaxLen(), vocab.QueryMaxLen()))
	fmt.Printf("  Total parameters: %d\n", countParameters(model.Parameters()))
	fmt.Println()

	// Run log (best-effort)
	trainConfig := cfg.TrainingConfig()
	trainConfig.NumEpochs = *epochs
	trainConfig.BatchSize = *batchSize
	trainConfig.LearningRate = *lr
	trainConfig.Optimizer = *optimizer

	var runLog *RunLog
	var runID int64
	if *runLogPath != "" {
		runLog, err = OpenRunLog(*runLogPath)
		if err != nil {
			fmt.Printf("Warning: run log unavailable: %v\n", err)
		} else {
			defer runLog.Close()
			runID, err = runLog.BeginRun(*task, trainConfig)
			if err != nil {
				fmt.Printf("Warning: run log unavailable: %v\n", err)
				runLog.Close()
				runLog = nil
			}
		}
	}

	// Step 5: train
	fmt.Println("Step 5: Training")
	observer := func(stats EpochStats) {
		if runLog != nil {
			if err := runLog.LogEpoch(runID, stats); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}
	}
	if err := Train(model, trainData, testData, trainConfig, observer); err != nil {
		return err
	}

	finalLoss, finalAcc := Evaluate(model, testData)
	fmt.Printf("Final test loss: %.4f | accuracy: %.2f%%\n", finalLoss, 100*finalAcc)
	if runLog != nil {
		if err := runLog.FinishRun(runID, finalLoss, finalAcc); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}
	fmt.Println()

	// Step 6: save artifacts
	fmt.Println("Step 6: Saving model and vocabulary")
	if err := model.Save(*modelPath); err != nil {
		return err
	}
	if err := vocab.Save(*vocabPath); err != nil {
		return err
	}
	fmt.Printf("  Model saved to: %s\n", *modelPath)
	fmt.Printf("  Vocabulary saved to: %s\n", *vocabPath)
	fmt.Println()
	fmt.Println("Try:")
	fmt.Printf("  refbot ask -model=%s -vocab=%s\n", *modelPath, *vocabPath)
	fmt.Println()

	return nil
}

// countParameters counts total elements across parameter tensors.
func countParameters(params []*Tensor) int {
	total := 0
	for _, p := range params {
		total += p.Size()
	}
	return total
}

// RunHistoryCommand lists recent training runs from the run log.
func RunHistoryCommand(args []string) error {
	cfg, err := LoadDefaultConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("history", flag.ExitOnError)
	runLogPath := fs.String("runlog", cfg.Paths.RunLog, "Run log database path")
	limit := fs.Int("n", 10, "Number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runLog, err := OpenRunLog(*runLogPath)
	if err != nil {
		return err
	}
	defer runLog.Close()

	runs, err := runLog.Recent(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No training runs recorded yet.")
		return nil
	}

	fmt.Printf("%-4s %-6s %-9s %-7s %-6s %-20s %-10s %-9s\n",
		"ID", "TASK", "OPTIMIZER", "EPOCHS", "BATCH", "STARTED", "LOSS", "ACCURACY")
	for _, r := range runs {
		status := "-"
		acc := "-"
		if r.Finished {
			status = fmt.Sprintf("%.4f", r.FinalLoss)
			acc = fmt.Sprintf("%.2f%%", 100*r.FinalAcc)
		}
		fmt.Printf("%-4d %-6s %-9s %-7d %-6d %-20s %-10s %-9s\n",
			r.ID, r.Task, r.Optimizer, r.Epochs, r.BatchSize,
			r.StartedAt.Format("2006-01-02 15:04:05"), status, acc)
	}

	return nil
}
