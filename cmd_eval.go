package main

import (
	"flag"
	"fmt"
)

// RunEvalCommand evaluates a saved model on the test split of a task.
func RunEvalCommand(args []string) error {
	cfg, err := LoadDefaultConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	task := fs.String("task", cfg.Task, "bAbI task to evaluate on (qa1, qa2)")
	dataDir := fs.String("data", cfg.Paths.DataDir, "Directory for the bAbI archive")
	modelPath := fs.String("model", cfg.Paths.ModelPath, "Saved model path")
	vocabPath := fs.String("vocab", cfg.Paths.VocabPath, "Saved vocabulary path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	model, vocab, err := loadArtifacts(*modelPath, *vocabPath)
	if err != nil {
		return err
	}

	archive, err := FetchDataset(*dataDir)
	if err != nil {
		return err
	}
	testStories, err := OpenTask(archive, *task, "test", false, 0)
	if err != nil {
		return err
	}
	testData, err := vocab.Vectorize(testStories)
	if err != nil {
		return err
	}

	loss, acc := Evaluate(model, testData)
	fmt.Printf("Test examples: %d\n", len(testData))
	fmt.Printf("Test loss:     %.4f\n", loss)
	fmt.Printf("Test accuracy: %.2f%%\n", 100*acc)

	return nil
}

// loadArtifacts loads a model and its vocabulary, checking they agree.
func loadArtifacts(modelPath, vocabPath string) (*MemoryNetwork, *Vocab, error) {
	model, err := LoadMemoryNetwork(modelPath)
	if err != nil {
		return nil, nil, err
	}
	vocab, err := LoadVocab(vocabPath)
	if err != nil {
		return nil, nil, err
	}

	mc := model.Config()
	if mc.VocabSize != vocab.Size() || mc.StoryLen != vocab.StoryMaxLen() || mc.QueryLen != vocab.QueryMaxLen() {
		return nil, nil, fmt.Errorf("model %s and vocabulary %s do not match (vocab %d vs %d, story %d vs %d, query %d vs %d)",
			modelPath, vocabPath, mc.VocabSize, vocab.Size(),
			mc.StoryLen, vocab.StoryMaxLen(), mc.QueryLen, vocab.QueryMaxLen())
	}

	return model, vocab, nil
}
