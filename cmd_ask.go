package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
)

// RunAskCommand implements the interactive demo: load a trained model,
// show a test story, and answer questions about it.
func RunAskCommand(args []string) error {
	cfg, err := LoadDefaultConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	task := fs.String("task", cfg.Task, "bAbI task the model was trained on")
	dataDir := fs.String("data", cfg.Paths.DataDir, "Directory for the bAbI archive")
	modelPath := fs.String("model", cfg.Paths.ModelPath, "Saved model path")
	vocabPath := fs.String("vocab", cfg.Paths.VocabPath, "Saved vocabulary path")
	storyIndex := fs.Int("story", cfg.Demo.StoryIndex, "Index of the test story to ask about")
	useTUI := fs.Bool("tui", false, "Use the full-screen chat interface")
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
	if *storyIndex < 0 || *storyIndex >= len(testStories) {
		return fmt.Errorf("story index %d out of range [0,%d)", *storyIndex, len(testStories))
	}

	session, err := NewAskSession(model, vocab, testStories[*storyIndex])
	if err != nil {
		return err
	}

	if *useTUI {
		return runAskTUI(session)
	}
	return runAskREPL(session)
}

// AskSession holds a loaded model, vocabulary and the selected story,
// ready to answer questions.
type AskSession struct {
	model    *MemoryNetwork
	vocab    *Vocab
	story    Example
	storyIDs []int
}

// NewAskSession vectorizes the story once up front.
func NewAskSession(model *MemoryNetwork, vocab *Vocab, story Example) (*AskSession, error) {
	ids, err := vocab.lookup(story.Story)
	if err != nil {
		return nil, fmt.Errorf("story contains words outside the model vocabulary: %w", err)
	}
	return &AskSession{
		model:    model,
		vocab:    vocab,
		story:    story,
		storyIDs: PadPre(ids, vocab.StoryMaxLen()),
	}, nil
}

// StoryText returns the story as display text.
func (s *AskSession) StoryText() string {
	return strings.Join(s.story.Story, " ")
}

// Ask vectorizes a question and returns the model's answer word with its
// confidence. Unknown words are an error, not a crash.
func (s *AskSession) Ask(question string) (string, float64, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", 0, fmt.Errorf("empty question")
	}

	queryIDs, err := s.vocab.VectorizeQuery(question)
	if err != nil {
		return "", 0, err
	}

	idx, confidence := s.model.Answer(s.storyIDs, queryIDs)
	word := s.vocab.Word(idx)
	if word == "" {
		// The argmax landed on the padding index; nothing sensible to say.
		return "answer not found", confidence, nil
	}
	return word, confidence, nil
}

// runAskREPL is the plain line-oriented demo loop.
func runAskREPL(session *AskSession) error {
	fmt.Println("\t --------------------- Refbot --------------------- \t")
	fmt.Println()
	fmt.Println("------------- Story -------------")
	fmt.Println(session.StoryText())
	fmt.Println("---------------------------------")
	fmt.Println()
	fmt.Println("Ask questions about the story. Type 'q' to exit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("Ask question: ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" || line == "exit" {
			fmt.Println("\t ---- Refbot exited ---- \t")
			return nil
		}

		answer, confidence, err := session.Ask(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println("---------------------")
		fmt.Printf("Answer:     %s\n", answer)
		fmt.Printf("Confidence: %.4f\n", confidence)
		fmt.Println("---------------------")
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}
