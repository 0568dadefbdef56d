package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local overrides (config path, data dir).
	_ = godotenv.Load()

	rand.Seed(time.Now().UnixNano())

	if len(os.Args) > 1 {
		cmd := os.Args[1]
		switch cmd {
		case "train":
			if err := RunTrainCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "eval":
			if err := RunEvalCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "ask":
			if err := RunAskCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "history":
			if err := RunHistoryCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
	}

	printUsage()
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  refbot [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train       Train a memory network on a bAbI QA task")
	fmt.Println("  eval        Evaluate a saved model on the test split")
	fmt.Println("  ask         Interactive demo: ask questions about a test story")
	fmt.Println("  history     Show past training runs")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  refbot train -task=qa1 -epochs=120 -model=refbot_model.bin")
	fmt.Println("  refbot eval -model=refbot_model.bin -vocab=refbot_vocab.json")
	fmt.Println("  refbot ask -model=refbot_model.bin -vocab=refbot_vocab.json")
	fmt.Println("  refbot ask -model=refbot_model.bin -vocab=refbot_vocab.json -tui")
	fmt.Println()
}
