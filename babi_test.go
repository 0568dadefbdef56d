package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleTask = `1 Mary moved to the bathroom.
2 John went to the hallway.
3 Where is Mary? 	bathroom	1
4 Daniel went back to the hallway.
5 Sandra moved to the garden.
6 Where is Daniel? 	hallway	4
1 Sandra travelled to the office.
2 Where is Sandra? 	office	1
`

// TestTokenize checks that punctuation comes out as separate tokens.
func TestTokenize(t *testing.T) {
	got := Tokenize("Bob dropped the apple. Where is the apple?")
	want := []string{"Bob", "dropped", "the", "apple", ".", "Where", "is", "the", "apple", "?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize: expected %v, got %v", want, got)
	}

	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\"): expected no tokens, got %v", got)
	}
}

// TestParseStories checks story segmentation, question extraction and the
// line-number reset.
func TestParseStories(t *testing.T) {
	parsed, err := ParseStories(strings.NewReader(sampleTask), false)
	if err != nil {
		t.Fatalf("ParseStories: %v", err)
	}

	if len(parsed) != 3 {
		t.Fatalf("expected 3 examples, got %d", len(parsed))
	}

	// First question sees sentences 1-2.
	if len(parsed[0].story) != 2 {
		t.Errorf("example 0: expected 2 story sentences, got %d", len(parsed[0].story))
	}
	if !reflect.DeepEqual(parsed[0].question, []string{"Where", "is", "Mary", "?"}) {
		t.Errorf("example 0: unexpected question %v", parsed[0].question)
	}
	if parsed[0].answer != "bathroom" {
		t.Errorf("example 0: expected answer bathroom, got %q", parsed[0].answer)
	}

	// Second question sees sentences 1-2 and 4-5; the answered question at
	// line 3 leaves an empty placeholder that must be skipped.
	if len(parsed[1].story) != 4 {
		t.Errorf("example 1: expected 4 story sentences, got %d", len(parsed[1].story))
	}

	// Line number 1 resets the story.
	if len(parsed[2].story) != 1 {
		t.Errorf("example 2: expected 1 story sentence, got %d", len(parsed[2].story))
	}
	if parsed[2].answer != "office" {
		t.Errorf("example 2: expected answer office, got %q", parsed[2].answer)
	}
}

// TestParseStoriesOnlySupporting checks the supporting-fact filter.
func TestParseStoriesOnlySupporting(t *testing.T) {
	parsed, err := ParseStories(strings.NewReader(sampleTask), true)
	if err != nil {
		t.Fatalf("ParseStories: %v", err)
	}

	// Second question's only supporting fact is line 4.
	if len(parsed[1].story) != 1 {
		t.Fatalf("expected 1 supporting sentence, got %d", len(parsed[1].story))
	}
	want := []string{"Daniel", "went", "back", "to", "the", "hallway", "."}
	if !reflect.DeepEqual(parsed[1].story[0], want) {
		t.Errorf("expected %v, got %v", want, parsed[1].story[0])
	}
}

// TestReadStories checks flattening and the max-length filter.
func TestReadStories(t *testing.T) {
	examples, err := ReadStories(strings.NewReader(sampleTask), false, 0)
	if err != nil {
		t.Fatalf("ReadStories: %v", err)
	}
	if len(examples) != 3 {
		t.Fatalf("expected 3 examples, got %d", len(examples))
	}

	// Example 0 story flattens to 2 sentences of 6 tokens each.
	if len(examples[0].Story) != 12 {
		t.Errorf("expected 12 story tokens, got %d: %v", len(examples[0].Story), examples[0].Story)
	}

	// With maxLength 10 only the short third story survives.
	short, err := ReadStories(strings.NewReader(sampleTask), false, 10)
	if err != nil {
		t.Fatalf("ReadStories: %v", err)
	}
	if len(short) != 1 {
		t.Fatalf("expected 1 example under max length, got %d", len(short))
	}
	if short[0].Answer != "office" {
		t.Errorf("expected the office example to survive, got %q", short[0].Answer)
	}
}

// TestParseStoriesMalformed checks that bad input is an error, not a panic.
func TestParseStoriesMalformed(t *testing.T) {
	cases := []string{
		"no-line-number here",
		"x Mary moved.",
		"1 Where is Mary? 	bathroom",
	}
	for _, input := range cases {
		if _, err := ParseStories(strings.NewReader(input), false); err == nil {
			t.Errorf("input %q: expected error, got nil", input)
		}
	}
}

// TestOpenTask extracts a split from a synthetic tar.gz archive.
func TestOpenTask(t *testing.T) {
	archive := filepath.Join(t.TempDir(), DatasetArchive)
	writeTestArchive(t, archive, map[string]string{
		fmt.Sprintf(Tasks["qa1"], "train"): sampleTask,
	})

	examples, err := OpenTask(archive, "qa1", "train", false, 0)
	if err != nil {
		t.Fatalf("OpenTask: %v", err)
	}
	if len(examples) != 3 {
		t.Errorf("expected 3 examples, got %d", len(examples))
	}

	if _, err := OpenTask(archive, "qa1", "test", false, 0); err == nil {
		t.Error("expected error for missing member, got nil")
	}
	if _, err := OpenTask(archive, "qa99", "train", false, 0); err == nil {
		t.Error("expected error for unknown task, got nil")
	}
}

// writeTestArchive creates a tar.gz with the given members.
func writeTestArchive(t *testing.T, path string, members map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating archive: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, content := range members {
		if err := tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}); err != nil {
			t.Fatalf("writing header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing member: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
}
