package main

import (
	"path/filepath"
	"reflect"
	"testing"
)

func testExamples() []Example {
	return []Example{
		{
			Story:    []string{"Mary", "moved", "to", "the", "bathroom", "."},
			Question: []string{"Where", "is", "Mary", "?"},
			Answer:   "bathroom",
		},
		{
			Story:    []string{"John", "went", "to", "the", "hallway", ".", "Mary", "journeyed", "there", "."},
			Question: []string{"Where", "is", "John", "?"},
			Answer:   "hallway",
		},
	}
}

// TestBuildVocab checks sorting, the reserved padding index, and the
// recorded sequence lengths.
func TestBuildVocab(t *testing.T) {
	vocab := BuildVocab(testExamples())

	// 0 is reserved, so size is unique words + 1.
	unique := map[string]bool{}
	for _, ex := range testExamples() {
		for _, w := range ex.Story {
			unique[w] = true
		}
		for _, w := range ex.Question {
			unique[w] = true
		}
		unique[ex.Answer] = true
	}
	if vocab.Size() != len(unique)+1 {
		t.Errorf("expected size %d, got %d", len(unique)+1, vocab.Size())
	}

	if vocab.StoryMaxLen() != 10 {
		t.Errorf("expected story max len 10, got %d", vocab.StoryMaxLen())
	}
	if vocab.QueryMaxLen() != 4 {
		t.Errorf("expected query max len 4, got %d", vocab.QueryMaxLen())
	}

	// Indices follow sorted word order, starting at 1.
	if idx := vocab.Index("."); idx != 1 {
		t.Errorf("expected \".\" at index 1 (sorts first), got %d", idx)
	}
	if vocab.Index("no-such-word") != 0 {
		t.Errorf("unknown word should map to 0")
	}
	if vocab.Word(0) != "" {
		t.Errorf("index 0 must never be a real token, got %q", vocab.Word(0))
	}

	// Word and Index are inverses for real tokens.
	for w := range unique {
		if got := vocab.Word(vocab.Index(w)); got != w {
			t.Errorf("roundtrip %q -> %d -> %q", w, vocab.Index(w), got)
		}
	}
}

// TestPadPre checks left-padding and front-truncation.
func TestPadPre(t *testing.T) {
	if got := PadPre([]int{1, 2}, 4); !reflect.DeepEqual(got, []int{0, 0, 1, 2}) {
		t.Errorf("pad: expected [0 0 1 2], got %v", got)
	}
	if got := PadPre([]int{1, 2, 3, 4, 5}, 3); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("truncate: expected [3 4 5], got %v", got)
	}
	if got := PadPre(nil, 2); !reflect.DeepEqual(got, []int{0, 0}) {
		t.Errorf("empty: expected [0 0], got %v", got)
	}
}

// TestVectorize checks shapes, padding position and answer indices.
func TestVectorize(t *testing.T) {
	examples := testExamples()
	vocab := BuildVocab(examples)

	samples, err := vocab.Vectorize(examples)
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}

	for i, s := range samples {
		if len(s.Story) != vocab.StoryMaxLen() {
			t.Errorf("sample %d: story length %d, want %d", i, len(s.Story), vocab.StoryMaxLen())
		}
		if len(s.Question) != vocab.QueryMaxLen() {
			t.Errorf("sample %d: question length %d, want %d", i, len(s.Question), vocab.QueryMaxLen())
		}
		if s.Answer <= 0 || s.Answer >= vocab.Size() {
			t.Errorf("sample %d: answer index %d out of range", i, s.Answer)
		}
	}

	// First story has 6 tokens, so the first 4 positions are padding.
	for j := 0; j < 4; j++ {
		if samples[0].Story[j] != 0 {
			t.Errorf("expected padding at story position %d, got %d", j, samples[0].Story[j])
		}
	}
	if samples[0].Story[4] == 0 {
		t.Error("expected a real token at story position 4")
	}

	if samples[0].Answer != vocab.Index("bathroom") {
		t.Errorf("expected answer index %d, got %d", vocab.Index("bathroom"), samples[0].Answer)
	}

	// Out-of-vocabulary input is an error.
	if _, err := vocab.Vectorize([]Example{{
		Story:    []string{"Zorblax"},
		Question: []string{"Where"},
		Answer:   "bathroom",
	}}); err == nil {
		t.Error("expected error for unknown story word")
	}
}

// TestVectorizeQuery checks demo-time question vectorization.
func TestVectorizeQuery(t *testing.T) {
	vocab := BuildVocab(testExamples())

	ids, err := vocab.VectorizeQuery("Where is Mary?")
	if err != nil {
		t.Fatalf("VectorizeQuery: %v", err)
	}
	if len(ids) != vocab.QueryMaxLen() {
		t.Errorf("expected length %d, got %d", vocab.QueryMaxLen(), len(ids))
	}

	if _, err := vocab.VectorizeQuery("Where is Zorblax?"); err == nil {
		t.Error("expected error for unknown word")
	}
}

// TestVocabSaveLoad checks the JSON roundtrip.
func TestVocabSaveLoad(t *testing.T) {
	vocab := BuildVocab(testExamples())

	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := vocab.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadVocab(path)
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}

	if loaded.Size() != vocab.Size() {
		t.Errorf("size: expected %d, got %d", vocab.Size(), loaded.Size())
	}
	if loaded.StoryMaxLen() != vocab.StoryMaxLen() || loaded.QueryMaxLen() != vocab.QueryMaxLen() {
		t.Errorf("lengths changed across roundtrip")
	}
	if loaded.Index("bathroom") != vocab.Index("bathroom") {
		t.Errorf("index mapping changed across roundtrip")
	}
}
