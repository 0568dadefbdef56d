package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ===========================================================================
// VOCABULARY & VECTORIZATION
// ===========================================================================
//
// The model consumes integer token indices, not strings. The vocabulary is
// the sorted set of every token seen across train and test stories,
// questions and answers, with indices assigned from 1.
//
// Index 0 is reserved for padding and is never a real token. Stories and
// questions are left-padded with 0 to fixed lengths so every example has
// the same shape.
// ===========================================================================

// Vocab maps tokens to integer indices and records the fixed sequence
// lengths used for vectorization.
type Vocab struct {
	words       []string
	index       map[string]int
	storyMaxLen int
	queryMaxLen int
}

// BuildVocab collects every token from the given example sets, sorts them,
// and assigns indices starting at 1. Sequence lengths are the maxima over
// all sets, so train and test vectorize to the same shapes.
func BuildVocab(sets ...[]Example) *Vocab {
	seen := make(map[string]bool)
	storyMax, queryMax := 0, 0

	for _, set := range sets {
		for _, ex := range set {
			for _, w := range ex.Story {
				seen[w] = true
			}
			for _, w := range ex.Question {
				seen[w] = true
			}
			seen[ex.Answer] = true

			if len(ex.Story) > storyMax {
				storyMax = len(ex.Story)
			}
			if len(ex.Question) > queryMax {
				queryMax = len(ex.Question)
			}
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	return newVocab(words, storyMax, queryMax)
}

func newVocab(words []string, storyMaxLen, queryMaxLen int) *Vocab {
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i + 1 // index 0 is the padding slot
	}
	return &Vocab{
		words:       words,
		index:       index,
		storyMaxLen: storyMaxLen,
		queryMaxLen: queryMaxLen,
	}
}

// Size returns the vocabulary size including the reserved padding index.
func (v *Vocab) Size() int { return len(v.words) + 1 }

// StoryMaxLen returns the fixed story length in tokens.
func (v *Vocab) StoryMaxLen() int { return v.storyMaxLen }

// QueryMaxLen returns the fixed question length in tokens.
func (v *Vocab) QueryMaxLen() int { return v.queryMaxLen }

// Index returns the index of a token, or 0 if the token is unknown.
func (v *Vocab) Index(word string) int { return v.index[word] }

// Word returns the token for an index, or "" for the padding index and
// out-of-range values.
func (v *Vocab) Word(idx int) string {
	if idx <= 0 || idx > len(v.words) {
		return ""
	}
	return v.words[idx-1]
}

// PadPre left-pads ids with zeros to length maxLen. Sequences that are too
// long keep their last maxLen elements (pre-truncation, matching the
// pre-padding convention).
func PadPre(ids []int, maxLen int) []int {
	out := make([]int, maxLen)
	if len(ids) > maxLen {
		ids = ids[len(ids)-maxLen:]
	}
	copy(out[maxLen-len(ids):], ids)
	return out
}

// lookup converts tokens to indices, failing on tokens outside the
// vocabulary.
func (v *Vocab) lookup(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, w := range tokens {
		idx, ok := v.index[w]
		if !ok {
			return nil, fmt.Errorf("vocab: unknown word %q", w)
		}
		ids[i] = idx
	}
	return ids, nil
}

// QASample is a vectorized example: fixed-length story and question index
// sequences plus the answer's class index.
type QASample struct {
	Story    []int
	Question []int
	Answer   int
}

// Vectorize converts examples to padded index sequences and answer class
// indices.
func (v *Vocab) Vectorize(examples []Example) ([]QASample, error) {
	samples := make([]QASample, 0, len(examples))
	for i, ex := range examples {
		story, err := v.lookup(ex.Story)
		if err != nil {
			return nil, fmt.Errorf("vocab: example %d story: %w", i, err)
		}
		question, err := v.lookup(ex.Question)
		if err != nil {
			return nil, fmt.Errorf("vocab: example %d question: %w", i, err)
		}
		answer, ok := v.index[ex.Answer]
		if !ok {
			return nil, fmt.Errorf("vocab: example %d: unknown answer %q", i, ex.Answer)
		}
		samples = append(samples, QASample{
			Story:    PadPre(story, v.storyMaxLen),
			Question: PadPre(question, v.queryMaxLen),
			Answer:   answer,
		})
	}
	return samples, nil
}

// VectorizeQuery tokenizes and vectorizes a free-form question for the
// interactive demo.
func (v *Vocab) VectorizeQuery(text string) ([]int, error) {
	ids, err := v.lookup(Tokenize(text))
	if err != nil {
		return nil, err
	}
	return PadPre(ids, v.queryMaxLen), nil
}

// VectorizeStory tokenizes and vectorizes free-form story sentences,
// flattened to one padded sequence.
func (v *Vocab) VectorizeStory(sentences []string) ([]int, error) {
	var tokens []string
	for _, sent := range sentences {
		tokens = append(tokens, Tokenize(sent)...)
	}
	ids, err := v.lookup(tokens)
	if err != nil {
		return nil, err
	}
	return PadPre(ids, v.storyMaxLen), nil
}

// vocabFile is the on-disk JSON representation.
type vocabFile struct {
	Words       []string `json:"words"`
	StoryMaxLen int      `json:"story_max_len"`
	QueryMaxLen int      `json:"query_max_len"`
}

// Save writes the vocabulary as JSON.
func (v *Vocab) Save(path string) error {
	data, err := json.MarshalIndent(vocabFile{
		Words:       v.words,
		StoryMaxLen: v.storyMaxLen,
		QueryMaxLen: v.queryMaxLen,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("vocab: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("vocab: writing %s: %w", path, err)
	}
	return nil
}

// LoadVocab reads a vocabulary saved by Save.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: reading %s: %w", path, err)
	}
	var vf vocabFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("vocab: parsing %s: %w", path, err)
	}
	return newVocab(vf.Words, vf.StoryMaxLen, vf.QueryMaxLen), nil
}
