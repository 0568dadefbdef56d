package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ===========================================================================
// END-TO-END MEMORY NETWORK
// ===========================================================================
//
// The model answers a question about a story by attending over the story's
// token embeddings with learned dot-product similarity:
//
//   M  = A[story]                (story_len, embed_dim)   memory keys
//   Co = C[story]                (story_len, query_len)   memory values
//   U  = B[query]                (query_len, embed_dim)   query encoding
//
//   match    = M · Uᵀ            (story_len, query_len)
//   P        = softmax(match)    row-wise attention weights
//   response = (P + Co)ᵀ         (query_len, story_len)
//
//   Z = [response | U]           (query_len, story_len + embed_dim)
//   h = LSTM(Z) final hidden     (lstm_hidden)
//   logits = h · W + b           (vocab_size)
//
// The output is a probability distribution over the vocabulary; the answer
// is the argmax word. Dropout 0.3 is applied to all three embeddings and
// to h during training.
//
// Reference:
// - Sukhbaatar et al., "End-To-End Memory Networks",
//   http://arxiv.org/abs/1503.08895
// ===========================================================================

// MemNetConfig holds the model hyperparameters.
type MemNetConfig struct {
	VocabSize  int     // Vocabulary size including the reserved padding index
	StoryLen   int     // Fixed story length in tokens
	QueryLen   int     // Fixed question length in tokens
	EmbedDim   int     // Embedding dimension for memory keys and the query
	LSTMHidden int     // Hidden size of the LSTM reduction
	Dropout    float64 // Dropout probability during training
}

// DefaultMemNetConfig returns the reference hyperparameters; vocabulary
// size and sequence lengths come from the dataset.
func DefaultMemNetConfig(vocabSize, storyLen, queryLen int) MemNetConfig {
	return MemNetConfig{
		VocabSize:  vocabSize,
		StoryLen:   storyLen,
		QueryLen:   queryLen,
		EmbedDim:   64,
		LSTMHidden: 32,
		Dropout:    0.3,
	}
}

// MemoryNetwork is the trainable model.
type MemoryNetwork struct {
	config MemNetConfig

	embedA *Tensor // (vocab, embed_dim)  story -> memory keys
	embedC *Tensor // (vocab, query_len)  story -> memory values
	embedB *Tensor // (vocab, embed_dim)  question encoding

	lstm *LSTM // input story_len+embed_dim, hidden lstm_hidden

	wOut *Tensor // (lstm_hidden, vocab)
	bOut *Tensor // (vocab)
}

// NewMemoryNetwork creates a model with randomly initialized weights.
func NewMemoryNetwork(config MemNetConfig) *MemoryNetwork {
	if config.VocabSize < 2 {
		panic("memnet: vocab size must include at least one real token")
	}
	return &MemoryNetwork{
		config: config,
		embedA: NewTensorRand(config.VocabSize, config.EmbedDim),
		embedC: NewTensorRand(config.VocabSize, config.QueryLen),
		embedB: NewTensorRand(config.VocabSize, config.EmbedDim),
		lstm:   NewLSTM(config.StoryLen+config.EmbedDim, config.LSTMHidden),
		wOut:   NewTensorRand(config.LSTMHidden, config.VocabSize),
		bOut:   NewTensor(config.VocabSize),
	}
}

// Config returns the model hyperparameters.
func (m *MemoryNetwork) Config() MemNetConfig { return m.config }

// Parameters returns all trainable parameters in serialization order.
func (m *MemoryNetwork) Parameters() []*Tensor {
	params := []*Tensor{m.embedA, m.embedC, m.embedB}
	params = append(params, m.lstm.Parameters()...)
	return append(params, m.wOut, m.bOut)
}

// embedRows gathers embedding rows for a token id sequence.
func embedRows(table *Tensor, ids []int) *Tensor {
	dim := table.shape[1]
	out := NewTensor(len(ids), dim)
	for i, id := range ids {
		copy(out.data[i*dim:(i+1)*dim], table.data[id*dim:(id+1)*dim])
	}
	return out
}

// Forward computes output logits for one vectorized example.
// No dropout is applied; use ForwardWithCache for training.
func (m *MemoryNetwork) Forward(story, query []int) []float64 {
	logits, _ := m.forward(story, query, false)
	return logits
}

// Predict returns the probability distribution over the vocabulary.
func (m *MemoryNetwork) Predict(story, query []int) []float64 {
	return softmaxSlice(m.Forward(story, query))
}

// Answer returns the argmax vocabulary index and its probability.
func (m *MemoryNetwork) Answer(story, query []int) (int, float64) {
	probs := m.Predict(story, query)
	best := argmax(probs)
	return best, probs[best]
}

func (m *MemoryNetwork) checkInput(story, query []int) {
	if len(story) != m.config.StoryLen {
		panic(fmt.Sprintf("memnet: story length %d, want %d", len(story), m.config.StoryLen))
	}
	if len(query) != m.config.QueryLen {
		panic(fmt.Sprintf("memnet: query length %d, want %d", len(query), m.config.QueryLen))
	}
	for _, id := range story {
		if id < 0 || id >= m.config.VocabSize {
			panic(fmt.Sprintf("memnet: story token id %d out of range", id))
		}
	}
	for _, id := range query {
		if id < 0 || id >= m.config.VocabSize {
			panic(fmt.Sprintf("memnet: query token id %d out of range", id))
		}
	}
}

// ===========================================================================
// Model Serialization
// ===========================================================================
//
// Same format as the rest of the tooling expects: a length-prefixed JSON
// config header followed by raw little-endian float64 dumps of every
// parameter tensor, in Parameters() order.
// ===========================================================================

// Save writes the model to a file.
func (m *MemoryNetwork) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("memnet: creating %s: %w", filename, err)
	}
	defer f.Close()

	configJSON, err := json.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("memnet: marshaling config: %w", err)
	}

	headerLen := uint32(len(configJSON))
	if err := binary.Write(f, binary.LittleEndian, headerLen); err != nil {
		return fmt.Errorf("memnet: writing header length: %w", err)
	}
	if _, err := f.Write(configJSON); err != nil {
		return fmt.Errorf("memnet: writing config: %w", err)
	}

	for i, p := range m.Parameters() {
		if err := binary.Write(f, binary.LittleEndian, p.data); err != nil {
			return fmt.Errorf("memnet: writing parameter %d: %w", i, err)
		}
	}

	return nil
}

// LoadMemoryNetwork reads a model saved by Save.
func LoadMemoryNetwork(filename string) (*MemoryNetwork, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("memnet: opening %s: %w", filename, err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("memnet: reading header length: %w", err)
	}

	configJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, configJSON); err != nil {
		return nil, fmt.Errorf("memnet: reading config: %w", err)
	}

	var config MemNetConfig
	if err := json.Unmarshal(configJSON, &config); err != nil {
		return nil, fmt.Errorf("memnet: parsing config: %w", err)
	}

	model := NewMemoryNetwork(config)
	for i, p := range model.Parameters() {
		if err := binary.Read(f, binary.LittleEndian, p.data); err != nil {
			return nil, fmt.Errorf("memnet: reading parameter %d: %w", i, err)
		}
	}

	return model, nil
}
