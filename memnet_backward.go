package main

import (
	"math/rand"
)

// ===========================================================================
// BACKWARD PASS
// ===========================================================================
//
// Gradient flow, reverse of the forward graph in memnet.go:
//
//   dlogits → dense (W, b) → dropout → LSTM BPTT → split [response | U]
//          → transpose → add node (attention P and values Co branches)
//          → row-softmax backward → attention matmuls (M, U branches)
//          → dropout masks → embedding scatter-adds (A, C, B)
//
// The add node duplicates its gradient into both branches; the U gradient
// accumulates from two paths (the concatenation and the attention scores).
// Dropout uses inverted scaling, so eval-time forward needs no correction
// and backward is a plain mask multiply.
// ===========================================================================

// MemNetCache stores activations of one forward pass for Backward.
type MemNetCache struct {
	story []int
	query []int

	m  *Tensor // (S, D) memory keys, post-dropout
	co *Tensor // (S, Q) memory values, post-dropout
	u  *Tensor // (Q, D) query encoding, post-dropout

	maskM []float64 // dropout multipliers, nil when not training
	maskC []float64
	maskU []float64

	p *Tensor // (S, Q) attention weights after softmax

	lstmCache *LSTMCache

	hDrop []float64 // LSTM final hidden after dropout
	maskH []float64
}

// dropoutMask returns inverted-dropout multipliers: 0 with probability p,
// 1/(1-p) otherwise.
func dropoutMask(n int, p float64) []float64 {
	mask := make([]float64, n)
	keep := 1.0 - p
	for i := range mask {
		if rand.Float64() < keep {
			mask[i] = 1.0 / keep
		}
	}
	return mask
}

func applyMask(data, mask []float64) {
	for i := range data {
		data[i] *= mask[i]
	}
}

// forward is the shared forward pass. With train set, dropout is applied
// and all activations are cached.
func (m *MemoryNetwork) forward(story, query []int, train bool) ([]float64, *MemNetCache) {
	m.checkInput(story, query)

	cfg := m.config

	mem := embedRows(m.embedA, story)  // (S, D)
	co := embedRows(m.embedC, story)   // (S, Q)
	u := embedRows(m.embedB, query)    // (Q, D)

	cache := &MemNetCache{story: story, query: query}

	if train && cfg.Dropout > 0 {
		cache.maskM = dropoutMask(mem.Size(), cfg.Dropout)
		cache.maskC = dropoutMask(co.Size(), cfg.Dropout)
		cache.maskU = dropoutMask(u.Size(), cfg.Dropout)
		applyMask(mem.data, cache.maskM)
		applyMask(co.data, cache.maskC)
		applyMask(u.data, cache.maskU)
	}

	// Dot-product attention between story memories and question encoding.
	match := MatMul(mem, Transpose(u)) // (S, Q)
	p := Softmax(match)

	// Response: attention plus memory values, transposed to query-major.
	response := Transpose(Add(p, co)) // (Q, S)

	// Concatenate response and question encoding along features.
	z := NewTensor(cfg.QueryLen, cfg.StoryLen+cfg.EmbedDim)
	zw := cfg.StoryLen + cfg.EmbedDim
	for i := 0; i < cfg.QueryLen; i++ {
		copy(z.data[i*zw:i*zw+cfg.StoryLen], response.data[i*cfg.StoryLen:(i+1)*cfg.StoryLen])
		copy(z.data[i*zw+cfg.StoryLen:(i+1)*zw], u.data[i*cfg.EmbedDim:(i+1)*cfg.EmbedDim])
	}

	h, lstmCache := m.lstm.ForwardWithCache(z)

	if train && cfg.Dropout > 0 {
		cache.maskH = dropoutMask(len(h), cfg.Dropout)
		applyMask(h, cache.maskH)
	}

	// Output projection to vocabulary logits.
	logits := make([]float64, cfg.VocabSize)
	copy(logits, m.bOut.data)
	for k, hv := range h {
		row := m.wOut.data[k*cfg.VocabSize : (k+1)*cfg.VocabSize]
		for v := range logits {
			logits[v] += hv * row[v]
		}
	}

	cache.m, cache.co, cache.u = mem, co, u
	cache.p = p
	cache.lstmCache = lstmCache
	cache.hDrop = h

	return logits, cache
}

// ForwardWithCache performs a training-mode forward pass (dropout active)
// and returns the logits together with the cache needed by Backward.
func (m *MemoryNetwork) ForwardWithCache(story, query []int) ([]float64, *MemNetCache) {
	return m.forward(story, query, true)
}

// Backward accumulates parameter gradients for one example given the
// gradient of the loss w.r.t. the logits.
func (m *MemoryNetwork) Backward(dlogits []float64, cache *MemNetCache) {
	cfg := m.config
	S, Q, D, H := cfg.StoryLen, cfg.QueryLen, cfg.EmbedDim, cfg.LSTMHidden

	// Dense layer: logits = hDrop · W + b
	dh := make([]float64, H)
	for k := 0; k < H; k++ {
		wRow := m.wOut.data[k*cfg.VocabSize : (k+1)*cfg.VocabSize]
		gRow := m.wOut.grad[k*cfg.VocabSize : (k+1)*cfg.VocabSize]
		hv := cache.hDrop[k]
		sum := 0.0
		for v, dl := range dlogits {
			gRow[v] += hv * dl
			sum += wRow[v] * dl
		}
		dh[k] = sum
	}
	for v, dl := range dlogits {
		m.bOut.grad[v] += dl
	}

	if cache.maskH != nil {
		applyMask(dh, cache.maskH)
	}

	// LSTM reduction
	dz := m.lstm.Backward(dh, cache.lstmCache) // (Q, S+D)

	// Split the concatenation: response block and question block.
	dResponse := NewTensor(Q, S)
	dU := NewTensor(Q, D)
	zw := S + D
	for i := 0; i < Q; i++ {
		copy(dResponse.data[i*S:(i+1)*S], dz.data[i*zw:i*zw+S])
		copy(dU.data[i*D:(i+1)*D], dz.data[i*zw+S:(i+1)*zw])
	}

	// Undo the transpose: gradients for P and Co are both (S, Q).
	dR := Transpose(dResponse) // (S, Q)

	// Values branch: Co receives dR directly.
	dCo := dR.Clone()
	if cache.maskC != nil {
		applyMask(dCo.data, cache.maskC)
	}
	for i, id := range cache.story {
		row := m.embedC.grad[id*Q : (id+1)*Q]
		src := dCo.data[i*Q : (i+1)*Q]
		for j := range row {
			row[j] += src[j]
		}
	}

	// Attention branch: row-softmax backward.
	// dScores[i,j] = P[i,j] * (dP[i,j] - Σ_k dP[i,k]·P[i,k])
	dScores := NewTensor(S, Q)
	for i := 0; i < S; i++ {
		pRow := cache.p.data[i*Q : (i+1)*Q]
		dpRow := dR.data[i*Q : (i+1)*Q]
		dot := 0.0
		for j := 0; j < Q; j++ {
			dot += dpRow[j] * pRow[j]
		}
		out := dScores.data[i*Q : (i+1)*Q]
		for j := 0; j < Q; j++ {
			out[j] = pRow[j] * (dpRow[j] - dot)
		}
	}

	// match = M · Uᵀ
	dM := MatMul(dScores, cache.u)                      // (S, D)
	dUAtt := MatMul(Transpose(dScores), cache.m)        // (Q, D)
	for i := range dU.data {
		dU.data[i] += dUAtt.data[i]
	}

	if cache.maskM != nil {
		applyMask(dM.data, cache.maskM)
	}
	if cache.maskU != nil {
		applyMask(dU.data, cache.maskU)
	}

	// Embedding scatter-adds. Repeated token ids accumulate.
	for i, id := range cache.story {
		row := m.embedA.grad[id*D : (id+1)*D]
		src := dM.data[i*D : (i+1)*D]
		for j := range row {
			row[j] += src[j]
		}
	}
	for i, id := range cache.query {
		row := m.embedB.grad[id*D : (id+1)*D]
		src := dU.data[i*D : (i+1)*D]
		for j := range row {
			row[j] += src[j]
		}
	}
}
