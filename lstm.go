package main

import (
	"math"
)

// ===========================================================================
// LSTM LAYER
// ===========================================================================
//
// The memory network reduces the (query_len, story_len + embed_dim)
// response sequence to a single vector with an LSTM, following the
// end-to-end memory network demo architecture (the paper itself uses a
// plain matrix multiplication here).
//
// Cell equations, with fused gate weights and gate order [i, f, g, o]:
//
//   z_t = x_t · Wx + h_{t-1} · Wh + b          (4H)
//   i = σ(z[0:H])   input gate
//   f = σ(z[H:2H])  forget gate
//   g = tanh(z[2H:3H]) candidate
//   o = σ(z[3H:4H]) output gate
//   c_t = f * c_{t-1} + i * g
//   h_t = o * tanh(c_t)
//
// Only the final hidden state is consumed downstream, so the backward pass
// seeds dh at the last timestep and runs truncated-nowhere BPTT over the
// full (short) sequence.
// ===========================================================================

// LSTM is a single-layer LSTM with fused gate weights.
type LSTM struct {
	inputDim  int
	hiddenDim int

	wx *Tensor // (inputDim, 4*hiddenDim)
	wh *Tensor // (hiddenDim, 4*hiddenDim)
	b  *Tensor // (4*hiddenDim)
}

// NewLSTM creates an LSTM layer with small random weights.
// The forget-gate bias is initialized to 1 so early training does not
// immediately erase the cell state.
func NewLSTM(inputDim, hiddenDim int) *LSTM {
	l := &LSTM{
		inputDim:  inputDim,
		hiddenDim: hiddenDim,
		wx:        NewTensorRand(inputDim, 4*hiddenDim),
		wh:        NewTensorRand(hiddenDim, 4*hiddenDim),
		b:         NewTensor(4 * hiddenDim),
	}
	for j := hiddenDim; j < 2*hiddenDim; j++ {
		l.b.data[j] = 1.0
	}
	return l
}

// Parameters returns the trainable tensors.
func (l *LSTM) Parameters() []*Tensor {
	return []*Tensor{l.wx, l.wh, l.b}
}

// LSTMCache stores per-timestep activations for the backward pass.
type LSTMCache struct {
	x *Tensor // input sequence (T, inputDim)

	// Per timestep, each of length hiddenDim.
	i, f, g, o [][]float64 // gate activations
	c          [][]float64 // cell states
	tanhC      [][]float64 // tanh(c_t)
	h          [][]float64 // hidden states
}

// Forward runs the LSTM over x (T, inputDim) and returns the final hidden
// state of length hiddenDim.
func (l *LSTM) Forward(x *Tensor) []float64 {
	h, _ := l.ForwardWithCache(x)
	return h
}

// ForwardWithCache runs the LSTM and records activations for Backward.
func (l *LSTM) ForwardWithCache(x *Tensor) ([]float64, *LSTMCache) {
	if len(x.shape) != 2 || x.shape[1] != l.inputDim {
		panic("lstm: input must be (T, inputDim)")
	}

	T := x.shape[0]
	H := l.hiddenDim

	cache := &LSTMCache{
		x:     x,
		i:     make([][]float64, T),
		f:     make([][]float64, T),
		g:     make([][]float64, T),
		o:     make([][]float64, T),
		c:     make([][]float64, T),
		tanhC: make([][]float64, T),
		h:     make([][]float64, T),
	}

	hPrev := make([]float64, H)
	cPrev := make([]float64, H)

	z := make([]float64, 4*H)

	for t := 0; t < T; t++ {
		xt := x.data[t*l.inputDim : (t+1)*l.inputDim]

		// z = x_t · Wx + h_{t-1} · Wh + b
		copy(z, l.b.data)
		for k, xv := range xt {
			if xv == 0 {
				continue
			}
			row := l.wx.data[k*4*H : (k+1)*4*H]
			for j := range z {
				z[j] += xv * row[j]
			}
		}
		for k, hv := range hPrev {
			if hv == 0 {
				continue
			}
			row := l.wh.data[k*4*H : (k+1)*4*H]
			for j := range z {
				z[j] += hv * row[j]
			}
		}

		it := make([]float64, H)
		ft := make([]float64, H)
		gt := make([]float64, H)
		ot := make([]float64, H)
		ct := make([]float64, H)
		tct := make([]float64, H)
		ht := make([]float64, H)

		for j := 0; j < H; j++ {
			it[j] = sigmoid(z[j])
			ft[j] = sigmoid(z[H+j])
			gt[j] = math.Tanh(z[2*H+j])
			ot[j] = sigmoid(z[3*H+j])

			ct[j] = ft[j]*cPrev[j] + it[j]*gt[j]
			tct[j] = math.Tanh(ct[j])
			ht[j] = ot[j] * tct[j]
		}

		cache.i[t], cache.f[t], cache.g[t], cache.o[t] = it, ft, gt, ot
		cache.c[t], cache.tanhC[t], cache.h[t] = ct, tct, ht

		hPrev, cPrev = ht, ct
	}

	return hPrev, cache
}

// Backward propagates dhFinal (gradient w.r.t. the last hidden state)
// through the sequence. Parameter gradients accumulate into wx, wh and b;
// the returned tensor is the gradient w.r.t. the input sequence.
func (l *LSTM) Backward(dhFinal []float64, cache *LSTMCache) *Tensor {
	T := len(cache.h)
	H := l.hiddenDim

	dx := NewTensor(T, l.inputDim)

	dh := make([]float64, H)
	copy(dh, dhFinal)
	dc := make([]float64, H)

	dz := make([]float64, 4*H)

	for t := T - 1; t >= 0; t-- {
		it, ft, gt, ot := cache.i[t], cache.f[t], cache.g[t], cache.o[t]
		tct := cache.tanhC[t]

		var cPrev []float64
		if t > 0 {
			cPrev = cache.c[t-1]
		}

		for j := 0; j < H; j++ {
			// h_t = o * tanh(c_t)
			do := dh[j] * tct[j]
			dct := dc[j] + dh[j]*ot[j]*(1-tct[j]*tct[j])

			// c_t = f * c_{t-1} + i * g
			di := dct * gt[j]
			dg := dct * it[j]
			var df float64
			if cPrev != nil {
				df = dct * cPrev[j]
			}

			// Gate pre-activation gradients
			dz[j] = di * it[j] * (1 - it[j])
			dz[H+j] = df * ft[j] * (1 - ft[j])
			dz[2*H+j] = dg * (1 - gt[j]*gt[j])
			dz[3*H+j] = do * ot[j] * (1 - ot[j])

			// Carry cell gradient to c_{t-1}
			dc[j] = dct * ft[j]
		}

		xt := cache.x.data[t*l.inputDim : (t+1)*l.inputDim]
		dxt := dx.data[t*l.inputDim : (t+1)*l.inputDim]

		var hPrev []float64
		if t > 0 {
			hPrev = cache.h[t-1]
		}

		// Parameter gradients: Wx += x_tᵀ·dz, Wh += h_{t-1}ᵀ·dz, b += dz
		for k, xv := range xt {
			if xv == 0 {
				continue
			}
			row := l.wx.grad[k*4*H : (k+1)*4*H]
			for j := range dz {
				row[j] += xv * dz[j]
			}
		}
		if hPrev != nil {
			for k, hv := range hPrev {
				if hv == 0 {
					continue
				}
				row := l.wh.grad[k*4*H : (k+1)*4*H]
				for j := range dz {
					row[j] += hv * dz[j]
				}
			}
		}
		for j := range dz {
			l.b.grad[j] += dz[j]
		}

		// Input gradient: dx_t = dz · Wxᵀ
		for k := range dxt {
			row := l.wx.data[k*4*H : (k+1)*4*H]
			sum := 0.0
			for j := range dz {
				sum += dz[j] * row[j]
			}
			dxt[k] = sum
		}

		// Hidden gradient for the previous step: dh_{t-1} = dz · Whᵀ
		if t > 0 {
			for k := 0; k < H; k++ {
				row := l.wh.data[k*4*H : (k+1)*4*H]
				sum := 0.0
				for j := range dz {
					sum += dz[j] * row[j]
				}
				dh[k] = sum
			}
		}
	}

	return dx
}
