package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrShapeMismatch indicates incompatible tensor shapes for an operation.
	ErrShapeMismatch = errors.New("tensor: shape mismatch")

	// ErrInvalidShape indicates an invalid tensor shape.
	ErrInvalidShape = errors.New("tensor: invalid shape")
)

// Tensor represents a multi-dimensional array of float64 values.
// It stores data in row-major (C-contiguous) order and carries a gradient
// buffer of the same size for backpropagation.
//
// Tensor is not safe for concurrent use. Synchronization must be handled
// by the caller if needed.
type Tensor struct {
	data  []float64 // Flat array storing all elements
	shape []int     // Dimensions [story_len, embed_dim, etc.]
	grad  []float64 // Gradient for backpropagation
}

// NewTensor creates a tensor with the given shape, initialized to zero.
// Panics if shape is invalid - shape errors are programmer bugs, not
// runtime conditions to handle gracefully.
func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("tensor: shape cannot be empty")
	}

	size := 1
	for i, dim := range shape {
		if dim <= 0 {
			panic(fmt.Sprintf("tensor: shape[%d] must be positive, got %d", i, dim))
		}
		size *= dim
	}

	// Copy shape slice to prevent external mutation
	shapeCopy := make([]int, len(shape))
	copy(shapeCopy, shape)

	return &Tensor{
		data:  make([]float64, size),
		shape: shapeCopy,
		grad:  make([]float64, size),
	}
}

// NewTensorRand creates a tensor with values from a normal distribution
// with standard deviation 0.05 (small random initialization for embedding
// and gate weights). Uses the Box-Muller transform.
func NewTensorRand(shape ...int) *Tensor {
	t := NewTensor(shape...)

	for i := 0; i < len(t.data); i += 2 {
		u1, u2 := rand.Float64(), rand.Float64()
		mag := 0.05 * math.Sqrt(-2*math.Log(u1))
		t.data[i] = mag * math.Cos(2*math.Pi*u2)
		if i+1 < len(t.data) {
			t.data[i+1] = mag * math.Sin(2*math.Pi*u2)
		}
	}

	return t
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Dims returns the number of dimensions (rank) of the tensor.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Size returns the total number of elements in the tensor.
func (t *Tensor) Size() int {
	return len(t.data)
}

// At returns the element at the given indices.
// Panics if indices are invalid - this is a programmer error.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are invalid.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.flatIndex(indices)] = value
}

// flatIndex converts multi-dimensional indices to a flat index.
// Panics on invalid indices.
func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(t.shape), len(indices)))
	}

	idx := 0
	stride := 1

	// Row-major order
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index[%d]=%d out of bounds [0,%d)", i, indices[i], t.shape[i]))
		}
		idx += indices[i] * stride
		stride *= t.shape[i]
	}

	return idx
}

// ZeroGrad clears the gradient buffer. Call before a backward pass.
func (t *Tensor) ZeroGrad() {
	for i := range t.grad {
		t.grad[i] = 0
	}
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := NewTensor(t.shape...)
	copy(clone.data, t.data)
	copy(clone.grad, t.grad)
	return clone
}

// Reshape returns a new view of the tensor with a different shape.
// The total number of elements must remain the same; data and gradient
// buffers are shared with the original.
func (t *Tensor) Reshape(newShape ...int) *Tensor {
	newSize := 1
	for _, dim := range newShape {
		newSize *= dim
	}

	if newSize != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape size %d to %v (size %d)", len(t.data), newShape, newSize))
	}

	shapeCopy := make([]int, len(newShape))
	copy(shapeCopy, newShape)

	return &Tensor{
		data:  t.data,
		shape: shapeCopy,
		grad:  t.grad,
	}
}

// String returns a short representation for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, size=%d)", t.shape, len(t.data))
}

// ===========================================================================
// OPERATIONS
// ===========================================================================

// Add performs element-wise addition: out = a + b.
// Panics if shapes don't match.
func Add(a, b *Tensor) *Tensor {
	if !shapeEqual(a.shape, b.shape) {
		panic(fmt.Sprintf("tensor: cannot add shapes %v and %v", a.shape, b.shape))
	}

	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] + b.data[i]
	}

	return out
}

// Mul performs element-wise multiplication: out = a * b (Hadamard product).
// Panics if shapes don't match.
func Mul(a, b *Tensor) *Tensor {
	if !shapeEqual(a.shape, b.shape) {
		panic(fmt.Sprintf("tensor: cannot multiply shapes %v and %v", a.shape, b.shape))
	}

	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] * b.data[i]
	}

	return out
}

// Scale multiplies all elements by a scalar: out = a * scalar.
func Scale(a *Tensor, scalar float64) *Tensor {
	out := NewTensor(a.shape...)
	for i := range out.data {
		out.data[i] = a.data[i] * scalar
	}
	return out
}

// MatMul performs matrix multiplication: C = A @ B.
// A must be (M, K), B must be (K, N), result is (M, N).
//
// This is the O(M*N*K) operation at the heart of the model. Uses the
// global compute configuration to decide on parallel execution.
func MatMul(a, b *Tensor) *Tensor {
	return ParallelMatMul(a, b, GetGlobalComputeConfig())
}

// Transpose returns the transpose of a 2D matrix: A^T.
// A: (M, N) -> A^T: (N, M).
func Transpose(a *Tensor) *Tensor {
	if len(a.shape) != 2 {
		panic("tensor: Transpose requires 2D tensor")
	}

	m, n := a.shape[0], a.shape[1]
	out := NewTensor(n, m)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.data[j*m+i] = a.data[i*n+j]
		}
	}

	return out
}

// ===========================================================================
// ACTIVATION FUNCTIONS
// ===========================================================================

// Sigmoid applies the logistic function element-wise: f(x) = 1/(1+e^-x).
// Used for the LSTM input, forget and output gates.
func Sigmoid(x *Tensor) *Tensor {
	out := NewTensor(x.shape...)
	for i := range x.data {
		out.data[i] = sigmoid(x.data[i])
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Tanh applies the hyperbolic tangent element-wise.
// Used for the LSTM candidate gate and cell output.
func Tanh(x *Tensor) *Tensor {
	out := NewTensor(x.shape...)
	for i := range x.data {
		out.data[i] = math.Tanh(x.data[i])
	}
	return out
}

// Softmax applies the softmax function row-wise: p_i = exp(x_i) / Σ exp(x_j).
// Converts scores to probabilities (each row sums to 1).
//
// Numerically stable version: subtracts the row max before exponentiating.
// Only supports 2D tensors (rows, features).
func Softmax(x *Tensor) *Tensor {
	if len(x.shape) != 2 {
		panic("tensor: Softmax requires 2D tensor")
	}

	rows, features := x.shape[0], x.shape[1]
	out := NewTensor(rows, features)

	for r := 0; r < rows; r++ {
		row := x.data[r*features : (r+1)*features]
		outRow := out.data[r*features : (r+1)*features]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for i, v := range row {
			e := math.Exp(v - maxVal)
			outRow[i] = e
			sum += e
		}

		for i := range outRow {
			outRow[i] /= sum
		}
	}

	return out
}

// softmaxSlice is the 1D convenience form used for output probabilities.
func softmaxSlice(logits []float64) []float64 {
	out := make([]float64, len(logits))

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}

	return out
}

// argmax returns the index of the largest element.
func argmax(data []float64) int {
	best := 0
	for i, v := range data {
		if v > data[best] {
			best = i
		}
	}
	return best
}

// ===========================================================================
// HELPERS
// ===========================================================================

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
