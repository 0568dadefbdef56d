package main

import (
	"math/rand"
	"testing"
)

// TestParallelMatMulMatchesSingleThreaded verifies that the parallel path
// produces exactly the same result as the single-threaded path. Workers
// accumulate in the same order per row, so results are bit-identical.
func TestParallelMatMulMatchesSingleThreaded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	sizes := []struct{ m, k, n int }{
		{3, 5, 4},     // Below the parallel threshold
		{128, 64, 96}, // Above the threshold
	}

	for _, size := range sizes {
		a := NewTensor(size.m, size.k)
		b := NewTensor(size.k, size.n)
		for i := range a.data {
			a.data[i] = rng.NormFloat64()
		}
		for i := range b.data {
			b.data[i] = rng.NormFloat64()
		}

		single := ParallelMatMul(a, b, SingleThreadedConfig())
		parallel := ParallelMatMul(a, b, ComputeConfig{
			Parallel:           true,
			NumWorkers:         4,
			MinSizeForParallel: 1,
		})

		for i := range single.data {
			if single.data[i] != parallel.data[i] {
				t.Fatalf("size %dx%dx%d: mismatch at %d: %v vs %v",
					size.m, size.k, size.n, i, single.data[i], parallel.data[i])
			}
		}
	}
}

// TestComputeConfigWorkers checks worker count resolution.
func TestComputeConfigWorkers(t *testing.T) {
	if got := SingleThreadedConfig().numWorkers(); got != 1 {
		t.Errorf("single-threaded config: expected 1 worker, got %d", got)
	}

	cfg := ComputeConfig{Parallel: true, NumWorkers: 3}
	if got := cfg.numWorkers(); got != 3 {
		t.Errorf("explicit workers: expected 3, got %d", got)
	}

	if got := DefaultComputeConfig().numWorkers(); got < 1 {
		t.Errorf("default config: expected at least 1 worker, got %d", got)
	}
}

// BenchmarkMatMul measures the attention-sized matmul that dominates
// training time.
func BenchmarkMatMul(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	x := NewTensor(68, 64)
	y := NewTensor(64, 68)
	for i := range x.data {
		x.data[i] = rng.NormFloat64()
	}
	for i := range y.data {
		y.data[i] = rng.NormFloat64()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParallelMatMul(x, y, DefaultComputeConfig())
	}
}
