package main

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// ===========================================================================
// PARALLEL COMPUTE
// ===========================================================================
//
// Training time is dominated by the attention and LSTM matrix multiplies.
// This file parallelizes matmul across CPU cores by splitting output rows
// among worker goroutines. Small matrices stay single-threaded: goroutine
// overhead exceeds the work below the size threshold.
// ===========================================================================

// ComputeConfig controls parallelization behavior for tensor operations.
//
// Single-threaded mode is deterministic and easier to debug; parallel mode
// is faster on multi-core machines.
type ComputeConfig struct {
	// Parallel enables multi-threaded execution of tensor operations.
	Parallel bool

	// NumWorkers specifies the number of worker goroutines.
	// If 0, defaults to the detected physical core count.
	NumWorkers int

	// MinSizeForParallel is the minimum matrix dimension before
	// parallelization is used.
	MinSizeForParallel int
}

// DefaultComputeConfig returns a configuration sized to the host CPU.
func DefaultComputeConfig() ComputeConfig {
	return ComputeConfig{
		Parallel:           true,
		NumWorkers:         0,
		MinSizeForParallel: 64,
	}
}

// SingleThreadedConfig returns a configuration for single-threaded execution.
func SingleThreadedConfig() ComputeConfig {
	return ComputeConfig{
		Parallel:           false,
		NumWorkers:         1,
		MinSizeForParallel: 0,
	}
}

// numWorkers returns the actual number of workers to use.
// Prefers the physical core count over logical CPUs: matmul is memory-bound
// and SMT siblings contend for the same cache and memory ports.
func (c ComputeConfig) numWorkers() int {
	if !c.Parallel {
		return 1
	}
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// shouldParallelize reports whether an operation of the given size is
// worth spreading across workers.
func (c ComputeConfig) shouldParallelize(size int) bool {
	return c.Parallel && size >= c.MinSizeForParallel
}

// Global compute configuration (can be overridden per operation)
var globalComputeConfig = DefaultComputeConfig()

// SetGlobalComputeConfig sets the global compute configuration.
func SetGlobalComputeConfig(cfg ComputeConfig) {
	globalComputeConfig = cfg
}

// GetGlobalComputeConfig returns the current global compute configuration.
func GetGlobalComputeConfig() ComputeConfig {
	return globalComputeConfig
}

// DescribeCPU returns a one-line summary of the host CPU for the training
// banner: brand, core counts, and the widest vector extension present.
func DescribeCPU() string {
	vector := "scalar"
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		vector = "AVX-512"
	case cpuid.CPU.Supports(cpuid.AVX2):
		vector = "AVX2"
	case cpuid.CPU.Supports(cpuid.SSE4):
		vector = "SSE4"
	case cpuid.CPU.Supports(cpuid.ASIMD):
		vector = "NEON"
	}

	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown CPU"
	}

	return fmt.Sprintf("%s (%d physical / %d logical cores, %s)",
		brand, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, vector)
}

// ParallelMatMul performs matrix multiplication: C = A @ B.
//
// Parallelization strategy: divide output rows among workers, each worker
// computing a contiguous block. Workers write to disjoint regions of the
// output, so no synchronization beyond the WaitGroup is needed.
func ParallelMatMul(a, b *Tensor, cfg ComputeConfig) *Tensor {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		panic("tensor: MatMul requires 2D tensors")
	}

	m, k1 := a.shape[0], a.shape[1]
	k2, n := b.shape[0], b.shape[1]

	if k1 != k2 {
		panic(fmt.Sprintf("tensor: incompatible dimensions for matmul: (%d,%d) @ (%d,%d)", m, k1, k2, n))
	}
	k := k1

	out := NewTensor(m, n)

	// Single-threaded path for small matrices
	if !cfg.shouldParallelize(m) || !cfg.shouldParallelize(n) {
		matmulRows(a, b, out, 0, m, n, k)
		return out
	}

	numWorkers := cfg.numWorkers()
	rowsPerWorker := (m + numWorkers - 1) / numWorkers // Ceiling division

	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > m {
			endRow = m
		}
		if startRow >= m {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			matmulRows(a, b, out, start, end, n, k)
		}(startRow, endRow)
	}

	wg.Wait()
	return out
}

// matmulRows computes output rows [startRow, endRow).
func matmulRows(a, b, out *Tensor, startRow, endRow, n, k int) {
	for i := startRow; i < endRow; i++ {
		aRow := a.data[i*k : (i+1)*k]
		outRow := out.data[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			av := aRow[kk]
			if av == 0 {
				continue
			}
			bRow := b.data[kk*n : (kk+1)*n]
			for j := 0; j < n; j++ {
				outRow[j] += av * bRow[j]
			}
		}
	}
}
