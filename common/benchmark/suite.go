package benchmark

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/arvidw/lsmkv/common"
)

// Suite runs a fixed set of workload configs against one engine in
// sequence and prints a summary table at the end.
type Suite struct {
	configs []Config
}

// NewSuite builds a Suite using the standard workload set.
func NewSuite() *Suite {
	return &Suite{configs: StandardWorkloads()}
}

// SetWorkloads overrides the suite's workload configs.
func (s *Suite) SetWorkloads(configs []Config) {
	s.configs = configs
}

// StandardWorkloads returns representative benchmark scenarios.
func StandardWorkloads() []Config {
	return []Config{
		{
			Name:            "write-heavy-uniform",
			WorkloadType:    WorkloadWriteHeavy,
			KeyDistribution: DistUniform,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        60 * time.Second,
			Concurrency:     8,
			PreloadKeys:     100000,
			SyncEvery:       25000,
			Seed:            12345,
		},
		{
			Name:            "read-heavy-zipfian",
			WorkloadType:    WorkloadReadHeavy,
			KeyDistribution: DistZipfian,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        60 * time.Second,
			Concurrency:     8,
			PreloadKeys:     500000,
			SyncEvery:       50000,
			Seed:            12345,
		},
		{
			Name:            "balanced-uniform",
			WorkloadType:    WorkloadBalanced,
			KeyDistribution: DistUniform,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        60 * time.Second,
			Concurrency:     8,
			PreloadKeys:     100000,
			SyncEvery:       25000,
			Seed:            12345,
		},
		{
			Name:            "write-only-sequential",
			WorkloadType:    WorkloadWriteOnly,
			KeyDistribution: DistSequential,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       1000,
			Duration:        30 * time.Second,
			Concurrency:     1,
			PreloadKeys:     0,
			Seed:            12345,
		},
	}
}

// QuickWorkloads is a faster set for local iteration. Each sets
// SyncEvery well below PreloadKeys so preload flushes several times and
// L0 reads actually happen during the run.
func QuickWorkloads() []Config {
	return []Config{
		{
			Name:            "quick-write-heavy",
			WorkloadType:    WorkloadWriteHeavy,
			KeyDistribution: DistUniform,
			NumKeys:         50000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        15 * time.Second,
			Concurrency:     8,
			PreloadKeys:     5000,
			SyncEvery:       2000,
			Seed:            12345,
		},
		{
			Name:            "quick-balanced",
			WorkloadType:    WorkloadBalanced,
			KeyDistribution: DistUniform,
			NumKeys:         50000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        15 * time.Second,
			Concurrency:     8,
			PreloadKeys:     10000,
			SyncEvery:       2000,
			Seed:            12345,
		},
		{
			Name:            "quick-read-heavy",
			WorkloadType:    WorkloadReadHeavy,
			KeyDistribution: DistZipfian,
			NumKeys:         50000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        15 * time.Second,
			Concurrency:     8,
			PreloadKeys:     30000,
			SyncEvery:       5000,
			Seed:            12345,
		},
	}
}

// Run drives engine through every configured workload in sequence.
func (s *Suite) Run(engine common.StorageEngine) []*Result {
	results := make([]*Result, 0, len(s.configs))
	for _, config := range s.configs {
		fmt.Printf("\nRunning: %s\n", config.Name)

		bench := NewBenchmark(engine, config)
		result, err := bench.Run()
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			continue
		}

		results = append(results, result)
		s.printResult(result)
	}
	return results
}

func (s *Suite) printResult(r *Result) {
	fmt.Printf("\nResults for: %s\n", r.Config.Name)
	fmt.Printf("  Throughput: %.0f ops/sec\n", r.OpsPerSec)
	fmt.Printf("  Total Ops: %d (writes: %d, reads: %d)\n", r.TotalOps, r.WriteOps, r.ReadOps)

	if r.WriteOps > 0 {
		fmt.Printf("  Write Latency (μs):\n")
		fmt.Printf("    p50:  %6d\n", r.WriteLatency.P50.Microseconds())
		fmt.Printf("    p95:  %6d\n", r.WriteLatency.P95.Microseconds())
		fmt.Printf("    p99:  %6d\n", r.WriteLatency.P99.Microseconds())
		fmt.Printf("    p999: %6d\n", r.WriteLatency.P999.Microseconds())
	}

	if r.ReadOps > 0 {
		fmt.Printf("  Read Latency (μs):\n")
		fmt.Printf("    p50:  %6d\n", r.ReadLatency.P50.Microseconds())
		fmt.Printf("    p95:  %6d\n", r.ReadLatency.P95.Microseconds())
		fmt.Printf("    p99:  %6d\n", r.ReadLatency.P99.Microseconds())
		fmt.Printf("    p999: %6d\n", r.ReadLatency.P999.Microseconds())
	}

	fmt.Printf("  Engine state: %d L0 tables, %d flushes, cache %d hits / %d misses\n",
		r.L0TableCount, r.FlushCount, r.BlockCacheHits, r.BlockCacheMisses)
}

// PrintTable prints a compact multi-workload summary.
func (s *Suite) PrintTable(results []*Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "\n=== THROUGHPUT ===")
	fmt.Fprintln(w, "Workload\tOps/sec\tWriteP99(us)\tReadP99(us)\tL0 Tables\tFlushes")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.0f\t%d\t%d\t%d\t%d\n",
			r.Config.Name, r.OpsPerSec,
			r.WriteLatency.P99.Microseconds(), r.ReadLatency.P99.Microseconds(),
			r.L0TableCount, r.FlushCount)
	}
	w.Flush()
}
