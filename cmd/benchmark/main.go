package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arvidw/lsmkv/bound"
	"github.com/arvidw/lsmkv/common/benchmark"
	"github.com/arvidw/lsmkv/lsm"
)

func main() {
	quick := flag.Bool("quick", false, "Run quick benchmarks (shorter duration)")
	workload := flag.String("workload", "all", "Workload to run (all, write-heavy, read-heavy, balanced, write-only)")
	duration := flag.Duration("duration", 60*time.Second, "Duration for each benchmark")
	concurrency := flag.Int("concurrency", 8, "Number of concurrent workers")
	flag.Parse()

	fmt.Println("LSM-Tree Storage Engine Benchmark")
	fmt.Println("==================================")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n\n", *concurrency)

	var configs []benchmark.Config
	if *quick {
		configs = benchmark.QuickWorkloads()
	} else {
		configs = benchmark.StandardWorkloads()
	}

	if flag.Lookup("duration").Value.String() != flag.Lookup("duration").DefValue {
		for i := range configs {
			configs[i].Duration = *duration
		}
	}

	if flag.Lookup("concurrency").Value.String() != flag.Lookup("concurrency").DefValue {
		for i := range configs {
			configs[i].Concurrency = *concurrency
		}
	}

	if *workload != "all" {
		filtered := make([]benchmark.Config, 0)
		for _, config := range configs {
			if config.Name == *workload || string(config.WorkloadType) == *workload {
				filtered = append(filtered, config)
			}
		}
		if len(filtered) == 0 {
			fmt.Printf("Unknown workload: %s\n", *workload)
			os.Exit(1)
		}
		configs = filtered
	}

	dir, err := os.MkdirTemp("", "benchmark-lsm-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	engine, err := lsm.Open(lsm.DefaultConfig(dir))
	if err != nil {
		fmt.Printf("Failed to open engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	suite := benchmark.NewSuite()
	suite.SetWorkloads(configs)
	results := suite.Run(engine)
	suite.PrintTable(results)

	fmt.Println("\n=== Range scan benchmark ===")
	runRangeScanBenchmark(engine)
}

func runRangeScanBenchmark(engine *lsm.Engine) {
	fmt.Println("Preparing range scan test data...")

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("user:%06d", i))
		value := []byte(fmt.Sprintf(`{"id": %d, "name": "user%d"}`, i, i))
		if err := engine.Put(key, value); err != nil {
			fmt.Printf("preload put failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := engine.Sync(); err != nil {
		fmt.Printf("preload sync failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Running range scans...")

	ranges := []struct {
		name  string
		start string
		end   string
	}{
		{"Small (100 keys)", "user:000000", "user:000100"},
		{"Medium (1000 keys)", "user:000000", "user:001000"},
		{"Large (5000 keys)", "user:000000", "user:005000"},
		{"Full scan", "user:000000", "user:999999"},
	}

	for _, r := range ranges {
		start := time.Now()
		it, err := engine.Scan(bound.IncludedBound([]byte(r.start)), bound.ExcludedBound([]byte(r.end)))
		if err != nil {
			fmt.Printf("scan failed: %v\n", err)
			continue
		}
		count := 0
		for it.IsValid() {
			count++
			if err := it.Next(); err != nil {
				fmt.Printf("scan iteration failed: %v\n", err)
				break
			}
		}
		elapsed := time.Since(start)

		throughput := float64(count) / elapsed.Seconds()
		var avgLatency time.Duration
		if count > 0 {
			avgLatency = elapsed / time.Duration(count)
		}

		fmt.Printf("\n%s:\n", r.name)
		fmt.Printf("  Keys scanned: %d\n", count)
		fmt.Printf("  Duration:     %v\n", elapsed)
		fmt.Printf("  Throughput:   %.0f keys/sec\n", throughput)
		fmt.Printf("  Avg latency:  %v per key\n", avgLatency)
	}
}
