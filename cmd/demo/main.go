package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/arvidw/lsmkv/bound"
	"github.com/arvidw/lsmkv/lsm"
)

func main() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("LSM-Tree Storage Engine Demo")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
	fmt.Println("Ordered key-value storage over a memtable and a stack of on-disk")
	fmt.Println("SSTs: point writes, tombstone deletes, and sorted range scans.")
	fmt.Println()

	demoBasics()
	fmt.Println()
	demoFlushAndOverwrite()
	fmt.Println()
	demoRangeScan()
	fmt.Println()
	demoOversizedEntry()
}

func demoBasics() {
	fmt.Println("### Put / Get / Delete ###")
	fmt.Println(strings.Repeat("-", 40))

	dataDir := "./data-lsm-basics"
	defer os.RemoveAll(dataDir)

	db, err := lsm.Open(lsm.DefaultConfig(dataDir))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	fmt.Println("✓ Opened engine at", dataDir)

	testData := map[string]string{
		"user:1001":   `{"name": "Alice", "age": 30, "city": "NYC"}`,
		"user:1002":   `{"name": "Bob", "age": 25, "city": "SF"}`,
		"user:1003":   `{"name": "Charlie", "age": 35, "city": "LA"}`,
		"product:101": `{"name": "Laptop", "price": 999.99}`,
		"product:102": `{"name": "Mouse", "price": 29.99}`,
	}

	fmt.Println("\n[Writing data]")
	for key, value := range testData {
		if err := db.Put([]byte(key), []byte(value)); err != nil {
			log.Printf("Error writing %s: %v", key, err)
			continue
		}
		fmt.Printf("  PUT %s\n", key)
	}

	fmt.Println("\n[Reading data]")
	for key := range testData {
		value, err := db.Get([]byte(key))
		if err != nil {
			log.Printf("Error reading %s: %v", key, err)
			continue
		}
		fmt.Printf("  GET %s -> %s\n", key, truncate(string(value), 40))
	}

	fmt.Println("\n[Deleting data]")
	if err := db.Delete([]byte("product:102")); err != nil {
		log.Printf("Error deleting: %v", err)
	}
	fmt.Println("  DELETE product:102")

	if _, err := db.Get([]byte("product:102")); err != nil {
		fmt.Printf("  GET product:102 -> %v (as expected)\n", err)
	}
}

func demoFlushAndOverwrite() {
	fmt.Println("### Flush and overwrite across sync ###")
	fmt.Println(strings.Repeat("-", 40))

	dataDir := "./data-lsm-flush"
	defer os.RemoveAll(dataDir)

	db, err := lsm.Open(lsm.DefaultConfig(dataDir))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	db.Put([]byte("a"), []byte("1"))
	fmt.Println("  PUT a=1")

	if err := db.Sync(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("  SYNC (a=1 is now in an L0 SST)")

	db.Put([]byte("a"), []byte("2"))
	fmt.Println("  PUT a=2 (shadows the flushed a=1 from the memtable)")

	v, _ := db.Get([]byte("a"))
	fmt.Printf("  GET a -> %s\n", v)

	if err := db.Sync(); err != nil {
		log.Fatal(err)
	}
	v, _ = db.Get([]byte("a"))
	fmt.Printf("  SYNC again, GET a -> %s (merge iterator still prefers the newer SST)\n", v)

	stats := db.Stats()
	fmt.Printf("  Engine stats: %d flushes, %d L0 tables\n", stats.FlushCount, stats.L0TableCount)
}

func demoRangeScan() {
	fmt.Println("### Range scan across memtable and SSTs ###")
	fmt.Println(strings.Repeat("-", 40))

	dataDir := "./data-lsm-scan"
	defer os.RemoveAll(dataDir)

	db, err := lsm.Open(lsm.DefaultConfig(dataDir))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		val := []byte(fmt.Sprintf("%d", i))
		db.Put(key, val)
	}
	db.Sync()
	// A few more writes land in the fresh memtable, alongside the
	// flushed SST, so the scan below has to merge both layers.
	for i := 20; i < 25; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		val := []byte(fmt.Sprintf("%d", i))
		db.Put(key, val)
	}

	fmt.Println("  Scanning [k10, k15):")
	it, err := db.Scan(bound.IncludedBound([]byte("k10")), bound.ExcludedBound([]byte("k15")))
	if err != nil {
		log.Fatal(err)
	}
	for it.IsValid() {
		fmt.Printf("    %s -> %s\n", it.Key(), it.Value())
		if err := it.Next(); err != nil {
			log.Fatal(err)
		}
	}
}

func demoOversizedEntry() {
	fmt.Println("### An entry larger than one block still gets its own block ###")
	fmt.Println(strings.Repeat("-", 40))

	dataDir := "./data-lsm-oversized"
	defer os.RemoveAll(dataDir)

	cfg := lsm.DefaultConfig(dataDir)
	cfg.BlockSize = 256
	db, err := lsm.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	huge := strings.Repeat("x", cfg.BlockSize*3)
	db.Put([]byte("huge"), []byte(huge))
	db.Sync()

	v, err := db.Get([]byte("huge"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  GET huge -> %d bytes (block size is %d)\n", len(v), cfg.BlockSize)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
