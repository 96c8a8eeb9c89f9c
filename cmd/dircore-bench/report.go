package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult stores the results of one benchmark run
type BenchmarkResult struct {
	BenchmarkType string
	Entries       int
	Fanout        int
	Compression   string
	Operations    int
	Returned      int // entries produced by cursors across all operations
	Duration      float64
	Throughput    float64
	Latency       float64 // µs per operation
	Timestamp     time.Time
}

func newResult(typ string, ops, returned int, elapsed time.Duration) BenchmarkResult {
	r := BenchmarkResult{
		BenchmarkType: typ,
		Entries:       *numEntries,
		Fanout:        *fanout,
		Compression:   *compression,
		Operations:    ops,
		Returned:      returned,
		Duration:      elapsed.Seconds(),
		Timestamp:     time.Now(),
	}
	if ops > 0 && elapsed > 0 {
		r.Throughput = float64(ops) / elapsed.Seconds()
		r.Latency = float64(elapsed.Microseconds()) / float64(ops)
	}
	return r
}

// SaveResultCSV saves benchmark results to a CSV file
func SaveResultCSV(results []BenchmarkResult, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Timestamp", "BenchmarkType", "Entries", "Fanout", "Compression",
		"Operations", "Returned", "Duration", "Throughput", "Latency",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			r.BenchmarkType,
			strconv.Itoa(r.Entries),
			strconv.Itoa(r.Fanout),
			r.Compression,
			strconv.Itoa(r.Operations),
			strconv.Itoa(r.Returned),
			fmt.Sprintf("%.2f", r.Duration),
			fmt.Sprintf("%.2f", r.Throughput),
			fmt.Sprintf("%.3f", r.Latency),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// PrintResultTable prints a formatted table of benchmark results
func PrintResultTable(results []BenchmarkResult) {
	if len(results) == 0 {
		fmt.Println("No results to display")
		return
	}

	fmt.Println("+-----------------+---------+--------+------------+------------+-----------+")
	fmt.Println("| Benchmark Type  | Entries | Codec  | Operations | Throughput | Latency   |")
	fmt.Println("+-----------------+---------+--------+------------+------------+-----------+")

	for _, r := range results {
		latencyUnit := "µs"
		latency := r.Latency
		if latency > 1000 {
			latencyUnit = "ms"
			latency /= 1000
		}

		fmt.Printf("| %-15s | %7d | %-6s | %10d | %10.2f | %7.2f%s |\n",
			r.BenchmarkType,
			r.Entries,
			r.Compression,
			r.Operations,
			r.Throughput,
			latency, latencyUnit)
	}
	fmt.Println("+-----------------+---------+--------+------------+------------+-----------+")
}
