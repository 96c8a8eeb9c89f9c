package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KevoDB/dircore/pkg/common/log"
	"github.com/KevoDB/dircore/pkg/config"
	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/cursor/filtered"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/search"
	"github.com/KevoDB/dircore/pkg/store/memstore"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

const (
	defaultEntryCount = 100000
	defaultFanout     = 100
)

var (
	// Command line flags
	benchmarkType = flag.String("type", "all", "Type of benchmark to run (add, equality, scan-equality, or, subtree, filtered, or all)")
	duration      = flag.Duration("duration", 5*time.Second, "Duration to run each query benchmark")
	numEntries    = flag.Int("entries", defaultEntryCount, "Number of user entries to generate")
	fanout        = flag.Int("fanout", defaultFanout, "Number of groups the users are spread over")
	configPath    = flag.String("config", "", "Store configuration file (JSON or YAML)")
	compression   = flag.String("compression", "", "Override the record compression (none, snappy, zstd, lz4)")
	cpuProfile    = flag.String("cpu-profile", "", "Write CPU profile to file")
	memProfile    = flag.String("mem-profile", "", "Write memory profile to file")
	resultsFile   = flag.String("results", "", "CSV file to write results to (in addition to stdout)")
)

func main() {
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	*compression = string(cfg.RecordCompression)

	logger := log.NewLogrusLogger(logrus.New())
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	tel := telemetry.NewNoop()
	if cfg.Telemetry.Enabled {
		tel, err = telemetry.New(cfg.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start telemetry: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ExportTimeout)
			defer cancel()
			if err := tel.Shutdown(ctx); err != nil {
				logger.Warn("telemetry shutdown: %v", err)
			}
		}()
	}

	st, err := memstore.New(cfg, memstore.WithLogger(logger), memstore.WithTelemetry(tel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	b := &bench{
		st: st,
		opts: []cursor.Option{
			cursor.WithLogger(logger),
			cursor.WithMetrics(cursor.NewMetrics(tel)),
		},
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	fmt.Printf("Building tree of %d entries over %d groups (%s records)...\n", *numEntries, *fanout, *compression)
	var results []BenchmarkResult
	results = append(results, b.runAdd())

	types := strings.Split(*benchmarkType, ",")
	for _, typ := range types {
		var run func() (BenchmarkResult, error)
		switch strings.ToLower(strings.TrimSpace(typ)) {
		case "add":
			continue
		case "equality":
			run = b.runEquality
		case "scan-equality":
			run = b.runScanEquality
		case "or":
			run = b.runOr
		case "subtree":
			run = b.runSubtree
		case "filtered":
			run = b.runFiltered
		case "all":
			for _, fn := range []func() (BenchmarkResult, error){b.runEquality, b.runScanEquality, b.runOr, b.runSubtree, b.runFiltered} {
				r, err := fn()
				if err != nil {
					fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
					os.Exit(1)
				}
				results = append(results, r)
			}
			continue
		default:
			fmt.Fprintf(os.Stderr, "Unknown benchmark type: %s\n", typ)
			os.Exit(1)
		}

		r, err := run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Benchmark %s failed: %v\n", typ, err)
			os.Exit(1)
		}
		results = append(results, r)
	}

	PrintResultTable(results)
	fmt.Printf("Store stats: %v\n", st.Stats())

	if *resultsFile != "" {
		if err := SaveResultCSV(results, *resultsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results to file: %v\n", err)
		}
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
		} else {
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
			}
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}
	cfg.Telemetry.LoadFromEnv()

	if *compression != "" {
		c, err := entry.ParseCompression(*compression)
		if err != nil {
			return nil, err
		}
		cfg.Update(func(cfg *config.Config) {
			cfg.RecordCompression = c
		})
	}

	return cfg, cfg.Validate()
}

type bench struct {
	st   *memstore.Store
	tree *benchTree
	opts []cursor.Option
	rnd  *rand.Rand
}

func (b *bench) runAdd() BenchmarkResult {
	start := time.Now()
	tree, err := buildTree(b.st, *numEntries, *fanout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build tree: %v\n", err)
		os.Exit(1)
	}
	b.tree = tree
	return newResult("Add", b.st.Count(), 0, time.Since(start))
}

// runFor calls op until the duration elapses and sums what it returns.
func (b *bench) runFor(name string, op func() (int, error)) (BenchmarkResult, error) {
	fmt.Printf("Running %s benchmark...\n", name)

	start := time.Now()
	deadline := start.Add(*duration)

	var ops, returned int
	for time.Now().Before(deadline) {
		n, err := op()
		if err != nil {
			return BenchmarkResult{}, err
		}
		ops++
		returned += n
	}

	return newResult(name, ops, returned, time.Since(start)), nil
}

func (b *bench) runEquality() (BenchmarkResult, error) {
	return b.runFor("Equality", func() (int, error) {
		uid := fmt.Sprintf("user%08d", b.rnd.Intn(*numEntries+1))
		return b.countEquality("uid", uid)
	})
}

func (b *bench) runScanEquality() (BenchmarkResult, error) {
	return b.runFor("ScanEquality", func() (int, error) {
		return b.countEquality("sn", fmt.Sprintf("surname%d", b.rnd.Intn(97)))
	})
}

func (b *bench) countEquality(attr, value string) (int, error) {
	c, err := search.NewEqualityCursor(b.st, attr, value, b.opts...)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	found, err := cursor.Collect[storeEntry](c)
	return len(found), err
}

// orWidth is the number of values in each OR query
const orWidth = 4

func (b *bench) runOr() (BenchmarkResult, error) {
	return b.runFor("Or", func() (int, error) {
		values := make([]string, orWidth)
		for i := range values {
			values[i] = fmt.Sprintf("user%08d", b.rnd.Intn(*numEntries+1))
		}

		c, err := orCursor(b.st, "uid", values, b.opts...)
		if err != nil {
			return 0, err
		}
		defer c.Close()

		found, err := cursor.Collect[storeEntry](c)
		return len(found), err
	})
}

func (b *bench) runSubtree() (BenchmarkResult, error) {
	return b.runFor("Subtree", func() (int, error) {
		base := b.tree.groups[b.rnd.Intn(len(b.tree.groups))]
		c, err := search.NewDescendantCursor(b.st.RdnIndex(), base, true, b.opts...)
		if err != nil {
			return 0, err
		}
		defer c.Close()

		found, err := cursor.Collect[descendantEntry](c)
		return len(found), err
	})
}

func (b *bench) runFiltered() (BenchmarkResult, error) {
	return b.runFor("Filtered", func() (int, error) {
		base := b.tree.groups[b.rnd.Intn(len(b.tree.groups))]
		desc, err := search.NewDescendantCursor(b.st.RdnIndex(), base, true, b.opts...)
		if err != nil {
			return 0, err
		}

		sc := search.NewContext(context.Background(), []string{"uid", "mail"}, false)
		c := filtered.New(search.NewEntryCursor[entry.ID](desc, b.st, b.opts...), sc,
			[]filtered.Filter{search.EvaluatorFilter(search.NewPresenceEvaluator("mail"))}, b.opts...)
		defer c.Close()

		found, err := cursor.Collect[*entry.Entry](c)
		return len(found), err
	})
}
