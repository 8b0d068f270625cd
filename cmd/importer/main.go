package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"exchange-import/internal/config"
	"exchange-import/internal/currency"
	"exchange-import/internal/domain"
	"exchange-import/internal/gateway"
	"exchange-import/internal/logger"
	"exchange-import/internal/schemas"
	"exchange-import/internal/usecase"
)

func main() {
	// Environment first, flags override it
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	filesStr := flag.String("file", "", "Comma-separated list of exchange export files, CSV or XLSX (required)")
	flag.StringVar(&cfg.SchemaDir, "schemas", cfg.SchemaDir, "Directory with additional schema declarations")
	flag.StringVar(&cfg.CurrencyFile, "currencies", cfg.CurrencyFile, "Currency master list replacing the builtin one")
	flag.StringVar(&cfg.DefaultTimezone, "tz", cfg.DefaultTimezone, "Zone of timestamps that carry none")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "Output format: json or summary")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Number of files parsed at once")
	flag.Parse()

	if *filesStr == "" {
		fmt.Println("Error: the -file flag is required.")
		flag.Usage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}
	files := strings.Split(*filesStr, ",")
	for i := range files {
		files[i] = strings.TrimSpace(files[i])
	}

	l, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, cfg.LogMaxAgeDays)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	appLog := logger.WithComponent(l, "importer")

	loc, err := cfg.Location()
	if err != nil {
		appLog.WithError(err).Fatal("invalid timezone")
	}

	// --- Dependency Injection ---

	// 1. Reference data shared by every parse
	catalog, err := loadCurrencies(cfg.CurrencyFile)
	if err != nil {
		appLog.WithError(err).Fatal("could not load currencies")
	}
	registry, err := schemas.Registry(cfg.SchemaDir)
	if err != nil {
		appLog.WithError(err).Fatal("could not load schemas")
	}
	appLog.WithFields(logrus.Fields{"schemas": registry.Len(), "currencies": catalog.Len()}).Debug("reference data loaded")

	// 2. The repository reading export files
	repo := gateway.NewFileRepository()

	// 3. The usecase
	importUseCase := usecase.NewImportUseCase(repo, registry, catalog,
		usecase.WithLocation(loc),
		usecase.WithLogger(logger.WithComponent(l, "usecase")),
		usecase.WithConcurrency(cfg.Concurrency),
	)

	// --- Execute the Usecase ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := importUseCase.ImportAll(ctx, files)
	if err != nil {
		appLog.WithError(err).Error("import failed")
		stop()
		os.Exit(1)
	}

	// --- Present the Output ---
	if cfg.Output == "summary" {
		printSummary(results)
	} else {
		output, err := json.MarshalIndent(reports(results), "", "  ")
		if err != nil {
			appLog.WithError(err).Fatal("failed to generate JSON report")
		}
		fmt.Println(string(output))
	}

	for _, r := range results {
		if r.Err != nil {
			stop()
			os.Exit(1)
		}
	}
}

// fileReport is the JSON form of one file of the batch.
type fileReport struct {
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
	*domain.ParseResult
}

func reports(results []usecase.FileResult) []fileReport {
	out := make([]fileReport, len(results))
	for i, r := range results {
		out[i] = fileReport{File: r.Path, ParseResult: r.Result}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func loadCurrencies(path string) (*currency.Catalog, error) {
	if path == "" {
		return currency.Default()
	}
	return currency.Load(path)
}

func printSummary(results []usecase.FileResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%s [failed]\n  error: %v\n", r.Path, r.Err)
			continue
		}
		res := r.Result
		s := res.Summary
		fmt.Printf("%s [%s]\n", res.Source, res.Schema)
		fmt.Printf("  rows: %d read, %d decoded\n", s.RowsRead, s.RowsDecoded)
		fmt.Printf("  clusters: %d\n", s.Clusters)
		fmt.Printf("  fees: %d ignored, %d failed\n", s.IgnoredFeeTransactionCount, s.FailedFeeTransactionCount)
		fmt.Printf("  problems: %d\n", s.Problems)

		kinds := make([]string, 0, len(s.ProblemsByKind))
		for k := range s.ProblemsByKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("    %s: %d\n", k, s.ProblemsByKind[domain.ProblemKind(k)])
		}
		for _, p := range res.Problems {
			fmt.Printf("    - %s\n", p.Message)
		}
	}
}
