package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"records-scraper/pkg/config"
	"records-scraper/pkg/extract"
	"records-scraper/pkg/fetch"
	"records-scraper/pkg/models"
	"records-scraper/pkg/orchestrate"
	"records-scraper/pkg/progress"
	"records-scraper/pkg/schedule"
	"records-scraper/pkg/storage"
	"records-scraper/pkg/utils"
)

const version = "1.0.0"

const progressLogName = "retrieval_log.tsv"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scrape":
		runScrape(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("records-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`records-scraper - Public records document retriever

Usage:
  records-scraper <command> [options]

Commands:
  scrape      Discover and retrieve documents for the configured years
  verify      Cross-check the retrieval manifest against files on disk
  validate    Validate configuration file
  version     Show version info

Run 'records-scraper <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}

	return log
}

// loadAndValidateConfig loads the config file, validates it, and logs warnings.
func loadAndValidateConfig(configFile string, log *logrus.Logger) *config.AppConfig {
	log.Infof("Loading configuration from %s", configFile)
	cfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Config validation error: %v", err)
	}

	return cfg
}

// parseYearsFlag parses a "FROM-TO" or single "YEAR" override
func parseYearsFlag(years string) (config.YearRange, error) {
	if from, to, ok := strings.Cut(years, "-"); ok {
		f, errF := strconv.Atoi(strings.TrimSpace(from))
		t, errT := strconv.Atoi(strings.TrimSpace(to))
		if errF != nil || errT != nil {
			return config.YearRange{}, fmt.Errorf("invalid years range '%s', expected FROM-TO", years)
		}
		return config.YearRange{From: f, To: t}, nil
	}
	y, err := strconv.Atoi(strings.TrimSpace(years))
	if err != nil {
		return config.YearRange{}, fmt.Errorf("invalid year '%s'", years)
	}
	return config.YearRange{From: y, To: y}, nil
}

// runScrape handles the scrape subcommand
func runScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	outDir := fs.String("out", "", "Override output root directory")
	workers := fs.Int("workers", 0, "Override max in-flight transfers")
	timeout := fs.Duration("timeout", 0, "Override per-request timeout")
	years := fs.String("years", "", "Override year range, e.g. 1990-2000 or 2021")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: records-scraper scrape [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  records-scraper scrape -config config.yaml\n")
		fmt.Fprintf(os.Stderr, "  records-scraper scrape -years 2015-2022 -workers 8\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	cfg := loadAndValidateConfig(*configFile, log)

	// CLI overrides
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *workers > 0 {
		cfg.NumWorkers = *workers
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}
	if *years != "" {
		yr, err := parseYearsFlag(*years)
		if err != nil {
			log.Fatalf("Invalid -years flag: %v", err)
		}
		if yr.From > yr.To {
			log.Fatalf("Invalid -years flag: %d > %d", yr.From, yr.To)
		}
		cfg.Years = yr
	}

	os.Exit(executeScrape(cfg, log))
}

// executeScrape wires the pipeline and runs it. Returns the process exit
// code: 0 when no task ended Failed, 1 otherwise.
func executeScrape(cfg *config.AppConfig, log *logrus.Logger) int {
	runID := uuid.NewString()
	runLog := log.WithField("run_id", runID[:8])
	runLog.Infof("Starting run for years %d-%d into %s", cfg.Years.From, cfg.Years.To, cfg.OutputDir)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		runLog.Errorf("Cannot create output directory: %v", err)
		return 1
	}

	// Signal handling: first signal cancels gracefully (in-flight transfers
	// finish), second one forces exit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		runLog.Warnf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			runLog.Warnf("Received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-time.After(2 * cfg.RequestTimeout):
			runLog.Warn("Graceful shutdown period exceeded, forcing exit")
			os.Exit(1)
		}
	}()

	// Manifest database
	manifest, err := storage.NewBadgerManifest(cfg.StateDir, runLog.WithField("component", "manifest"))
	if err != nil {
		runLog.Errorf("Cannot open manifest: %v", err)
		return 1
	}
	defer manifest.Close()

	gcCtx, gcCancel := context.WithCancel(context.Background())
	defer gcCancel()
	go manifest.RunGC(gcCtx, 5*time.Minute)

	// HTTP plumbing shared by listing and document fetches
	client := fetch.NewClient(cfg.HTTPClientSettings, cfg.RequestTimeout, log)
	fetcher := fetch.NewFetcher(client, cfg.UserAgent, log)
	limiter := fetch.NewRateLimiter(cfg.DelayPerHost, log)

	prog, err := progress.NewProgressLog(filepath.Join(cfg.OutputDir, progressLogName), runID, runLog.WithField("component", "progress"))
	if err != nil {
		runLog.Errorf("Cannot open progress log: %v", err)
		return 1
	}
	defer prog.Close()

	extractor := extract.NewLinkExtractor(cfg.HeadingSelector, cfg.DocumentExtensions, runLog.WithField("component", "extract"))
	scheduler := schedule.NewScheduler(fetcher, limiter, manifest, cfg, runID, runLog.WithField("component", "schedule"))
	orch := orchestrate.New(cfg, client, fetcher, extractor, scheduler, limiter, prog, runLog.WithField("component", "orchestrate"))

	summary, err := orch.Run(ctx)
	if err != nil {
		runLog.Errorf("Run aborted: %v", err)
		printSummary(os.Stderr, summary)
		return 1
	}

	if treeErr := utils.WriteTreeReport(cfg.OutputDir, filepath.Join(cfg.OutputDir, "structure.txt"), runLog); treeErr != nil {
		runLog.Warnf("Could not write tree report: %v", treeErr)
	}

	printSummary(os.Stdout, summary)
	if summary.Failed > 0 {
		return 1
	}
	return 0
}

// printSummary renders the end-of-run summary
func printSummary(w io.Writer, s models.RunSummary) {
	fmt.Fprintf(w, "\nRun complete in %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Succeeded: %d (%d bytes)\n", s.Succeeded, s.TotalBytes)
	fmt.Fprintf(w, "  Failed:    %d\n", s.Failed)
	fmt.Fprintf(w, "  Skipped:   %d\n", s.Skipped)
	fmt.Fprintf(w, "  Warnings:  %d\n", s.Warnings)

	if len(s.FailureReasons) > 0 {
		fmt.Fprintln(w, "  Failure reasons:")
		reasons := make([]string, 0, len(s.FailureReasons))
		for reason := range s.FailureReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(w, "    %-20s %d\n", reason, s.FailureReasons[reason])
		}
	}
}

// runVerify handles the verify subcommand
func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	checkHash := fs.Bool("hash", false, "Recompute SHA-256 of each file against the manifest")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: records-scraper verify [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	cfg := loadAndValidateConfig(*configFile, log)

	os.Exit(executeVerify(cfg, *checkHash, log))
}

// executeVerify walks the manifest and checks every successfully retrieved
// document still exists on disk, is non-empty, and (with -hash) matches its
// recorded digest.
func executeVerify(cfg *config.AppConfig, checkHash bool, log *logrus.Logger) int {
	manifest, err := storage.NewBadgerManifest(cfg.StateDir, log.WithField("component", "manifest"))
	if err != nil {
		log.Errorf("Cannot open manifest: %v", err)
		return 1
	}
	defer manifest.Close()

	checked, missing, empty, mismatched := 0, 0, 0, 0
	err = manifest.EachDocument(func(url string, entry *models.DocumentDBEntry) error {
		if entry.Status != models.StatusSucceeded {
			return nil
		}
		checked++

		info, statErr := os.Stat(entry.LocalPath)
		if statErr != nil {
			missing++
			fmt.Printf("MISSING  %s (%s)\n", entry.LocalPath, url)
			return nil
		}
		if info.Size() == 0 {
			empty++
			fmt.Printf("EMPTY    %s (%s)\n", entry.LocalPath, url)
			return nil
		}
		if checkHash && entry.SHA256 != "" {
			sha, hashErr := utils.CalculateFileSHA256(entry.LocalPath)
			if hashErr != nil {
				log.Warnf("Cannot hash %s: %v", entry.LocalPath, hashErr)
				return nil
			}
			if sha != entry.SHA256 {
				mismatched++
				fmt.Printf("MODIFIED %s (%s)\n", entry.LocalPath, url)
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("Verify walk failed: %v", err)
		return 1
	}

	fmt.Printf("\nVerified %d retrieved documents: %d missing, %d empty, %d modified\n",
		checked, missing, empty, mismatched)
	if missing+empty+mismatched > 0 {
		return 1
	}
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: records-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: %d listing pages (%d-%d), output to %s\n",
		cfg.Years.To-cfg.Years.From+1, cfg.Years.From, cfg.Years.To, cfg.OutputDir)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
