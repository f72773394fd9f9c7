package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaehyunk/mallscraper/internal/browser"
	"github.com/jaehyunk/mallscraper/internal/config"
	"github.com/jaehyunk/mallscraper/internal/crawler"
	"github.com/jaehyunk/mallscraper/internal/profile"
	"github.com/jaehyunk/mallscraper/pkg/logger"
)

func main() {
	var (
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
		startPage = flag.Int("start", 0, "Override catalog start page")
		endPage   = flag.Int("end", 0, "Override catalog end page")
		testMode  = flag.Bool("test", false, "Stop after the configured test product count")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *startPage > 0 {
		cfg.Crawl.StartPage = *startPage
	}
	if *endPage > 0 {
		cfg.Crawl.EndPage = *endPage
	}
	if *testMode {
		cfg.Crawl.TestMode = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting mall scraper",
		"site", cfg.Site.Code,
		"pages", fmt.Sprintf("%d-%d", cfg.Crawl.StartPage, cfg.Crawl.EndPage))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	browserOpts := &browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	}

	b, err := browser.New(browserOpts)
	if err != nil {
		log.Fatalf("Failed to start browser: %v", err)
	}
	defer b.Close()

	profiles, err := profile.NewStore(cfg.Output.BaseDir)
	if err != nil {
		log.Fatalf("Failed to prepare profile store: %v", err)
	}

	c := crawler.New(cfg, b, profiles, promptManualLogin)

	summary, err := c.Run(ctx)
	if err != nil {
		if summary != nil {
			printSummary(summary)
		}
		log.Fatalf("Crawl failed: %v", err)
	}

	printSummary(summary)
}

// promptManualLogin blocks until the operator confirms they logged in through
// the visible browser window, or the run is cancelled.
func promptManualLogin(ctx context.Context, loginURL string) error {
	fmt.Printf("\nAutomated login failed. Log in manually in the browser window (%s), then press Enter to continue...\n", loginURL)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(os.Stdin).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func printSummary(s *crawler.Summary) {
	fmt.Printf("\n=== Crawl summary ===\n")
	fmt.Printf("Attempted: %d\n", s.Attempted)
	fmt.Printf("Succeeded: %d\n", s.Succeeded)
	fmt.Printf("Skipped:   %d\n", s.Skipped)
	fmt.Printf("Failed:    %d\n", s.Failed)
	if s.ExcelPath != "" {
		fmt.Printf("Excel:     %s\n", s.ExcelPath)
	}
	fmt.Printf("Images:    %s\n", s.OutputDir)
}
