package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/loadtest"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Send concurrent search traffic to a running server and report latency.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadtest.Config{
			BaseURL:     loadURL,
			Concurrency: loadConcurrency,
			Duration:    loadDuration,
			Limit:       appCfg.Search.DefaultLimit,
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Target: %s  concurrency=%d  duration=%s\n\n", cfg.BaseURL, cfg.Concurrency, cfg.Duration)

		client := &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
		report, err := loadtest.Run(cmd.Context(), client, cfg)
		if err != nil {
			return err
		}
		report.Print(out)
		if report.Total == 0 {
			return errors.New("no requests completed; is the service running?")
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().StringVar(&loadURL, "url", "http://localhost:8080", "base URL of the search service")
	loadtestCmd.Flags().IntVar(&loadConcurrency, "concurrency", 10, "number of concurrent workers")
	loadtestCmd.Flags().DurationVar(&loadDuration, "duration", 30*time.Second, "test duration")
}
