package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	dataDir  string

	appCfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "musicsearch",
	Short: "Index and search song lyrics and album metadata.",
	Long: `musicsearch builds two on-disk indexes, one over songs joined with their
lyrics and one over albums, and answers boolean and phrase queries against them.

  musicsearch build --config configs/development.yaml
  musicsearch search 'love AND "broken heart"' --field lyricsText
  musicsearch serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if dataDir != "" {
			cfg.Indexer.DataDir = dataDir
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		appCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file; defaults and MS_* env overrides apply without one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override indexer.dataDir")

	rootCmd.AddCommand(buildCmd, searchCmd, serveCmd, lyricsCmd, loadtestCmd)
}
