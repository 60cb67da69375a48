package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/cpgagent/internal/config"
	"github.com/kalambet/cpgagent/internal/loader"
	"github.com/kalambet/cpgagent/internal/tools"
)

var version = "dev"

var (
	noColor  bool
	dataPath string
)

var rootCmd = &cobra.Command{
	Use:   "cpgagent",
	Short: "Sales analytics for CPG retail data",
	Long: `cpgagent answers trend, anomaly and what-if questions over a retail sales
table (date, store, SKU, category, units, revenue, price, promotion, inventory).

Data comes from the local warehouse (see "cpgagent import"), a CSV, XLSX or
Parquet file, or a SQLite or Postgres table, as set by data.source.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "read sales from this CSV, XLSX or Parquet file instead of data.source")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cpgagent version %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration, applies the --data override and installs
// the default logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if dataPath != "" {
		cfg.Data.Source = config.SourceFile
		cfg.Data.Path = dataPath
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func runnerDefaults(cfg config.Config) tools.Defaults {
	return tools.Defaults{
		SpikeThreshold: cfg.Analysis.SpikeThreshold,
		CriticalLevel:  int64(cfg.Analysis.CriticalLevel),
		Elasticity:     cfg.Analysis.DefaultElasticity,
	}
}

func sourceFor(cfg config.Config) loader.Source {
	return loader.Source{
		Kind:  cfg.Data.Source,
		Path:  cfg.Data.Path,
		Table: cfg.Data.Table,
		DSN:   cfg.Warehouse.PostgresDSN,
	}
}
