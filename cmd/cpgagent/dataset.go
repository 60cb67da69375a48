package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/cpgagent/internal/config"
	"github.com/kalambet/cpgagent/internal/loader"
	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/storage"
)

// loadTable reads the sales table selected by cfg. The warehouse source
// reads records previously imported into store.
func loadTable(ctx context.Context, cfg config.Config, store *storage.Store) (*sales.Table, error) {
	if cfg.Data.Source == config.SourceWarehouse {
		n, err := store.CountSalesRecords()
		if err != nil {
			return nil, fmt.Errorf("counting warehouse records: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("the warehouse is empty; run \"cpgagent import --file <path>\" or pass --data")
		}
		recs, err := store.SalesRecords()
		if err != nil {
			return nil, fmt.Errorf("reading warehouse: %w", err)
		}
		return sales.NewTable(recs)
	}

	src := sourceFor(cfg)
	tbl, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src, err)
	}
	return tbl, nil
}

// openWorkspace opens the local store and loads the configured table.
func openWorkspace(ctx context.Context, cfg config.Config) (*storage.Store, *sales.Table, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	tbl, err := loadTable(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, tbl, nil
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a sales file into the local warehouse",
	Long: `Import a sales file into the local warehouse, replacing its contents.

Examples:
  cpgagent import --file ./cpg_sales.csv
  cpgagent import --file ./q1.xlsx
  cpgagent import --file ./history.parquet`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		start := time.Now()
		printStep("Reading %s...", file)
		tbl, err := loader.Load(cmd.Context(), loader.Source{Kind: loader.SourceFile, Path: file})
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if err := store.ReplaceSalesRecords(tbl.Records()); err != nil {
			return err
		}
		printSuccess("Imported %d records in %s", tbl.Len(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "CSV, XLSX or Parquet file to import")
}

// --- dataset ---

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Summarize the loaded sales data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, tbl, err := openWorkspace(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		sum := sales.Summarize(tbl)
		if asJSON {
			return writeJSON(os.Stdout, sum)
		}
		printSummary(sum)
		return nil
	},
}

func init() {
	datasetCmd.Flags().Bool("json", false, "print the summary as JSON")
}

func printSummary(sum sales.Summary) {
	printStatus("Records", "%d", sum.Records)
	printStatus("Stores", "%d", sum.Stores)
	printStatus("SKUs", "%d", sum.SKUs)
	printStatus("Categories", "%s", joinOrNone(sum.Categories))
	if sum.FirstDate != "" {
		printStatus("Dates", "%s to %s", sum.FirstDate, sum.LastDate)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
