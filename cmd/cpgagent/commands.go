package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/cpgagent/internal/api"
	"github.com/kalambet/cpgagent/internal/config"
	"github.com/kalambet/cpgagent/internal/storage"
	"github.com/kalambet/cpgagent/internal/tools"
)

// --- tools ---

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the analysis tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, e := range tools.Catalog() {
			fmt.Printf("%s\n  %s\n", colorize(colorBold, string(e.Kind)), e.Description)
			if e.Input != "" {
				fmt.Printf("  example: cpgagent run %s --input %q\n", e.Kind, e.Input)
			}
		}
		return nil
	},
}

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Run one analysis tool",
	Long: `Run one analysis tool and print its result as JSON.

Arguments are given either as the tool's plain input string or as a JSON object.

Examples:
  cpgagent run category_trends --input W
  cpgagent run sales_spikes --input 2.5
  cpgagent run simulate_price_change --input "101,-0.1,-1.2"
  cpgagent run simulate_promotion --json '{"category":"Snacks","promo_uplift_pct":0.2,"promo_cost_per_unit":0.5}'
  cpgagent run store_performance --input revenue --remote`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		jsonArgs, _ := cmd.Flags().GetString("json")
		remote, _ := cmd.Flags().GetBool("remote")

		kind, err := tools.ParseKind(args[0])
		if err != nil {
			return fmt.Errorf("%w; see \"cpgagent tools\"", err)
		}
		call, err := buildCall(kind, input, jsonArgs)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var res api.Result
		if remote {
			resp, err := newAPIClientFor(cfg).post(cmd.Context(), "/v1/tools/"+string(kind), call)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &res); err != nil {
				return err
			}
		} else {
			store, tbl, err := openWorkspace(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			exec := api.NewExecutor(tools.NewRunner(tbl, runnerDefaults(cfg)), store)
			res, err = exec.Execute(call)
			if err != nil {
				return err
			}
		}

		if res.NoData != "" {
			printWarning("%s", res.NoData)
		}
		return writeJSON(os.Stdout, res)
	},
}

func init() {
	runCmd.Flags().String("input", "", "plain input string, e.g. W or \"101,-0.1\"")
	runCmd.Flags().String("json", "", "arguments as a JSON object")
	runCmd.Flags().Bool("remote", false, "run on the server started with \"cpgagent serve\"")
	runCmd.MarkFlagsMutuallyExclusive("input", "json")
}

func buildCall(kind tools.Kind, input, jsonArgs string) (tools.Call, error) {
	if jsonArgs != "" {
		return tools.Decode(kind, []byte(jsonArgs))
	}
	return tools.ParseInput(kind, input)
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the standard trend and anomaly report",
	Long: `Run category trends (weekly), store performance (revenue), seasonality,
sales spikes, stock shortages and failed promotions concurrently with default
arguments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if workers <= 0 {
			workers = cfg.Analysis.Workers
		}

		store, tbl, err := openWorkspace(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		start := time.Now()
		runner := tools.NewRunner(tbl, runnerDefaults(cfg))
		outs, err := runner.RunAll(cmd.Context(), tools.StandardReport(), workers)
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(os.Stdout, outs)
		}
		for _, out := range outs {
			fmt.Printf("\n%s %s\n", colorize(colorBold, string(out.Kind)), colorize(colorCyan, sectionSize(out.Result)))
			if err := writeJSON(os.Stdout, out.Result); err != nil {
				return err
			}
		}
		printSuccess("Report over %d records finished in %s", tbl.Len(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	reportCmd.Flags().Int("workers", 0, "concurrent tools (default analysis.workers)")
	reportCmd.Flags().Bool("json", false, "print the whole report as one JSON array")
}

// sectionSize describes the number of rows in a result for the report header.
func sectionSize(result any) string {
	b, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	var rows []json.RawMessage
	if json.Unmarshal(b, &rows) == nil {
		return fmt.Sprintf("(%d rows)", len(rows))
	}
	var rep struct {
		Rows     []json.RawMessage `json:"rows"`
		Excluded []json.RawMessage `json:"excluded"`
	}
	if json.Unmarshal(b, &rep) == nil && rep.Rows != nil {
		if len(rep.Excluded) > 0 {
			return fmt.Sprintf("(%d flagged, %d excluded)", len(rep.Rows), len(rep.Excluded))
		}
		return fmt.Sprintf("(%d flagged)", len(rep.Rows))
	}
	return ""
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded tool runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(limit, 0)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		for _, r := range runs {
			status := colorize(colorGreen, r.Status)
			if r.Status == storage.RunFailed {
				status = colorize(colorRed, r.Status)
			}
			fmt.Printf("%s  %s  %-22s %s  %s\n",
				colorize(colorCyan, shortID(r.ID)),
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Tool,
				status,
				truncate(r.ArgsJSON, 60),
			)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single run with its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		r, err := store.GetRun(args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, runDocument(r))
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRun(args[0]); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			return err
		}
		printSuccess("Deleted run %s", args[0])
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(toolsCmd)
}

func openStore() (*storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func runDocument(r storage.Run) map[string]any {
	doc := map[string]any{
		"id":          r.ID,
		"created_at":  r.CreatedAt.Format(time.RFC3339),
		"tool":        r.Tool,
		"status":      r.Status,
		"duration_ms": r.DurationMs,
		"args":        json.RawMessage(r.ArgsJSON),
	}
	if r.ResultJSON != "" {
		doc["result"] = json.RawMessage(r.ResultJSON)
	}
	if r.Error != "" {
		doc["error"] = r.Error
	}
	return doc
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", ") +
		".\nSecrets (server.api_token, warehouse.postgres_dsn) are read from the environment or the platform secret store.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
