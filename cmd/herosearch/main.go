package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"herosearch/internal/config"
	"herosearch/internal/logger"
	"herosearch/internal/model"
	"herosearch/internal/repository"
	"herosearch/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	apiBase    string
	historyDir string
	ephemeral  bool
	seed       int64
	verbose    bool
	jsonOutput bool
	timeout    time.Duration

	cfg *config.Config
	zl  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "herosearch",
	Short: "Search the marketplace the way the hero search modal does",
	Long: `herosearch sends a query to POST /recherche, normalizes the mixed
records it gets back (properties, products, articles, services, trades)
and keeps a local history of recent queries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		zl, err = logger.New(level, "console")
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zl != nil {
			_ = zl.Sync()
		}
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a search and print the normalized results",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistory()
		if err != nil {
			return err
		}

		base := apiBase
		if base == "" {
			base = cfg.Recherche.APIBase
		}
		if base == "" {
			base = "http://localhost:8080"
		}

		var random service.RandomSource
		if cmd.Flags().Changed("seed") {
			random = rand.New(rand.NewSource(seed))
		}

		controller := service.NewStageController(
			service.NewRechercheClient(base, timeout, nil),
			service.NewNormalizer(random, nil),
			history,
			nil,
			zl,
		)
		controller.Open()
		defer controller.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		items := controller.Submit(ctx, strings.Join(args, " "))
		return printItems(cmd.OutOrStdout(), controller.Query(), items)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the local search history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent queries, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistory()
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), history.Entries())
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every recorded query",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistory()
		if err != nil {
			return err
		}
		history.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "base URL of the /recherche API (default $RECHERCHE_API_BASE or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&historyDir, "history-dir", "", "directory holding the history file (default $HISTORY_DIR or the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep history in memory only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	searchCmd.Flags().Int64Var(&seed, "seed", 0, "seed for fallback image selection")

	historyCmd.AddCommand(historyListCmd, historyClearCmd)
	rootCmd.AddCommand(searchCmd, historyCmd)
}

func openHistory() (*service.HistoryStore, error) {
	opts := []service.HistoryOption{
		service.WithHistoryLimit(cfg.History.Limit),
		service.WithHistoryLogger(zl),
	}

	if ephemeral {
		return service.NewHistoryStore(repository.NewMemoryStorage(), cfg.History.Key, opts...), nil
	}

	dir := historyDir
	if dir == "" {
		dir = cfg.History.Dir
	}
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("cannot locate config dir, use --history-dir: %w", err)
		}
		dir = filepath.Join(base, "herosearch")
	}

	storage, err := repository.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}
	return service.NewHistoryStore(storage, cfg.History.Key, opts...), nil
}

func printItems(w io.Writer, query string, items []model.SearchItem) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		if query == "" {
			fmt.Fprintln(w, "Type something to search.")
		} else {
			fmt.Fprintf(w, "No results for %q.\n", query)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tTITLE\tPRICE\tLOCATION\tROUTE")
	for _, item := range items {
		typ := item.Type
		if typ == "" {
			typ = item.SourceTable
		}
		price := "-"
		if item.Price != nil {
			price = fmt.Sprintf("%.2f", *item.Price)
		}
		location := item.Location
		if location == "" {
			location = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", typ, item.Title, price, location, item.Route)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, entries []model.HistoryEntry) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No recent searches.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", time.UnixMilli(e.Date).Format("2006-01-02 15:04"), e.Q)
	}
	return tw.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
