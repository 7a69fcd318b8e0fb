package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/review-compare/internal/model"
	"github.com/sells-group/review-compare/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved search history",
	Long:  "Commands for listing, viewing, summarizing and pruning saved searches.",
}

// openHistory opens and migrates the configured history store.
func openHistory(cmd *cobra.Command) (store.Store, error) {
	ctx := cmd.Context()
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListSearches(cmd.Context(), store.HistoryFilter{Query: query, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "history list")
		}

		if ok, err := writeStructured(os.Stdout, outputFormat, runs); ok {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No searches found.")
			return nil
		}
		formatHistory(os.Stdout, runs)
		return nil
	},
}

// -- history show --

var historyShowCmd = &cobra.Command{
	Use:   "show <search-id>",
	Short: "Show a saved search with its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetSearch(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}

		if ok, err := writeStructured(os.Stdout, outputFormat, run); ok {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s  %q in %q  (%s)\n\n", run.ID, run.Query, run.Location, run.CreatedAt.Format(time.RFC3339))
		formatBusinesses(os.Stdout, run.Businesses)
		return nil
	},
}

// -- history stats --

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate search statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListSearches(cmd.Context(), store.HistoryFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "history stats")
		}

		stats := computeHistoryStats(runs, time.Now().Add(-since))
		if ok, err := writeStructured(os.Stdout, outputFormat, stats); ok {
			return err
		}
		formatHistoryStats(os.Stdout, stats)
		return nil
	},
}

// -- history prune --

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete saved searches older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return eris.New("history prune: --older-than must be positive")
		}

		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteSearchesBefore(cmd.Context(), time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "history prune")
		}

		zap.L().Info("history pruned", zap.Int("deleted", n), zap.Duration("older_than", olderThan))
		fmt.Fprintf(os.Stderr, "Deleted %d searches.\n", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().String("query", "", "only show searches with this exact query")
	historyListCmd.Flags().Int("limit", 50, "max number of searches to display")
	historyListCmd.Flags().Int("offset", 0, "number of searches to skip")

	historyStatsCmd.Flags().Duration("since", 7*24*time.Hour, "time window for stats (e.g. 24h, 168h)")

	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete searches older than this")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// historyStats holds aggregate statistics computed from saved searches.
type historyStats struct {
	Total      int            `json:"total" yaml:"total"`
	Empty      int            `json:"empty" yaml:"empty"`
	AvgResults float64        `json:"avg_results" yaml:"avg_results"`
	TopQueries map[string]int `json:"queries" yaml:"queries"`
}

// computeHistoryStats summarizes runs created at or after since.
func computeHistoryStats(runs []model.SearchRun, since time.Time) historyStats {
	s := historyStats{TopQueries: make(map[string]int)}

	var results int
	for _, r := range runs {
		if r.CreatedAt.Before(since) {
			continue
		}
		s.Total++
		s.TopQueries[r.Query]++
		results += r.ResultCount
		if r.ResultCount == 0 {
			s.Empty++
		}
	}

	if s.Total > 0 {
		s.AvgResults = float64(results) / float64(s.Total)
	}
	return s
}

// formatHistoryStats writes aggregate stats to out.
func formatHistoryStats(out io.Writer, s historyStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Searches:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Empty:\t%d\n", s.Empty)
	_, _ = fmt.Fprintf(w, "Distinct queries:\t%d\n", len(s.TopQueries))
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Avg results:\t%.1f\n", s.AvgResults)
	}
	_ = w.Flush()
}
