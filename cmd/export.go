package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/review-compare/internal/compare"
	"github.com/sells-group/review-compare/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <query>",
	Short: "Write search results to a CSV or XLSX file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		location, _ := cmd.Flags().GetString("location")
		out, _ := cmd.Flags().GetString("out")
		minRating, _ := cmd.Flags().GetFloat64("min-rating")

		if _, err := export.FormatFor(out); err != nil {
			return err
		}

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		records, err := svc.Search.Search(ctx, query, location)
		if err != nil {
			return err
		}
		svc.record(ctx, query, location, records)

		records = compare.Filter(records, minRating)
		if err := export.ToFile(out, records); err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", out), zap.Int("businesses", len(records)))
		fmt.Fprintf(os.Stderr, "Wrote %d businesses to %s\n", len(records), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("location", "", `city/area name or "lat,lng" to bias results`)
	exportCmd.Flags().String("out", "businesses.xlsx", "output file (.csv or .xlsx)")
	exportCmd.Flags().Float64("min-rating", 0, "only export businesses rated at least this")
	rootCmd.AddCommand(exportCmd)
}
