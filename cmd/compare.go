package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/review-compare/internal/compare"
)

var compareCmd = &cobra.Command{
	Use:   "compare <query>",
	Short: "Compare two businesses from a search side by side",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		location, _ := cmd.Flags().GetString("location")
		idA, _ := cmd.Flags().GetString("a")
		idB, _ := cmd.Flags().GetString("b")
		minRating, _ := cmd.Flags().GetFloat64("min-rating")

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		dataset, err := svc.Search.Search(ctx, query, location)
		if err != nil {
			return err
		}

		view, err := svc.Engine.Compare(ctx, dataset, idA, idB, minRating)
		var missing *compare.MissingBusinessError
		if errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "Not in results with rating >= %.1f: %s\n", missing.MinRating, strings.Join(missing.IDs, ", "))
			fmt.Fprintln(os.Stderr, "Try a lower --min-rating or run `search` to pick place ids.")
			return eris.New("compare: business not found")
		}
		if err != nil {
			return err
		}

		if ok, err := writeStructured(os.Stdout, outputFormat, view); ok {
			return err
		}
		formatView(os.Stdout, view)
		return nil
	},
}

func init() {
	compareCmd.Flags().String("location", "", `city/area name or "lat,lng" to bias results`)
	compareCmd.Flags().String("a", "", "place id of the first business")
	compareCmd.Flags().String("b", "", "place id of the second business")
	compareCmd.Flags().Float64("min-rating", 1.0, "only consider businesses rated at least this")
	_ = compareCmd.MarkFlagRequired("a")
	_ = compareCmd.MarkFlagRequired("b")
	rootCmd.AddCommand(compareCmd)
}
