package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/review-compare/internal/resilience"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search businesses and show their rating distributions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		location, _ := cmd.Flags().GetString("location")

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		records, err := svc.Search.Search(ctx, query, location)
		switch resilience.Classify(err) {
		case resilience.KindNone:
			svc.record(ctx, query, location, records)
		case resilience.KindTransient:
			fmt.Fprintln(os.Stderr, "Places service unavailable, no results:", err)
		default:
			return err
		}

		if ok, err := writeStructured(os.Stdout, outputFormat, records); ok {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No businesses found.")
			return nil
		}
		formatBusinesses(os.Stdout, records)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("location", "", `city/area name or "lat,lng" to bias results`)
	rootCmd.AddCommand(searchCmd)
}
