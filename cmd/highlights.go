package main

import (
	"os"

	"github.com/spf13/cobra"
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights <place-id>",
	Short: "Show the top review excerpts for a place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		n, _ := cmd.Flags().GetInt("count")
		if n <= 0 {
			n = cfg.Highlights.Count
		}

		svc, err := initServices(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		highlights, err := svc.Selector.Fetch(ctx, args[0], n)
		if err != nil {
			return err
		}

		out := map[string]any{"place_id": args[0], "highlights": highlights}
		if ok, err := writeStructured(os.Stdout, outputFormat, out); ok {
			return err
		}
		formatHighlights(os.Stdout, args[0], highlights)
		return nil
	},
}

func init() {
	highlightsCmd.Flags().Int("count", 0, "number of highlights (default from config)")
	rootCmd.AddCommand(highlightsCmd)
}
