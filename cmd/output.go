package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/review-compare/internal/compare"
	"github.com/sells-group/review-compare/internal/model"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// writeStructured encodes v as JSON or YAML. It reports false for the table
// format so callers fall through to their own tabular rendering.
func writeStructured(out io.Writer, format string, v any) (bool, error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, eris.Wrap(enc.Encode(v), "output: encode json")
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, eris.Wrap(err, "output: encode yaml")
		}
		return true, eris.Wrap(enc.Close(), "output: close yaml")
	default:
		return false, nil
	}
}

// formatBusinesses writes a tabular list of search results to out.
func formatBusinesses(out io.Writer, records []model.BusinessRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PLACE_ID\tNAME\tRATING\tREVIEWS\t5★\t4★\t3★\t2★\t1★\tADDRESS")
	_, _ = fmt.Fprintln(w, "--------\t----\t------\t-------\t--\t--\t--\t--\t--\t-------")

	for _, r := range records {
		d := r.Buckets.Descending()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%.0f%%\t%.0f%%\t%.0f%%\t%.0f%%\t%.0f%%\t%s\n",
			truncate(r.PlaceID, 12),
			truncate(r.Name, 30),
			r.AverageRating,
			r.TotalReviews,
			d[0], d[1], d[2], d[3], d[4],
			truncate(r.Address, 40),
		)
	}
	_ = w.Flush()
}

// formatHighlights writes numbered highlights to out.
func formatHighlights(out io.Writer, placeID string, highlights []string) {
	_, _ = fmt.Fprintf(out, "Highlights for %s:\n", placeID)
	for i, h := range highlights {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, h)
	}
}

// formatView writes a side-by-side comparison to out.
func formatView(out io.Writer, v *compare.View) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "METRIC\t%s\t%s\n", truncate(v.A.Record.Name, 30), truncate(v.B.Record.Name, 30))
	_, _ = fmt.Fprintf(w, "Total reviews\t%d\t%d\n", v.A.Record.TotalReviews, v.B.Record.TotalReviews)
	for i, axis := range v.Axes {
		_, _ = fmt.Fprintf(w, "%s\t%.1f\t%.1f\n", axis, v.A.Metrics[i], v.B.Metrics[i])
	}
	_ = w.Flush()

	for _, side := range []compare.Side{v.A, v.B} {
		_, _ = fmt.Fprintln(out)
		formatHighlights(out, side.Record.Name, side.Highlights)
	}
}

// formatHistory writes a tabular list of past searches to out.
func formatHistory(out io.Writer, runs []model.SearchRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tQUERY\tLOCATION\tRESULTS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t-------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			truncateID(r.ID),
			truncate(r.Query, 30),
			truncate(r.Location, 20),
			r.ResultCount,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return string(r)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
