// Package export writes a search dataset as CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/review-compare/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet name used for XLSX output.
const SheetName = "Businesses"

// Columns defines the ordered output columns.
var Columns = []string{
	"Place ID",
	"Name",
	"Address",
	"Average Rating",
	"Total Reviews",
	"Sampled Reviews",
	"5 Star %",
	"4 Star %",
	"3 Star %",
	"2 Star %",
	"1 Star %",
	"Photo Reference",
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unsupported file extension %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// ToFile writes records to path in the format implied by its extension.
func ToFile(path string, records []model.BusinessRecord) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	if format == FormatXLSX {
		err = WriteXLSX(f, records)
	} else {
		err = WriteCSV(f, records)
	}
	if err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, records []model.BusinessRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single-sheet workbook with typed numeric cells.
func WriteXLSX(w io.Writer, records []model.BusinessRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.PlaceID)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Address)
		row.AddCell().SetFloat(r.AverageRating)
		row.AddCell().SetInt(r.TotalReviews)
		row.AddCell().SetInt(r.SampledReviews)
		for _, pct := range r.Buckets.Descending() {
			row.AddCell().SetFloat(round2(pct))
		}
		row.AddCell().SetString(r.PhotoReference)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// Row renders a record as CSV cells in Columns order.
func Row(r model.BusinessRecord) []string {
	row := []string{
		r.PlaceID,
		r.Name,
		r.Address,
		strconv.FormatFloat(r.AverageRating, 'f', -1, 64),
		strconv.Itoa(r.TotalReviews),
		strconv.Itoa(r.SampledReviews),
	}
	for _, pct := range r.Buckets.Descending() {
		row = append(row, strconv.FormatFloat(pct, 'f', 2, 64))
	}
	return append(row, r.PhotoReference)
}

func round2(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return v
}
