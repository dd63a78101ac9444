package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eda-explorer/backend/internal/describe"
	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/models"
)

type describeOptions struct {
	kind      string
	sheet     string
	headerRow int
	view      string
	field     string
	format    string
}

func newDescribeCmd() *cobra.Command {
	var opts describeOptions
	cmd := &cobra.Command{
		Use:   "describe <file>",
		Short: "Print one descriptive view of a CSV or Excel file",
		Example: `  eda-explorer describe sales.csv --view summary-statistics
  eda-explorer describe book.xlsx --sheet Data --header-row 2 --view value-counts --field Region --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd.OutOrStdout(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", "", "file kind: csv or excel (default: from the extension)")
	f.StringVar(&opts.sheet, "sheet", "", "workbook sheet (default: first sheet)")
	f.IntVar(&opts.headerRow, "header-row", 0, "0-based row holding the column names (Excel only)")
	f.StringVar(&opts.view, "view", string(models.ViewDimensions), "dimensions, field-descriptions, summary-statistics or value-counts")
	f.StringVar(&opts.field, "field", "", "text field for value-counts")
	f.StringVar(&opts.format, "format", "table", "output format: table, json or yaml")
	return cmd
}

func runDescribe(w io.Writer, path string, opts describeOptions) error {
	view, err := models.ParseViewKind(opts.view)
	if err != nil {
		return err
	}
	hints, err := opts.hints(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	t, err := loader.NewRegistry().Load(data, hints)
	if err != nil {
		return err
	}
	res, err := describe.Describe(t, models.ViewSelection{Kind: view, Field: opts.field})
	if err != nil {
		return err
	}

	switch strings.ToLower(opts.format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Payload())
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(res.Payload())
	case "table":
		return writeTable(w, res)
	}
	return fmt.Errorf("unknown format %q", opts.format)
}

func (o describeOptions) hints(path string) (models.LoadHints, error) {
	kind := models.GuessFileKind(path)
	if o.kind != "" {
		k, err := models.ParseFileKind(o.kind)
		if err != nil {
			return models.LoadHints{}, err
		}
		kind = k
	}
	h := models.LoadHints{Kind: kind, SheetName: o.sheet, HeaderRow: o.headerRow}.Normalize()
	if err := h.Validate(); err != nil {
		return models.LoadHints{}, err
	}
	return h, nil
}

// writeTable renders a view as aligned columns.
func writeTable(w io.Writer, res *models.ViewResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if res.Dimensions != nil {
		fmt.Fprintf(tw, "rows\t%d\ncolumns\t%d\n", res.Dimensions.Rows, res.Dimensions.Columns)
		return tw.Flush()
	}

	header := res.Columns
	if len(res.Index) > 0 {
		header = append([]string{""}, header...)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range res.Rows {
		cells := make([]string, 0, len(row)+1)
		if len(res.Index) > 0 {
			cells = append(cells, res.Index[i])
		}
		for _, v := range row {
			cells = append(cells, v.String())
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
