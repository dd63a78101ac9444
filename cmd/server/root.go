package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eda-explorer",
		Short:         "Exploratory data analysis for CSV and Excel files",
		Long:          "eda-explorer loads a delimited or Excel file and describes it: dimensions, field types, summary statistics and value counts. Run `serve` for the browser UI.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSheetsCmd(), newDescribeCmd())
	return root
}

// defaultConfigPath places the config next to the executable, falling back
// to the working directory.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "eda-explorer.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "eda-explorer.yaml")
}
