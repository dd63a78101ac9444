package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eda-explorer/backend/internal/loader"
	"github.com/eda-explorer/backend/internal/models"
)

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <file.xlsx>",
		Short: "List the sheets of an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			names, err := loader.NewRegistry().Sheets(data, models.FileKindExcel)
			if err != nil {
				return err
			}
			for i, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, name)
			}
			return nil
		},
	}
}
