package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/lokator/internal/exchange"
	"github.com/erazemk/lokator/internal/report"
)

func (a *app) exportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the inventory with current locations as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = "csv"
				if strings.EqualFold(filepath.Ext(output), ".xlsx") {
					format = "xlsx"
				}
			}
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q (csv or xlsx)", format)
			}
			if format == "xlsx" && output == "" {
				return fmt.Errorf("xlsx export needs --output")
			}

			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.DB.Close()

			rows, err := report.New(s).Inventory(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := writeExport(w, format, rows); err != nil {
				return err
			}
			slog.Info("inventory exported", "items", len(rows), "format", format, "output", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or xlsx (default: from --output extension, else csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func writeExport(w io.Writer, format string, rows []report.InventoryRow) error {
	if format == "xlsx" {
		return exchange.ExportXLSX(w, rows)
	}
	return exchange.ExportCSV(w, rows)
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create items from a CSV file",
		Long: "Create items from a CSV file. The header names the columns: " +
			strings.Join(exchange.ImportColumns, ", ") + ". Only name and item_type are required.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.DB.Close()

			res, err := exchange.ImportCSV(ctx, s, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %d items.\n", len(res.CreatedItems))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", e.Row, e.Error)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d rows were not imported", len(res.Errors))
			}
			return nil
		},
	}
}
