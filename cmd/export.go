package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yorulabs/leadgen-cli/internal/export"
)

var (
	exportXLSX bool
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write a run's CSV and JSON summary artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		var opts []export.Option
		if exportOut != "" {
			opts = append(opts, export.WithCSVFilename(exportOut))
		}
		exporter := export.New(st, cfg.Export.Dir, opts...)

		csvArt, err := exporter.ExportCSV(ctx, run)
		if err != nil {
			return err
		}
		jsonArt, err := exporter.ExportJSON(ctx, run)
		if err != nil {
			return err
		}

		artifacts := []string{csvArt.Path, jsonArt.Path}
		if exportXLSX {
			xlsxArt, err := exporter.ExportXLSX(ctx, run)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, xlsxArt.Path)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":    run.ID,
			"rows":      csvArt.Rows,
			"artifacts": artifacts,
		})
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "also write an XLSX workbook")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "CSV filename override (default leads_<date>.csv)")
	rootCmd.AddCommand(exportCmd)
}
