package main

import (
	"fmt"

	"budget-tracker/internal/export"
	"budget-tracker/internal/logging"
	"budget-tracker/internal/models"

	"github.com/spf13/cobra"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		username, format string
		dates            rangeFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "write the ledger to CSV files or a JSON snapshot",
		Long: `Write every income, expense and goal of an account to one CSV file per kind
plus a summary file, or with --format json to a single snapshot. --from and
--to restrict the export to a range of days.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "user"); err != nil {
				return err
			}
			if format != export.FormatCSV && format != export.FormatJSON {
				return fmt.Errorf("%w: unknown format %q", models.ErrValidation, format)
			}
			r, err := dates.value()
			if err != nil {
				return err
			}

			return a.withLedger("export", func(l *ledger, logData *logging.LogData) error {
				accountID, err := l.accountID(username, logData)
				if err != nil {
					return err
				}

				var paths []string
				switch {
				case format == export.FormatJSON:
					path, err := l.exporter.ExportJSON(accountID, r)
					if err != nil {
						return err
					}
					paths = []string{path}
				case r != nil:
					artifacts, err := l.exporter.ExportRange(accountID, r.Start, r.End)
					if err != nil {
						return err
					}
					paths = artifacts.Paths()
				default:
					artifacts, err := l.exporter.Export(accountID)
					if err != nil {
						return err
					}
					paths = artifacts.Paths()
				}

				logData.AddData("files", len(paths))
				out := cmd.OutOrStdout()
				for _, p := range paths {
					fmt.Fprintf(out, "Wrote %s\n", p)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatCSV, "csv or json")
	dates.flags(cmd)
	return cmd
}
