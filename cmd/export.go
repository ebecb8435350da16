package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/internal/export"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved invoices to an Excel workbook or Google Sheets",
	Long: `Export the locally saved invoices.

  xlsx    - workbook with an Invoices sheet and an Items sheet
  sheets  - append one row per invoice to GOOGLE_SHEET_URL, worksheet
            GOOGLE_SHEET_WORKSHEET (created with a header row if missing).
            Invoices whose ID is already in the sheet are skipped unless
            --all is given.`,
	Example: `  invoicedesk export -o invoices.xlsx
  invoicedesk export --format sheets`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("format", "xlsx", "Export format: xlsx or sheets")
	exportCmd.Flags().StringP("output", "o", "invoices.xlsx", "Workbook path for xlsx")
	exportCmd.Flags().String("worksheet", "", "Worksheet for sheets (default: GOOGLE_SHEET_WORKSHEET)")
	exportCmd.Flags().Bool("all", false, "Append every invoice to the sheet, including ones already exported")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	all, _ := cmd.Flags().GetBool("all")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	invoices, err := catalog.NewInvoiceCatalog(store).List(ctx)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved invoices to export")
		return nil
	}

	switch format {
	case "xlsx":
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputPath, err)
		}
		if err := export.WriteWorkbook(file, invoices); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d invoices to %s\n", len(invoices), outputPath)

	case "sheets":
		c := appConfig()
		if err := c.RequireSheets(); err != nil {
			return err
		}
		if worksheet == "" {
			worksheet = c.GoogleSheetWorksheet
		}
		svc, err := sheets.NewSheetsService(ctx, c.GoogleSheetURL)
		if err != nil {
			return err
		}
		written := len(invoices)
		if all {
			err = svc.AppendInvoices(ctx, worksheet, invoices)
		} else {
			written, err = svc.AppendNewInvoices(ctx, worksheet, invoices)
		}
		if err != nil {
			return friendlyError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Appended %d invoices to worksheet %s\n", written, worksheet)

	default:
		return fmt.Errorf("unknown format %q (use xlsx or sheets)", format)
	}

	log.Info().Str("format", format).Int("invoices", len(invoices)).Msg("Export completed")
	return nil
}
