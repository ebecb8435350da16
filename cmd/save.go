package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Validate the working record and save it to the back-end",
	Long: `Check that the working record has an invoice number, a product category
and at least one line item, then send it to the back-end's /ocr-invoices.
On success the saved invoice is also kept in the local invoice list.`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().Bool("local-only", false, "Skip the back-end and keep the invoice locally")
}

func runSave(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("save")
	localOnly, _ := cmd.Flags().GetBool("local-only")

	rec, err := loadWorkingRecord(cmd)
	if err != nil {
		return err
	}
	if err := invoice.ValidateForSave(rec); err != nil {
		return friendlyError(err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if !localOnly {
		saved, err := backendClient().PersistInvoice(ctx, rec)
		if err != nil {
			return friendlyError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved invoice %s (id %d, total %s)\n",
			saved.InvoiceNumber, saved.ID, formatAmount(saved.TotalAmount))
	}

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	local, err := catalog.NewInvoiceCatalog(store).Create(ctx, rec)
	if err != nil {
		if localOnly {
			return fmt.Errorf("failed to save locally: %w", err)
		}
		return fmt.Errorf("saved to the back-end but not locally: %w", err)
	}

	log.Info().
		Int("local_id", local.ID).
		Str("invoice_number", local.InvoiceNumber).
		Float64("total_amount", local.TotalAmount).
		Msg("Invoice saved")

	if localOnly {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved invoice %s locally (id %d)\n", local.InvoiceNumber, local.ID)
	}
	return nil
}
