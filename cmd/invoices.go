package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/pkg/models"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Browse invoices saved from this machine",
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved invoices, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInvoices(cmd, func(c *catalog.InvoiceCatalog) error {
			invoices, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), invoices)
			}
			return writeInvoiceTable(cmd.OutOrStdout(), invoices)
		})
	},
}

var invoicesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one saved invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withInvoices(cmd, func(c *catalog.InvoiceCatalog) error {
			rec, err := c.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

var invoicesOpenCmd = &cobra.Command{
	Use:   "open [id]",
	Short: "Copy a saved invoice into the working record for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withInvoices(cmd, func(c *catalog.InvoiceCatalog) error {
			rec, err := c.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			rec.ID, rec.CreatedAt, rec.UpdatedAt = 0, nil, nil
			if err := reconciliation.SaveWorkingRecord(workFile(cmd), rec); err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		})
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved invoice from the local list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withInvoices(cmd, func(c *catalog.InvoiceCatalog) error {
			removed, err := c.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Invoice %d did not exist\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %d\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(invoicesListCmd, invoicesGetCmd, invoicesOpenCmd, invoicesDeleteCmd)

	invoicesListCmd.Flags().Bool("json", false, "Print as JSON")
}

func withInvoices(cmd *cobra.Command, fn func(c *catalog.InvoiceCatalog) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := fn(catalog.NewInvoiceCatalog(store)); err != nil {
		return friendlyError(err)
	}
	return nil
}

func writeInvoiceTable(w io.Writer, invoices []models.InvoiceRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tNUMBER\tSUPPLIER\tDATE\tITEMS\tTOTAL\tVAT\tGRAND TOTAL\t")
	for _, rec := range invoices {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
			rec.ID, rec.InvoiceNumber, rec.SupplierName, rec.Date, len(rec.LineItems),
			formatAmount(rec.TotalAmount), formatAmount(rec.VATAmount), formatAmount(rec.GrandTotal()))
	}
	return tw.Flush()
}
