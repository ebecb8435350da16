package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/pkg/models"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Correct the working invoice record",
	Long: `Apply corrections to the working record. Each edit recomputes the
derived amounts and writes the record back:

  line total   = quantity x unit price (only when either changes)
  total amount = sum of line totals
  VAT amount   = floor(total amount x VAT rate / 100)

Numbers that cannot be parsed are stored as 0.`,
}

var editSetCmd = &cobra.Command{
	Use:   "set [field] [value]",
	Short: "Set invoiceNumber, supplierName, date or productCategory",
	Example: `  invoicedesk edit set invoiceNumber HD00123
  invoicedesk edit set supplierName "CTY TNHH ABC"
  invoicedesk edit set productCategory 2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field := reconciliation.Field(args[0])
		var value any = args[1]
		if field == reconciliation.FieldProductCategory {
			category, err := lookupCategory(cmd, args[1])
			if err != nil {
				return err
			}
			value = category
		}
		return applyEdits(cmd, reconciliation.Edit{Op: reconciliation.OpSet, Field: string(field), Value: value})
	},
}

var editVATCmd = &cobra.Command{
	Use:     "vat [rate]",
	Short:   "Set the VAT rate in percent",
	Example: `  invoicedesk edit vat 8`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyEdits(cmd, reconciliation.Edit{Op: reconciliation.OpVAT, Value: args[0]})
	},
}

var editItemCmd = &cobra.Command{
	Use:   "item [index] [field] [value]",
	Short: "Set productName, quantity, unitPrice or total of a line item",
	Example: `  invoicedesk edit item 0 quantity 12
  invoicedesk edit item 1 productName "Giấy A4"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid line item index %q", args[0])
		}
		return applyEdits(cmd, reconciliation.Edit{Op: reconciliation.OpItem, Index: index, Field: args[1], Value: args[2]})
	},
}

var editAddItemCmd = &cobra.Command{
	Use:   "add-item",
	Short: "Append an empty line item (quantity 1)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyEdits(cmd, reconciliation.Edit{Op: reconciliation.OpAddItem})
	},
}

var editRemoveItemCmd = &cobra.Command{
	Use:   "remove-item [index]",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid line item index %q", args[0])
		}
		return applyEdits(cmd, reconciliation.Edit{Op: reconciliation.OpRemoveItem, Index: index})
	},
}

var editApplyCmd = &cobra.Command{
	Use:   "apply [edits.json]",
	Short: "Apply a JSON list of edits; nothing is written if one fails",
	Example: `  echo '[{"op":"vat","value":8},{"op":"item","index":0,"field":"quantity","value":3}]' | invoicedesk edit apply -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open edits: %w", err)
			}
			defer f.Close()
			r = f
		}
		var edits []reconciliation.Edit
		if err := json.NewDecoder(r).Decode(&edits); err != nil {
			return fmt.Errorf("failed to decode edits: %w", err)
		}
		return applyEdits(cmd, edits...)
	},
}

var editShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the working record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := loadWorkingRecord(cmd)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		printRecord(cmd.OutOrStdout(), rec)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.AddCommand(editSetCmd, editVATCmd, editItemCmd, editAddItemCmd, editRemoveItemCmd, editApplyCmd, editShowCmd)

	editShowCmd.Flags().Bool("json", false, "Print the record as JSON")
}

// applyEdits runs edits in one session and writes the record only when all succeed.
func applyEdits(cmd *cobra.Command, edits ...reconciliation.Edit) error {
	log := logger.WithComponent("edit")

	rec, err := loadWorkingRecord(cmd)
	if err != nil {
		return err
	}

	session := reconciliation.NewSession(rec)
	for i, e := range edits {
		if err := session.Apply(e); err != nil {
			return fmt.Errorf("edit %d (%s): %w", i+1, e.Op, err)
		}
	}

	updated := session.Snapshot()
	if err := reconciliation.SaveWorkingRecord(workFile(cmd), updated); err != nil {
		return err
	}

	log.Debug().Str("session", session.String()).Int("edits", session.Edits()).Msg("Working record updated")
	printRecord(cmd.OutOrStdout(), updated)
	return nil
}

func lookupCategory(cmd *cobra.Command, arg string) (any, error) {
	if arg == "" || arg == "none" {
		return nil, nil
	}
	id, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("category must be a numeric id, got %q", arg)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	return findCategory(ctx, cmd, id)
}

func findCategory(ctx context.Context, cmd *cobra.Command, id int) (models.Category, error) {
	store, err := openStore(ctx, cmd)
	if err != nil {
		return models.Category{}, err
	}
	defer store.Close()

	category, err := catalog.NewCategories(store, categorySource()).Find(ctx, id)
	if err != nil {
		return models.Category{}, friendlyError(err)
	}
	return category, nil
}

func printRecord(w io.Writer, rec models.InvoiceRecord) {
	category := "-"
	if rec.ProductCategory != nil {
		category = fmt.Sprintf("%d %s", rec.ProductCategory.ID, rec.ProductCategory.Name)
	}
	fmt.Fprintf(w, "Invoice:   %s\n", rec.InvoiceNumber)
	fmt.Fprintf(w, "Supplier:  %s\n", rec.SupplierName)
	fmt.Fprintf(w, "Date:      %s\n", rec.Date)
	fmt.Fprintf(w, "Category:  %s\n", category)
	fmt.Fprintln(w, "Items:")
	for i, item := range rec.LineItems {
		fmt.Fprintf(w, "  [%d] %-30s %8s x %12s = %14s\n", i, item.ProductName,
			formatAmount(item.Quantity), formatAmount(item.UnitPrice), formatAmount(item.Total))
	}
	fmt.Fprintf(w, "Total:       %s\n", formatAmount(rec.TotalAmount))
	fmt.Fprintf(w, "VAT (%s%%):  %s\n", formatAmount(rec.VATRate), formatAmount(rec.VATAmount))
	fmt.Fprintf(w, "Grand total: %s\n", formatAmount(reconciliation.GrandTotal(rec)))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
