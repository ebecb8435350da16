package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/internal/categorize"
	"invoicedesk/internal/reconciliation"
)

var editSuggestCmd = &cobra.Command{
	Use:   "suggest-category",
	Short: "Ask OpenAI which product category fits the working record",
	Long: `Send the supplier and the line item names of the working record, with the
category list, to the OpenAI chat model (OPENAI_API_KEY, OPENAI_MODEL) and
print the category it picks. With --apply the category is set on the record.`,
	Args: cobra.NoArgs,
	RunE: runSuggestCategory,
}

func init() {
	editCmd.AddCommand(editSuggestCmd)

	editSuggestCmd.Flags().Bool("apply", false, "Set the suggested category on the working record")
}

func runSuggestCategory(cmd *cobra.Command, args []string) error {
	apply, _ := cmd.Flags().GetBool("apply")

	rec, err := loadWorkingRecord(cmd)
	if err != nil {
		return err
	}

	suggester, err := categorize.NewSuggester()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	categories, err := catalog.NewCategories(store, categorySource()).Load(ctx)
	store.Close()
	if err != nil {
		return friendlyError(err)
	}

	suggestion, err := suggester.Suggest(ctx, rec, categories)
	if err != nil {
		return friendlyError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Suggested category: %d %s\n", suggestion.Category.ID, suggestion.Category.Name)
	if suggestion.Reason != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Reason: %s\n", suggestion.Reason)
	}
	if !apply {
		return nil
	}
	return applyEdits(cmd, reconciliation.Edit{
		Op:    reconciliation.OpSet,
		Field: string(reconciliation.FieldProductCategory),
		Value: suggestion.Category,
	})
}
