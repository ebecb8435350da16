package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/pkg/models"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List product categories",
	Long: `List the product categories. They are fetched once from CATEGORIES_URL,
or the back-end's /categories, and cached in the local store. When neither
is reachable a short built-in list is shown and nothing is cached.`,
	Args: cobra.NoArgs,
	RunE: runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)

	categoriesCmd.Flags().Bool("refresh", false, "Drop the cache and fetch again")
	categoriesCmd.Flags().Bool("json", false, "Print as JSON")
}

func runCategories(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := catalog.NewCategories(store, categorySource())
	var categories []models.Category
	if refresh {
		categories, err = cache.Refresh(ctx)
	} else {
		categories, err = cache.Load(ctx)
	}
	if err != nil {
		return friendlyError(err)
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), categories)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, c := range categories {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Description)
	}
	return tw.Flush()
}
