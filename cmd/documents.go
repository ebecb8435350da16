package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoicedesk/internal/catalog"
	"invoicedesk/pkg/models"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage accounting documents in the local store",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, optionally filtered",
	Example: `  invoicedesk documents list --type internal
  invoicedesk documents list --category 2 --search "hợp đồng"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, _ := cmd.Flags().GetString("type")
		categoryID, _ := cmd.Flags().GetInt("category")
		search, _ := cmd.Flags().GetString("search")

		return withDocuments(cmd, func(svc *catalog.DocumentService) error {
			docs, err := svc.Filter(cmd.Context(), catalog.DocumentFilter{
				DocumentType: docType,
				CategoryID:   categoryID,
				Search:       search,
			})
			if err != nil {
				return err
			}
			return outputDocuments(cmd, docs)
		})
	},
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withDocuments(cmd, func(svc *catalog.DocumentService) error {
			doc, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		})
	},
}

var documentsCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create a document",
	Example: `  invoicedesk documents create --title "Hợp đồng thuê" --category 14 --attachment contract.pdf`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := catalog.DocumentInput{}
		in.Title, _ = cmd.Flags().GetString("title")
		in.Description, _ = cmd.Flags().GetString("description")
		in.DocumentType, _ = cmd.Flags().GetString("type")
		in.CategoryID, _ = cmd.Flags().GetInt("category")
		in.Attachments, _ = cmd.Flags().GetStringSlice("attachment")
		in.CreatedBy, _ = cmd.Flags().GetString("created-by")

		return withDocuments(cmd, func(svc *catalog.DocumentService) error {
			doc, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		})
	},
}

var documentsUpdateCmd = &cobra.Command{
	Use:     "update [id]",
	Short:   "Change fields of a document; unset flags keep their value",
	Example: `  invoicedesk documents update 3 --type internal`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		patch := catalog.DocumentPatch{}
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			patch.Title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			patch.Description = &v
		}
		if flags.Changed("type") {
			v, _ := flags.GetString("type")
			patch.DocumentType = &v
		}
		if flags.Changed("category") {
			v, _ := flags.GetInt("category")
			patch.CategoryID = &v
		}
		if flags.Changed("attachment") {
			patch.Attachments, _ = flags.GetStringSlice("attachment")
		}
		if flags.Changed("created-by") {
			v, _ := flags.GetString("created-by")
			patch.CreatedBy = &v
		}

		return withDocuments(cmd, func(svc *catalog.DocumentService) error {
			doc, err := svc.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		})
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withDocuments(cmd, func(svc *catalog.DocumentService) error {
			removed, err := svc.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Document %d did not exist\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %d\n", id)
			return nil
		})
	},
}

var documentsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count documents by type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocuments(cmd, func(svc *catalog.DocumentService) error {
			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		})
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsListCmd, documentsGetCmd, documentsCreateCmd, documentsUpdateCmd, documentsDeleteCmd, documentsStatsCmd)

	documentsListCmd.Flags().String("type", catalog.FilterAll, "Document type: official, internal or all")
	documentsListCmd.Flags().Int("category", 0, "Only documents of this category id")
	documentsListCmd.Flags().String("search", "", "Case-insensitive text in title or description")
	documentsListCmd.Flags().Bool("json", false, "Print as JSON")

	for _, c := range []*cobra.Command{documentsCreateCmd, documentsUpdateCmd} {
		c.Flags().String("title", "", "Title")
		c.Flags().String("description", "", "Description")
		c.Flags().String("type", models.DocumentTypeOfficial, "Document type: official or internal")
		c.Flags().Int("category", 0, "Product category id")
		c.Flags().StringSlice("attachment", nil, "Attachment name (repeatable)")
		c.Flags().String("created-by", "", "Author (default: "+catalog.DefaultCreatedBy+")")
	}
}

// withDocuments opens the local store for the duration of fn.
func withDocuments(cmd *cobra.Command, fn func(svc *catalog.DocumentService) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	categories := catalog.NewCategories(store, categorySource())
	if err := fn(catalog.NewDocumentService(store, categories)); err != nil {
		return friendlyError(err)
	}
	return nil
}

func outputDocuments(cmd *cobra.Command, docs []models.Document) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), docs)
	}
	return writeDocumentTable(cmd.OutOrStdout(), docs)
}

func writeDocumentTable(w io.Writer, docs []models.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCATEGORY\tTITLE\tCREATED")
	for _, doc := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", doc.ID, doc.DocumentType, doc.ProductCategory.Name,
			doc.Title, doc.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
