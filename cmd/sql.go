package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/sqlgen"
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Preview the SQL statements for the working record",
	Long: `Print the MySQL INSERT statements that correspond to the working record:
one for the invoice header and one per line item. The statements are a
preview; nothing is executed.`,
	Example: `  invoicedesk sql
  invoicedesk sql --part items`,
	Args: cobra.NoArgs,
	RunE: runSQL,
}

func init() {
	rootCmd.AddCommand(sqlCmd)

	sqlCmd.Flags().String("part", string(sqlgen.PartFull), "Statements to print: header, items or full")
}

func runSQL(cmd *cobra.Command, args []string) error {
	part, _ := cmd.Flags().GetString("part")

	rec, err := loadWorkingRecord(cmd)
	if err != nil {
		return err
	}

	text, err := sqlgen.Synthesize(rec).Get(sqlgen.Part(part))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
