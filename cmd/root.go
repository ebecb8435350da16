package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
)

var version = "1.0.0"

// cfg is set by Execute before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "invoicedesk",
	Short: "invoicedesk - scan, correct and save purchase invoices",
	Long: `invoicedesk turns a scanned purchase invoice into a reconciled invoice
record, lets you correct it line by line, previews the SQL it maps to and
saves it to the invoice back-end.

The working record lives in a JSON file (see --work-file). Every edit
recomputes the line totals, the invoice total and the VAT amount.

Typical session:
  invoicedesk analyze scan.jpg
  invoicedesk edit item 0 quantity 12
  invoicedesk edit set productCategory 2
  invoicedesk sql
  invoicedesk save`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the loaded configuration. The error has already
// been printed when it is returned.
func Execute(c *config.Config) error {
	log := logger.WithComponent("cmd")
	cfg = c

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Local data directory (default: DATA_DIR or ./data)")
	rootCmd.PersistentFlags().String("work-file", "", "Working record file (default: <data-dir>/working-invoice.json)")
	rootCmd.PersistentFlags().Int("timeout", 0, "Timeout in seconds for network calls (default: REQUEST_TIMEOUT)")
}
