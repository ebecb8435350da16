package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/ocr"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image-file]",
	Short: "Extract an invoice record from a scanned invoice image",
	Long: `Recognize a scanned invoice and store the result as the working record.

By default the analyzer configured in ANALYZER runs locally:
  mock       - sample invoice, no credentials needed
  vision     - Google Cloud Vision text detection + text parsing
  documentai - Google Document AI invoice parser
  openai     - Cloud Vision text + OpenAI structured extraction

With --remote the image is uploaded to the back-end's /analyze-invoice.
Totals and VAT are always recomputed from the line items.`,
	Example: `  # Analyze locally with the configured analyzer
  invoicedesk analyze scan.jpg

  # Use the back-end instead
  invoicedesk analyze scan.jpg --remote

  # Pick an analyzer for this run only
  invoicedesk analyze scan.jpg --analyzer documentai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("remote", false, "Analyze on the back-end instead of locally")
	analyzeCmd.Flags().String("analyzer", "", "Analyzer to use (default: ANALYZER)")
	analyzeCmd.Flags().Bool("quiet", false, "Do not print the record")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	remote, _ := cmd.Flags().GetBool("remote")
	kind, _ := cmd.Flags().GetString("analyzer")
	quiet, _ := cmd.Flags().GetBool("quiet")
	imagePath := args[0]

	data, err := readImage(imagePath, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var rec models.InvoiceRecord
	if remote {
		got, err := backendClient().AnalyzeImage(ctx, imagePath, bytes.NewReader(data))
		if err != nil {
			return friendlyError(err)
		}
		rec = reconciliation.Recompute(*got)
	} else {
		result, err := analyzeLocally(ctx, kind, imagePath, data, log)
		if err != nil {
			return err
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
		}
		rec = result.Record
	}

	path := workFile(cmd)
	if err := reconciliation.SaveWorkingRecord(path, rec); err != nil {
		return err
	}

	log.Info().
		Str("file", imagePath).
		Str("invoice_number", rec.InvoiceNumber).
		Int("line_items", len(rec.LineItems)).
		Float64("total_amount", rec.TotalAmount).
		Str("work_file", path).
		Msg("Working record created")

	if quiet {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

func readImage(path string, log zerolog.Logger) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", path)
	}
	if info.Size() > ocr.MaxImageBytes {
		log.Error().
			Str("file", path).
			Int64("size", info.Size()).
			Msg("Image exceeds maximum size limit")
		return nil, fmt.Errorf("image too large (%d bytes), maximum is %d bytes", info.Size(), ocr.MaxImageBytes)
	}
	return os.ReadFile(path)
}

func analyzeLocally(ctx context.Context, kind, filename string, data []byte, log zerolog.Logger) (*invoice.AnalysisResult, error) {
	c := *appConfig()
	if kind != "" {
		c.Analyzer = kind
	}
	if err := c.RequireAnalyzer(); err != nil {
		return nil, err
	}

	analyzer, err := invoice.NewAnalyzer(ctx, c.Analyzer)
	if err != nil {
		return nil, analysisError(err)
	}
	defer func() {
		if err := invoice.Close(analyzer); err != nil {
			log.Warn().Err(err).Msg("Failed to close analyzer")
		}
	}()

	result, err := analyzer.Analyze(ctx, filename, data)
	if err != nil {
		return nil, analysisError(err)
	}
	return result, nil
}

func analysisError(err error) error {
	switch {
	case errors.Is(err, invoice.ErrMissingCredentials):
		return fmt.Errorf("missing Google Cloud credentials, set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
	case errors.Is(err, invoice.ErrInvalidConfiguration):
		return fmt.Errorf("invalid analyzer configuration, check your .env file: %w", err)
	case errors.Is(err, invoice.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB): %w", err)
	case errors.Is(err, invoice.ErrUnsupportedImage):
		return fmt.Errorf("the file is not a supported image (JPEG, PNG, GIF, BMP, TIFF): %w", err)
	case errors.Is(err, invoice.ErrEmptyDocument):
		return fmt.Errorf("no text was found on the image: %w", err)
	case errors.Is(err, invoice.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found, check GOOGLE_PROCESSOR_ID: %w", err)
	case errors.Is(err, invoice.ErrQuotaExceeded):
		return fmt.Errorf("API quota exceeded, try again later: %w", err)
	default:
		return friendlyError(err)
	}
}
