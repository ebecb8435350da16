package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"invoicedesk/internal/backend"
	"invoicedesk/internal/catalog"
	"invoicedesk/internal/config"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/reconciliation"
	"invoicedesk/internal/storage"
	"invoicedesk/pkg/models"
)

// WorkFileName is the working record file inside the data directory.
const WorkFileName = "working-invoice.json"

func appConfig() *config.Config {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg
}

func dataDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		return dir
	}
	if dir := appConfig().DataDir; dir != "" {
		return dir
	}
	return "./data"
}

func workFile(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("work-file"); path != "" {
		return path
	}
	return filepath.Join(dataDir(cmd), WorkFileName)
}

// commandContext is canceled on SIGINT/SIGTERM and after the --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := appConfig().RequestTimeout
	if secs, _ := cmd.Flags().GetInt("timeout"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// openStore opens the local record store. The caller closes it.
func openStore(ctx context.Context, cmd *cobra.Command) (storage.Backend, error) {
	opts := appConfig().StorageOptions()
	opts.Dir = dataDir(cmd)
	b, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return b, nil
}

func backendClient() *backend.Client {
	return backend.NewClient(appConfig().BackendURL)
}

// categorySource prefers a published category file over the back-end.
func categorySource() catalog.CategorySource {
	if url := appConfig().CategoriesURL; url != "" {
		return backend.NewStaticCategories(url)
	}
	return backendClient()
}

func loadWorkingRecord(cmd *cobra.Command) (models.InvoiceRecord, error) {
	return reconciliation.LoadWorkingRecord(workFile(cmd))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// friendlyError turns sentinel errors into messages for the terminal.
func friendlyError(err error) error {
	var verrs invoice.ValidationErrors
	var berr *backend.BackendError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			fmt.Fprintf(os.Stderr, "  - %s\n", fe.Message)
		}
		return fmt.Errorf("the invoice is not ready to save (%d problems)", len(verrs))
	case errors.As(err, &berr):
		return fmt.Errorf("back-end error (%d): %s", berr.StatusCode, berr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("timed out, try a larger --timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("canceled")
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("not found: %w", err)
	default:
		return err
	}
}
