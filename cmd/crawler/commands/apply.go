package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/maltedev/product-options-crawler/internal/database"
	"github.com/maltedev/product-options-crawler/internal/verify"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Execute the batch files against PostgreSQL",
	Long: `Apply runs each batch file in its own database transaction. Every applied
file is recorded by checksum, so running apply twice on unchanged files does
not insert the rows twice. Files are checked with the SQLite verifier first.`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringSlice("kinds", []string{"brands", "products", "options"}, "batch kinds to apply, in order")
	applyCmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	_ = v.BindPFlag("database.url", applyCmd.Flags().Lookup("database-url"))
}

func runApply(cmd *cobra.Command, _ []string) error {
	kinds, _ := cmd.Flags().GetStringSlice("kinds")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	db, err := a.database(ctx)
	if err != nil {
		return err
	}
	if err := db.EnsureLedger(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	batches := a.batches()
	for _, kind := range kinds {
		batch, ok := batches[kind]
		if !ok {
			return fmt.Errorf("unknown batch kind %q", kind)
		}

		content, exists, err := a.txm.ReadFile(batch.Path)
		if err != nil {
			return err
		}
		if !exists {
			fmt.Fprintf(out, "%-9s skipped, %s missing\n", kind, batch.Path)
			continue
		}

		if _, err := verify.Verify(ctx, content, batch.Table); err != nil {
			return fmt.Errorf("%s: %w", batch.Path, err)
		}

		applied, err := db.ApplyBatch(ctx, filepath.Base(batch.Path), content)
		switch {
		case errors.Is(err, database.ErrAlreadyApplied):
			fmt.Fprintf(out, "%-9s already applied\n", kind)
		case errors.Is(err, database.ErrEmptyBatch):
			fmt.Fprintf(out, "%-9s empty\n", kind)
		case err != nil:
			return fmt.Errorf("%s: %w", batch.Path, err)
		default:
			fmt.Fprintf(out, "%-9s applied %d rows (%s)\n", kind, applied.Rows, applied.Checksum[:12])
		}
	}

	return nil
}
