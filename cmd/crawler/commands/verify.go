package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/maltedev/product-options-crawler/internal/verify"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [kind...]",
	Short: "Execute the batch files against a scratch SQLite database",
	Long: `Verify replays each batch file (options, products, brands) into an
in-memory SQLite database with the target columns and reports how many rows
it inserts. A file that does not execute, for example one whose statement
was left unterminated before more rows were appended, fails verification.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	batches := a.batches()
	kinds := args
	if len(kinds) == 0 {
		for kind := range batches {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
	}

	out := cmd.OutOrStdout()
	var failed int
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
			fmt.Fprintf(out, "%-9s %s: missing\n", kind, batch.Path)
			continue
		}

		report, err := verify.Verify(cmd.Context(), content, batch.Table)
		if errors.Is(err, verify.ErrMalformed) {
			failed++
			fmt.Fprintf(out, "%-9s %s: INVALID (%d tuples, %d terminators): %v\n",
				kind, batch.Path, report.Summary.Tuples, report.Summary.Terminators, err)
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%-9s %s: ok, %d rows\n", kind, batch.Path, report.Rows)
	}

	if failed > 0 {
		return fmt.Errorf("%d batch files failed verification", failed)
	}
	return nil
}
