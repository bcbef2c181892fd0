package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
	"github.com/maltedev/product-options-crawler/internal/storage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the batch files and crawl progress",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	batches := a.batches()
	kinds := make([]string, 0, len(batches))
	for kind := range batches {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tFILE\tHEADER\tTUPLES\tTERMINATORS\tSTATUS")
	for _, kind := range kinds {
		batch := batches[kind]
		content, exists, err := a.txm.ReadFile(batch.Path)
		if err != nil {
			return err
		}
		if !exists {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\tmissing\n", kind, batch.Path)
			continue
		}

		s := sqlbatch.Inspect(content, batch.Table)
		status := "ok"
		if !s.WellFormed() {
			status = "malformed"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%s\n", kind, batch.Path, s.HasHeader, s.Tuples, s.Terminators, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	progressFile := a.path(a.cfg.Output.ProgressFile)
	if progressFile == "" {
		return nil
	}
	if ok, _ := afero.Exists(a.fs, progressFile); !ok {
		return nil
	}

	progress, err := storage.NewLinkStorage(a.fs, progressFile)
	if err != nil {
		return err
	}
	counts := progress.GetStats()
	fmt.Fprintf(cmd.OutOrStdout(), "\nprogress: committed=%d rejected=%d failed=%d pending=%d\n",
		counts[storage.StatusCommitted], counts[storage.StatusRejected],
		counts[storage.StatusFailed], counts[storage.StatusPending])
	return nil
}
