package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/product-options-crawler/internal/crawler"
	"github.com/maltedev/product-options-crawler/internal/filetx"
	"github.com/maltedev/product-options-crawler/internal/queue"
	"github.com/maltedev/product-options-crawler/internal/scraper"
	"github.com/maltedev/product-options-crawler/internal/storage"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [url...]",
	Short: "Crawl product detail pages into the batch files",
	Long: `Crawl visits each product URL in turn. A product whose options all fail
validation, that is already committed, or that lacks a name or brand is
rejected and leaves the batch files untouched. Infrastructure failures are
retried; the progress file lets a later run skip finished URLs.`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringP("file", "f", "", "file with one product URL per line")
	crawlCmd.Flags().String("policy", "strict", "option validation policy: strict or permissive")
	crawlCmd.Flags().Int64("start-product-id", 1, "product id of the first product in an empty batch")
	crawlCmd.Flags().Int("task-retries", 1, "times a failed product is queued again")
	crawlCmd.Flags().Bool("headless", true, "run the browser headless")

	_ = v.BindPFlag("crawl.policy", crawlCmd.Flags().Lookup("policy"))
	_ = v.BindPFlag("crawl.start_product_id", crawlCmd.Flags().Lookup("start-product-id"))
	_ = v.BindPFlag("browser.headless", crawlCmd.Flags().Lookup("headless"))
}

type crawlStats struct {
	committed int
	rejected  int
	failed    int
	skipped   int
}

func runCrawl(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	taskRetries, _ := cmd.Flags().GetInt("task-retries")

	urls, err := collectURLs(args, file)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no product URLs given")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress *storage.LinkStorage
	if name := a.cfg.Output.ProgressFile; name != "" {
		progress, err = storage.NewLinkStorage(a.fs, a.path(name))
		if err != nil {
			return err
		}
		if err := progress.AddBatch(urls); err != nil {
			return err
		}
	}

	stats := crawlStats{}
	q := queue.NewInMemoryQueue(a.cfg.Crawl.QueueSize)
	for _, u := range urls {
		if progress != nil {
			if link, ok := progress.Get(u); ok && link.Done() {
				stats.skipped++
				continue
			}
		}
		if err := q.Push(queue.NewTask(u, 0, taskRetries)); err != nil {
			return fmt.Errorf("failed to queue %s: %w", u, err)
		}
	}

	if q.Size() == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "nothing to crawl (%d already done)\n", stats.skipped)
		return nil
	}

	src, err := a.source()
	if err != nil {
		return err
	}
	orch, err := a.orchestrator(ctx, src)
	if err != nil {
		return err
	}

	for ctx.Err() == nil {
		task, err := q.TryPop()
		if errors.Is(err, queue.ErrQueueEmpty) {
			break
		}
		if err != nil {
			return err
		}

		crawlOne(ctx, cmd, a, orch, q, progress, task, &stats)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "committed=%d rejected=%d failed=%d skipped=%d\n",
		stats.committed, stats.rejected, stats.failed, stats.skipped)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	if stats.failed > 0 {
		return fmt.Errorf("%d products failed", stats.failed)
	}
	return nil
}

func crawlOne(ctx context.Context, cmd *cobra.Command, a *app, orch *crawler.Orchestrator, q *queue.InMemoryQueue, progress *storage.LinkStorage, task *queue.Task, stats *crawlStats) {
	out := cmd.OutOrStdout()

	outcome, err := orch.CrawlProduct(ctx, task.URL)
	switch {
	case err == nil:
		stats.committed++
		fmt.Fprintf(out, "ok       %s product_id=%d options=%d rejected=%d\n",
			task.URL, outcome.ProductID, outcome.Options, len(outcome.Rejections))
		if progress != nil {
			if perr := progress.MarkCommitted(task.URL, outcome.GoodsNo, outcome.ProductID); perr != nil {
				a.logger.Warn("failed to record progress", "url", task.URL, "error", perr)
			}
		}

	case ctx.Err() != nil:
		a.logger.Info("crawl interrupted", "url", task.URL)

	case crawler.IsValidation(err) || errors.Is(err, scraper.ErrInvalidURL):
		stats.rejected++
		fmt.Fprintf(out, "rejected %s: %v\n", task.URL, err)
		if progress != nil {
			if perr := progress.MarkRejected(task.URL, err); perr != nil {
				a.logger.Warn("failed to record progress", "url", task.URL, "error", perr)
			}
		}

	case errors.Is(err, filetx.ErrPartialCommit):
		stats.failed++
		fmt.Fprintf(out, "partial  %s: %v (written: %v)\n", task.URL, err, outcome.Files)
		a.logger.Error("batch files partially written, not retrying", "url", task.URL, "written", outcome.Files)
		if progress != nil {
			if perr := progress.MarkFailed(task.URL, err); perr != nil {
				a.logger.Warn("failed to record progress", "url", task.URL, "error", perr)
			}
		}

	default:
		if rerr := q.Retry(task, err); rerr == nil {
			a.logger.Warn("product failed, queued again", "url", task.URL, "retries", task.Retries, "error", err)
			return
		}
		stats.failed++
		fmt.Fprintf(out, "failed   %s: %v\n", task.URL, err)
		if progress != nil {
			if perr := progress.MarkFailed(task.URL, err); perr != nil {
				a.logger.Warn("failed to record progress", "url", task.URL, "error", perr)
			}
		}
	}
}
