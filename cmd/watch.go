package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NeelM47/video-to-book/internal/watcher"
	"github.com/NeelM47/video-to-book/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and convert every links file dropped into it",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	addPipelineFlags(watchCmd)
	watchCmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "j", 0, "videos processed in parallel (default: from config)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := loadRunOptions(cmd)
	if err != nil {
		return err
	}

	parallel := opts.Config.Batch.MaxConcurrent
	if cmd.Flags().Changed("max-concurrent") {
		parallel = maxConcurrent
	}

	w, err := watcher.New(args[0], func(ctx context.Context, path string) error {
		urls, err := worker.ReadLinks(path)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs found in %s", path)
		}
		_, err = worker.RunBatch(ctx, urls, parallel, opts)
		return err
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
