package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NeelM47/video-to-book/internal/worker"
)

var maxConcurrent int

var batchCmd = &cobra.Command{
	Use:   "batch <links-file>",
	Short: "Convert every video listed in a file (one URL per line)",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	addPipelineFlags(batchCmd)
	batchCmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "j", 0, "videos processed in parallel (default: from config)")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	opts, err := loadRunOptions(cmd)
	if err != nil {
		return err
	}

	urls, err := worker.ReadLinks(args[0])
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", args[0])
	}

	parallel := opts.Config.Batch.MaxConcurrent
	if cmd.Flags().Changed("max-concurrent") {
		parallel = maxConcurrent
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = worker.RunBatch(ctx, urls, parallel, opts)
	return err
}
