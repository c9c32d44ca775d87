package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NeelM47/video-to-book/internal/config"
	"github.com/NeelM47/video-to-book/internal/groq"
	"github.com/NeelM47/video-to-book/internal/worker"
	"github.com/NeelM47/video-to-book/internal/ytdlp"
)

var (
	outputDir       string
	charBudget      int
	overlapSegments int
	maxRetries      int
	rateLimit       int
)

var convertCmd = &cobra.Command{
	Use:   "convert <video-url>",
	Short: "Convert one video into a bionic EPUB",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

// addPipelineFlags registers the flags shared by every command that runs the
// conversion pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	defaults := config.Default()

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: current)")
	cmd.Flags().IntVar(&charBudget, "char-budget", defaults.Pipeline.CharBudget, "max characters per rewrite chunk")
	cmd.Flags().IntVar(&overlapSegments, "overlap", defaults.Pipeline.OverlapSegments, "segments repeated across chunk boundaries")
	cmd.Flags().IntVar(&maxRetries, "max-retries", defaults.Pipeline.MaxRetries, "rewrite attempts per chunk")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", defaults.Groq.RateLimitRPM, "API requests per minute")
}

func init() {
	addPipelineFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

// loadRunOptions builds the shared worker options from config file and flags.
func loadRunOptions(cmd *cobra.Command) (worker.Options, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return worker.Options{}, err
	}

	// Flags override the config file only when set.
	if cmd.Flags().Changed("output") {
		cfg.Paths.Output = outputDir
	}
	if cmd.Flags().Changed("char-budget") {
		cfg.Pipeline.CharBudget = charBudget
	}
	if cmd.Flags().Changed("overlap") {
		cfg.Pipeline.OverlapSegments = overlapSegments
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.Pipeline.MaxRetries = maxRetries
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Groq.RateLimitRPM = rateLimit
	}

	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		return worker.Options{}, fmt.Errorf("groq API key required: set groq.api_key or GROQ_API_KEY")
	}
	if !ytdlp.Available() {
		return worker.Options{}, fmt.Errorf("yt-dlp not found on PATH")
	}

	client := groq.NewClient(apiKey, cfg.Groq.ChatModel, cfg.Groq.WhisperModel, cfg.Groq.RateLimitRPM)
	return worker.Options{Config: cfg, Client: client}, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := loadRunOptions(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := worker.Run(ctx, args[0], opts)
	if err != nil {
		return err
	}

	worker.Report([]worker.Result{res})
	if res.Status == worker.StatusFailed {
		return fmt.Errorf("conversion failed: %s", res.Reason)
	}
	return nil
}
