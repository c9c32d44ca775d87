package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "video-to-book",
	Short: "Turn spoken-word videos into bionic-reading EPUBs",
	Long: `video-to-book downloads a video's audio and captions, transcribes the audio,
reconciles both transcripts into a corrected book-style narrative via an
ensemble rewrite, and renders the result as a bionic-formatted EPUB.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
}
