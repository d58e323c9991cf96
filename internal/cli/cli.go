package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raulshma/devbox-sub000/internal/engine"
	"github.com/raulshma/devbox-sub000/internal/history"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	verboseFlag     bool
	jsonFlag        bool
	logFileFlag     string
	historyFileFlag string
	historyMaxFlag  int
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "batch-renamer",
		Short: "Batch rename files with regex, templates, numbering or case rules",
		Long: `Batch rename files with regex, templates, numbering or case rules.

Every batch resolves name collisions with a configurable strategy and is
recorded so the most recent batch can be undone.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr(), verboseFlag, logFileFlag)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLogFile()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output in JSON format instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Optional path to write a detailed JSON operation log")
	rootCmd.PersistentFlags().StringVar(&historyFileFlag, "history-file", "", "History file (default: <user config dir>/batch-renamer/history.json)")
	rootCmd.PersistentFlags().IntVar(&historyMaxFlag, "history-size", history.DefaultMaxEntries, "Number of batches kept for undo")

	rootCmd.AddCommand(newRenameCmd(), newUndoCmd(), newHistoryCmd())
	return rootCmd
}

// Execute runs the command line. An interrupt cancels the running batch;
// operations not yet started are reported as failed.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

var logFile *os.File

// setupLogging points the global zerolog logger at a console writer on
// stderr, plus a JSON log file when one is requested.
func setupLogging(stderr io.Writer, verbose bool, path string) error {
	closeLogFile()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}
	if path == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return nil
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func newEngine(fs afero.Fs) (*engine.Engine, error) {
	path := historyFileFlag
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	log.Debug().Str("file", path).Msg("Using history file")
	return engine.New(fs, history.NewFileStore(fs, path, historyMaxFlag)), nil
}
