package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/raulshma/devbox-sub000/internal/history"
	"github.com/raulshma/devbox-sub000/internal/jsonoutput"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/raulshma/devbox-sub000/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent batch",
		Args:  cobra.NoArgs,
		RunE:  runUndo,
	}
}

func runUndo(cmd *cobra.Command, args []string) error {
	e, err := newEngine(afero.NewOsFs())
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout(), verboseFlag, jsonFlag)

	results, err := e.Undo(cmd.Context())
	if errors.Is(err, history.ErrNothingToUndo) {
		if jsonFlag {
			out, err := jsonoutput.ToJSON(jsonoutput.FromResults(nil, "", false))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
		printer.Info("Nothing to undo")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().Int("operations", len(results)).Msg("Undid batch")

	if jsonFlag {
		out, err := jsonoutput.ToJSON(jsonoutput.FromResults(results, undoRoot(results), false))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	} else {
		printer.Section(fmt.Sprintf("%s Undo", ui.IconUndo))
		printer.PrintResults(results)
		printer.PrintSummary(ui.NewOperationSummary(results, false))
	}
	return failures(results)
}

// undoRoot is the directory JSON paths are made relative to
func undoRoot(results []types.RenameResult) string {
	if len(results) == 0 {
		return ""
	}
	return filepath.Dir(results[0].SourcePath)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(afero.NewOsFs())
			if err != nil {
				return err
			}
			entries, err := e.ListHistory()
			if err != nil {
				return err
			}

			if jsonFlag {
				out, err := jsonoutput.HistoryToJSON(entries)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			ui.NewPrinter(cmd.OutOrStdout(), verboseFlag, false).PrintHistory(entries)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every recorded batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine(afero.NewOsFs())
			if err != nil {
				return err
			}
			if err := e.ClearHistory(); err != nil {
				return err
			}
			ui.NewPrinter(cmd.OutOrStdout(), verboseFlag, jsonFlag).Success("History cleared")
			return nil
		},
	})

	return cmd
}
