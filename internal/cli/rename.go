package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/raulshma/devbox-sub000/internal/jsonoutput"
	"github.com/raulshma/devbox-sub000/internal/pattern"
	"github.com/raulshma/devbox-sub000/internal/scanner"
	"github.com/raulshma/devbox-sub000/internal/tui"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/raulshma/devbox-sub000/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// Transformations
	regexFlag      string
	replaceFlag    string
	regexFlagsFlag string
	templateFlag   string
	numberFlag     bool
	prefixFlag     string
	startFlag      int
	endFlag        int
	stepFlag       int
	sortByNameFlag bool
	caseFlag       string

	// Discovery
	globFlag      string
	maxDepthFlag  int
	recursiveFlag bool
	minSizeFlag   int64
	maxSizeFlag   int64
	newerThanFlag string
	olderThanFlag string
	includeFlag   []string
	excludeFlag   []string
	hiddenFlag    bool

	// Execution
	dryRunFlag            bool
	tuiFlag               bool
	parallelFlag          bool
	conflictFlag          string
	renameSuffixFlag      string
	maxRenameAttemptsFlag int
	backupSuffixFlag      string
	concurrencyFlag       int
	taskTimeoutFlag       time.Duration
	parallelThresholdFlag int
	noPreserveTimesFlag   bool
	noPreservePermsFlag   bool
)

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename [PATH]",
		Short: "Rename the files under PATH",
		Long: `Rename the files under PATH (default: current directory).

Exactly one transformation is applied: --regex, --template, --number or
--case. --case can also be combined with --regex to recase the result.`,
		Example: `  batch-renamer rename ./photos --regex '^IMG_(\d+)' --replace 'photo_$1' --flags i
  batch-renamer rename . --template '{name}_{counter:3}.{ext}' --dry-run
  batch-renamer rename ./scans --number --prefix scan_ --conflict rename
  batch-renamer rename ./docs --case kebab -r`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRename,
	}

	f := cmd.Flags()
	f.StringVar(&regexFlag, "regex", "", "Regular expression matched against each file name")
	f.StringVar(&replaceFlag, "replace", "", "Replacement for --regex; $1 and $<name> refer to groups")
	f.StringVar(&regexFlagsFlag, "flags", "", "Regex flags: g, i, m, s, u")
	f.StringVar(&templateFlag, "template", "", "Name template, e.g. '{name}_{counter:3}.{ext}'; a dot before an empty {ext} is dropped")
	f.BoolVar(&numberFlag, "number", false, "Replace names with sequential numbers")
	f.StringVar(&prefixFlag, "prefix", "", "Prefix placed before each number")
	f.IntVar(&startFlag, "start", 1, "First number")
	f.IntVar(&endFlag, "end", 0, "Last number allowed (default: just enough for the batch)")
	f.IntVar(&stepFlag, "step", 1, "Increment between numbers")
	f.BoolVar(&sortByNameFlag, "sort-by-name", false, "Number files in name order instead of discovery order")
	f.StringVar(&caseFlag, "case", "", "Case style: lower, upper, title, sentence, camel, pascal, snake, kebab (alone or with --regex)")

	f.StringVar(&globFlag, "pattern", "*", "Glob matched against file names")
	f.IntVar(&maxDepthFlag, "max-depth", 1, "Maximum directory depth; 1 is PATH itself")
	f.BoolVarP(&recursiveFlag, "recursive", "r", false, "Descend into every subdirectory")
	f.Int64Var(&minSizeFlag, "min-size", 0, "Minimum file size in bytes")
	f.Int64Var(&maxSizeFlag, "max-size", 0, "Maximum file size in bytes (0 = no limit)")
	f.StringVar(&newerThanFlag, "newer-than", "", "Only files modified after this date (YYYY-MM-DD or RFC 3339)")
	f.StringVar(&olderThanFlag, "older-than", "", "Only files modified before this date (YYYY-MM-DD or RFC 3339)")
	f.StringSliceVar(&includeFlag, "include", nil, "Only file names matching these globs")
	f.StringSliceVar(&excludeFlag, "exclude", nil, "Skip file and directory names matching these globs")
	f.BoolVar(&hiddenFlag, "hidden", false, "Include hidden files and directories")

	defaults := types.DefaultExecOptions()
	f.BoolVarP(&dryRunFlag, "dry-run", "d", false, "Show what would happen without renaming anything")
	f.BoolVar(&tuiFlag, "tui", false, "Run with an interactive progress view")
	f.BoolVar(&parallelFlag, "parallel", false, "Rename in parallel (only skip and overwrite conflict strategies)")
	f.StringVar(&conflictFlag, "conflict", defaults.ConflictStrategy, "Conflict strategy: skip, overwrite, rename, keep-newer, keep-older, keep-larger, keep-smaller, backup, skip-identical, merge")
	f.StringVar(&renameSuffixFlag, "rename-suffix", defaults.RenameSuffix, "Separator used when disambiguating names")
	f.IntVar(&maxRenameAttemptsFlag, "max-rename-attempts", defaults.MaxRenameAttempts, "Attempts before giving up on a free name")
	f.StringVar(&backupSuffixFlag, "backup-suffix", defaults.BackupSuffix, "Suffix for backups of replaced files")
	f.IntVar(&concurrencyFlag, "concurrency", defaults.MaxConcurrency, "Parallel workers")
	f.DurationVar(&taskTimeoutFlag, "task-timeout", defaults.TaskTimeout, "Timeout for each rename")
	f.IntVar(&parallelThresholdFlag, "parallel-threshold", defaults.ParallelThreshold, "Batches this large run in parallel (0 = never)")
	f.BoolVar(&noPreserveTimesFlag, "no-preserve-times", false, "Do not keep modification times on copies")
	f.BoolVar(&noPreservePermsFlag, "no-preserve-perms", false, "Do not keep permissions on copies")

	return cmd
}

func buildConfig(args []string) (*types.Config, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	newer, err := parseDate(newerThanFlag)
	if err != nil {
		return nil, err
	}
	older, err := parseDate(olderThanFlag)
	if err != nil {
		return nil, err
	}

	maxDepth := maxDepthFlag
	if recursiveFlag {
		maxDepth = 0
	}

	config := &types.Config{
		Path:          path,
		Pattern:       globFlag,
		MaxDepth:      maxDepth,
		MinSize:       minSizeFlag,
		MaxSize:       maxSizeFlag,
		NewerThan:     newer,
		OlderThan:     older,
		Include:       includeFlag,
		Exclude:       excludeFlag,
		IncludeHidden: hiddenFlag,
		DryRun:        dryRunFlag,
		Json:          jsonFlag,
		Tui:           tuiFlag,
		Verbose:       verboseFlag,
		Exec: types.ExecOptions{
			DryRun:              dryRunFlag,
			Parallel:            parallelFlag,
			ConflictStrategy:    conflictFlag,
			RenameSuffix:        renameSuffixFlag,
			MaxRenameAttempts:   maxRenameAttemptsFlag,
			BackupSuffix:        backupSuffixFlag,
			MaxConcurrency:      concurrencyFlag,
			TaskTimeout:         taskTimeoutFlag,
			ParallelThreshold:   parallelThresholdFlag,
			PreserveTimestamps:  !noPreserveTimesFlag,
			PreservePermissions: !noPreservePermsFlag,
		},
	}
	if logFileFlag != "" {
		config.LogFile = &logFileFlag
	}
	if historyFileFlag != "" {
		config.HistoryFile = &historyFileFlag
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot parse date %q, use YYYY-MM-DD or RFC 3339", types.ErrValidation, s)
}

// buildSpec turns the transformation flags into a pattern spec. count is
// the number of discovered files and sizes the default numbering range.
func buildSpec(count int) (pattern.Spec, error) {
	style, err := pattern.ParseCaseStyle(caseFlag)
	if err != nil {
		return pattern.Spec{}, err
	}

	chosen := 0
	for _, set := range []bool{regexFlag != "", templateFlag != "", numberFlag} {
		if set {
			chosen++
		}
	}
	if chosen > 1 {
		return pattern.Spec{}, fmt.Errorf("%w: --regex, --template and --number cannot be combined", types.ErrValidation)
	}
	if style != pattern.CaseNone && (templateFlag != "" || numberFlag) {
		return pattern.Spec{}, fmt.Errorf("%w: --case only combines with --regex; use a {name:%s} placeholder in templates", types.ErrValidation, style)
	}

	switch {
	case regexFlag != "":
		return pattern.Spec{
			Mode: pattern.ModeRegex,
			Regex: pattern.RegexSpec{
				Pattern:     regexFlag,
				Replacement: replaceFlag,
				Flags:       regexFlagsFlag,
				Case:        style,
			},
		}, nil
	case templateFlag != "":
		return pattern.Spec{Mode: pattern.ModeTemplate, Template: templateFlag}, nil
	case numberFlag:
		end := endFlag
		if end == 0 {
			end = startFlag + max(count-1, 0)*stepFlag
		}
		return pattern.Spec{
			Mode:      pattern.ModeNumbering,
			Numbering: types.NewNumberingFormat(prefixFlag, startFlag, end, stepFlag, sortByNameFlag),
		}, nil
	case style != pattern.CaseNone:
		return pattern.Spec{Mode: pattern.ModeCase, Case: style}, nil
	}
	return pattern.Spec{}, fmt.Errorf("%w: choose one of --regex, --template, --number or --case", types.ErrValidation)
}

func runRename(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(args)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	printer := ui.NewPrinter(cmd.OutOrStdout(), config.Verbose, config.Json)
	printer.Banner()
	if config.DryRun {
		printer.DryRunBanner()
	}

	printer.ScanStart(config.Path)
	paths, err := scanner.Discover(fs, scanner.Criteria{
		Root:          config.Path,
		Pattern:       config.Pattern,
		MaxDepth:      config.MaxDepth,
		MinSize:       config.MinSize,
		MaxSize:       config.MaxSize,
		NewerThan:     config.NewerThan,
		OlderThan:     config.OlderThan,
		Include:       config.Include,
		Exclude:       config.Exclude,
		IncludeHidden: config.IncludeHidden,
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", config.Path, err)
	}
	printer.ScanComplete(len(paths))

	spec, err := buildSpec(len(paths))
	if err != nil {
		return err
	}

	e, err := newEngine(fs)
	if err != nil {
		return err
	}

	log.Info().
		Str("path", config.Path).
		Str("mode", string(spec.Mode)).
		Int("files", len(paths)).
		Str("conflict", config.Exec.ConflictStrategy).
		Bool("dry_run", config.DryRun).
		Msg("Starting batch")

	var results []types.RenameResult
	if config.Tui {
		final, err := tui.Run(tui.NewModel(cmd.Context(), e, paths, spec, config.Exec))
		if err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		if final.Err() != nil {
			return final.Err()
		}
		if !final.Finished() {
			return tui.ErrQuit
		}
		results = final.Results()
	} else {
		ops, err := e.ComputeBatch(paths, spec)
		if err != nil {
			return err
		}
		printer.PrintPreview(ops)

		pb := ui.NewProgressBar(len(ops), "Renaming")
		opts := config.Exec
		opts.Progress = func(done, total int) {
			pb.SetCurrent(done)
			printer.Progress(pb)
		}

		results, err = e.ExecuteBatch(cmd.Context(), ops, opts)
		if err != nil {
			return err
		}
	}

	if err := report(cmd, printer, config, results); err != nil {
		return err
	}
	return failures(results)
}

func report(cmd *cobra.Command, printer *ui.Printer, config *types.Config, results []types.RenameResult) error {
	if config.Json {
		root, err := filepath.Abs(config.Path)
		if err != nil {
			root = config.Path
		}
		out, err := jsonoutput.ToJSON(jsonoutput.FromResults(results, root, config.DryRun))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	printer.PrintResults(results)
	printer.PrintSummary(ui.NewOperationSummary(results, config.DryRun))
	if config.DryRun {
		printer.Info("Dry run complete. Run again without --dry-run to apply.")
	} else {
		printer.Done()
	}
	return nil
}

func failures(results []types.RenameResult) error {
	s := types.Summarize(results)
	if s.Failed > 0 {
		return fmt.Errorf("%d of %d operations failed", s.Failed, s.Total)
	}
	return nil
}
