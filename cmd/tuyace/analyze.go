package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/gapanalysis"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/logging"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// analyzeOptions are the flags of the analyze command.
type analyzeOptions struct {
	input           string
	output          string
	matchComponents bool
	save            bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <diagnostics.json>",
		Short: "Report the data points the capability catalog does not cover",
		Long: `Classify every device of a diagnostics dump and print the gap report as JSON.

The dump may be a Home Assistant diagnostics download, a {"devices": ...}
document or a bare list of device descriptors. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(true)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("match-components") {
				opts.matchComponents = cfg.Analysis.MatchComponents
			}
			opts.input = args[0]
			return runAnalyze(cmd.Context(), cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&opts.matchComponents, "match-components", false, "Annotate gaps with catalog capabilities sharing their key")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the report in the database")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func runAnalyze(ctx context.Context, cfg *config.Config, opts *analyzeOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	// Reports go to stdout, so logs go to stderr.
	log := logging.NewWithWriter(stderr, cfg.Logging, version)

	diag, err := readDiagnostics(opts.input, stdin)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // read-mostly command

	store := newCatalogStore(db, cfg, log)
	if err := store.Load(ctx, false); err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	analyzer := newAnalyzer(cfg, log).WithMatchComponents(opts.matchComponents)
	report := analyzer.AnalyzeDiagnostics(diag, store.Devices(), "cli:"+opts.input)

	if opts.save {
		if err := gapanalysis.NewSQLiteRepository(db.DB).Save(ctx, report); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		activity.NewRecorder(activity.NewSQLiteRepository(db.DB), log).Record(ctx, activity.Entry{
			Action:    activity.ActionAnalysis,
			Subject:   activity.SubjectReport,
			SubjectID: report.ID,
			Source:    activity.SourceCLI,
			Details:   map[string]any{"devices": report.DeviceCount, "gaps": report.GapCount(), "input": opts.input},
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')

	if opts.output == "" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	} else if err := os.WriteFile(opts.output, data, 0o644); err != nil { //nolint:gosec // reports are not secret
		return fmt.Errorf("writing report: %w", err)
	}

	fmt.Fprintf(stderr, "%d devices, %d gaps in %d categories, %d unsupported categories (report %s)\n",
		report.DeviceCount, report.GapCount(), len(report.Gaps), len(report.UnsupportedDevices), report.ID)
	return nil
}

func readDiagnostics(path string, stdin io.Reader) (*tuya.Diagnostics, error) {
	if path == "-" {
		diag, err := tuya.ParseDiagnostics(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading diagnostics from stdin: %w", err)
		}
		return diag, nil
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("opening diagnostics: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	diag, err := tuya.ParseDiagnostics(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return diag, nil
}
