package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-batchform/internal/config"
	"github.com/goliatone/go-batchform/internal/watch"
	"github.com/goliatone/go-batchform/pkg/blueprint"
)

type watchFlags struct {
	valuesPath string
	debounce   time.Duration
}

func newWatchCmd(a *app) *cobra.Command {
	flags := &watchFlags{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-lint and re-validate a form whenever its files change",
		Long: `Watch the form definition and every file based step source. On each
change the definition is reloaded, the step blueprints are linted and, when
--values is given, the values are validated against the whole form. Runs
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.valuesPath, "values", "", "JSON file with values to validate on change")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before a change is processed")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, flags *watchFlags) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	files := watchedFiles(a.configPath, cfg)
	if flags.valuesPath != "" {
		files = append(files, flags.valuesPath)
	}

	check := func(ctx context.Context, changed []string) error {
		a.logger.Info("files changed", zap.Strings("files", changed))
		return a.check(ctx, cmd, flags.valuesPath)
	}
	w, err := watch.New(files, check, watch.WithDebounce(flags.debounce), watch.WithLogger(a.logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.check(ctx, cmd, flags.valuesPath); err != nil {
		a.logger.Warn("initial check failed", zap.Error(err))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %d files\n", len(files))
	return w.Run(ctx)
}

// check reloads the definition and reports lint and validation results.
// The watched file set is fixed at start; new step sources need a restart.
func (a *app) check(ctx context.Context, cmd *cobra.Command, valuesPath string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	locations := make([]string, 0, len(cfg.Steps))
	for _, src := range cfg.StepSources() {
		locations = append(locations, src.Source.Location())
	}
	reports := a.lint(ctx, cfg, locations)
	if err := writeLint(out, reports, false); err != nil {
		return err
	}
	for _, report := range reports {
		if !report.Valid {
			return errInvalid
		}
	}
	if valuesPath == "" {
		return nil
	}

	values, err := readValues(valuesPath)
	if err != nil {
		return err
	}
	f, err := a.openForm(ctx, cfg, values, "")
	if err != nil {
		return err
	}
	notice := f.wizard.SubmitValidate()
	report := newReport(f.failedSteps(), f.session.Errors(), notice)
	if err := writeReport(out, report, false); err != nil {
		return err
	}
	if !report.Valid {
		return errInvalid
	}
	return nil
}

func watchedFiles(configPath string, cfg *config.Config) []string {
	files := []string{configPath}
	for _, src := range cfg.StepSources() {
		if src.Source != nil && src.Source.Kind() == blueprint.SourceKindFile {
			files = append(files, src.Source.Location())
		}
	}
	return files
}
