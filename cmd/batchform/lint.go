package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-batchform/internal/config"
	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/validation"
)

type lintFlags struct {
	jsonOut bool
}

type lintReport struct {
	Source string `json:"source"`
	validation.LintResult
}

func newLintCmd(a *app) *cobra.Command {
	flags := &lintFlags{}
	cmd := &cobra.Command{
		Use:   "lint [blueprint...]",
		Short: "Check blueprint documents for structural and authoring errors",
		Long: `Lint blueprint files or URLs. Without arguments every step source of the
form definition given with --config is linted. Warnings are reported but do
not fail the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLint(cmd, args, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print results as JSON")
	return cmd
}

func (a *app) runLint(cmd *cobra.Command, args []string, flags *lintFlags) error {
	cfg := &config.Config{}
	locations := args
	if len(locations) == 0 {
		if a.configPath == "" {
			return errors.New("lint needs blueprint arguments or --config")
		}
		loaded, err := a.loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		for _, src := range cfg.StepSources() {
			locations = append(locations, src.Source.Location())
		}
	}

	reports := a.lint(cmd.Context(), cfg, locations)
	if err := writeLint(cmd.OutOrStdout(), reports, flags.jsonOut); err != nil {
		return err
	}
	for _, report := range reports {
		if !report.Valid {
			return errInvalid
		}
	}
	return nil
}

// lint loads every location and lints its bytes. Load failures become
// issues so one bad source does not hide the rest.
func (a *app) lint(ctx context.Context, cfg *config.Config, locations []string) []lintReport {
	loader := a.blueprintLoader(cfg)

	reports := make([]lintReport, 0, len(locations))
	for _, location := range locations {
		report := lintReport{Source: location}
		raw, err := loader.Load(ctx, blueprint.SourceFor(location))
		if err != nil {
			report.LintResult = validation.LintResult{Issues: []validation.Issue{{Message: err.Error()}}}
		} else {
			report.LintResult = validation.LintBlueprint(raw.Bytes())
		}
		reports = append(reports, report)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Source < reports[j].Source
	})
	return reports
}

func writeLint(w io.Writer, reports []lintReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, report := range reports {
		if len(report.Issues) == 0 {
			fmt.Fprintf(w, "%s: ok\n", report.Source)
			continue
		}
		for _, issue := range report.Issues {
			location := issue.Path
			if location == "" {
				location = issue.ItemID
			}
			level := "error"
			if issue.Warning {
				level = "warning"
			}
			if location == "" {
				fmt.Fprintf(w, "%s: %s: %s\n", report.Source, level, issue.Message)
				continue
			}
			fmt.Fprintf(w, "%s: %s: %s: %s\n", report.Source, location, level, issue.Message)
		}
	}
	return nil
}
