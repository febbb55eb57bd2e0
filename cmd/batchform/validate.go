package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-batchform/internal/draft"
	"github.com/goliatone/go-batchform/pkg/wizard"
)

// errInvalid signals a completed run that found problems.
var errInvalid = errors.New("validation failed")

type validateFlags struct {
	valuesPath string
	sessionID  string
	jsonOut    bool
}

type validateReport struct {
	Valid      bool          `json:"valid"`
	StepErrors []string      `json:"step_errors,omitempty"`
	Errors     []reportEntry `json:"errors,omitempty"`
	Notice     *reportNotice `json:"notice,omitempty"`
}

type reportEntry struct {
	Path     string   `json:"path"`
	Messages []string `json:"messages"`
}

type reportNotice struct {
	Step    int    `json:"step"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func newReport(failed []string, tree *wizard.ErrorTree, notice wizard.Notice) validateReport {
	report := validateReport{StepErrors: failed}
	for _, entry := range tree.Flatten() {
		report.Errors = append(report.Errors, reportEntry{Path: entry.Path, Messages: entry.Messages})
	}
	if !notice.OK {
		report.Notice = &reportNotice{Step: notice.Step, Path: notice.Path, Message: notice.Message}
	}
	report.Valid = notice.OK && len(failed) == 0
	return report
}

func newValidateCmd(a *app) *cobra.Command {
	flags := &validateFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate values against every step of a form",
		Long: `Load every step of the form definition, apply the given values (or a
stored draft) and report field and operation time errors in form order.
Exits non-zero when anything fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runValidate(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.valuesPath, "values", "", "JSON file with values")
	cmd.Flags().StringVar(&flags.sessionID, "session", "", "validate the stored draft of this session")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print the report as JSON")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, flags *validateFlags) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	values, err := readValues(flags.valuesPath)
	if err != nil {
		return err
	}
	if flags.sessionID != "" {
		store, err := a.draftStore(cfg)
		if err != nil {
			return err
		}
		stored, err := store.Load(ctx, flags.sessionID)
		if errors.Is(err, draft.ErrNotFound) {
			return fmt.Errorf("no draft for session %s", flags.sessionID)
		}
		if err != nil {
			return err
		}
		values = mergeValues(stored.Values, values)
	}

	f, err := a.openForm(ctx, cfg, values, flags.sessionID)
	if err != nil {
		return err
	}

	notice := f.wizard.SubmitValidate()
	report := newReport(f.failedSteps(), f.session.Errors(), notice)

	if err := writeReport(cmd.OutOrStdout(), report, flags.jsonOut); err != nil {
		return err
	}
	if !report.Valid {
		return errInvalid
	}
	return nil
}

func writeReport(w io.Writer, report validateReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	for _, msg := range report.StepErrors {
		if _, err := fmt.Fprintf(w, "error: %s\n", msg); err != nil {
			return err
		}
	}
	for _, entry := range report.Errors {
		for _, msg := range entry.Messages {
			if _, err := fmt.Fprintf(w, "%s: %s\n", entry.Path, msg); err != nil {
				return err
			}
		}
	}
	if report.Notice != nil {
		if _, err := fmt.Fprintf(w, "step %d: %s\n", report.Notice.Step, report.Notice.Message); err != nil {
			return err
		}
	}
	if report.Valid {
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
	return nil
}
