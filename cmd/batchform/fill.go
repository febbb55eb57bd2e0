package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-batchform/internal/config"
	"github.com/goliatone/go-batchform/internal/draft"
	"github.com/goliatone/go-batchform/pkg/orchestrator"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/renderers/tui"
	"github.com/goliatone/go-batchform/pkg/submit"
)

type fillFlags struct {
	resume     string
	valuesPath string
	confirm    bool
}

func newFillCmd(a *app) *cobra.Command {
	flags := &fillFlags{}
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill a form interactively, step by step",
		Long: `Prompt for every input of the form definition one step at a time. A step
can only be left once its fields pass validation. A draft is stored after
each step and can be resumed with --resume. The last step validates the
whole form and submits it to the configured endpoint, or prints the values
as JSON when no endpoint is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFill(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.resume, "resume", "", "resume the stored draft of this session")
	cmd.Flags().StringVar(&flags.valuesPath, "values", "", "JSON file with prefilled values")
	cmd.Flags().BoolVar(&flags.confirm, "confirm", false, "confirm each step before it is saved")
	return cmd
}

func (a *app) runFill(cmd *cobra.Command, flags *fillFlags) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	store, err := a.draftStore(cfg)
	if err != nil {
		return err
	}

	values, err := readValues(flags.valuesPath)
	if err != nil {
		return err
	}
	if flags.resume != "" {
		stored, err := store.Load(ctx, flags.resume)
		if errors.Is(err, draft.ErrNotFound) {
			return fmt.Errorf("no draft for session %s", flags.resume)
		}
		if err != nil {
			return err
		}
		values = mergeValues(stored.Values, values)
	}

	f, err := a.openForm(ctx, cfg, values, flags.resume)
	if err != nil {
		return err
	}
	if failed := f.failedSteps(); len(failed) > 0 {
		return errors.New(failed[0])
	}

	prompter, err := tui.New(
		tui.WithPromptDriver(a.prompts),
		tui.WithSession(f.session),
		tui.WithConfirmSave(flags.confirm),
		tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
	)
	if err != nil {
		return err
	}
	registry := render.NewRegistry()
	if err := registry.Register(prompter); err != nil {
		return err
	}
	orch := a.orchestrator(cfg, orchestrator.WithRegistry(registry), orchestrator.WithDefaultRenderer(tui.Name))

	submitter, err := a.submitter(cfg)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "session %s\n", f.session.ID())
	for {
		step := f.wizard.Step()
		status, _ := f.status(step)
		doc := status.Document
		if _, err := orch.Generate(ctx, orchestrator.Request{
			Document:      &doc,
			Step:          step,
			Session:       f.session,
			Renderer:      tui.Name,
			RenderOptions: render.RenderOptions{TotalSteps: f.wizard.Total()},
		}); err != nil {
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintf(stderr, "aborted, resume with --resume %s\n", f.session.ID())
			}
			return err
		}
		if err := submit.Draft(ctx, f.session, store); err != nil {
			return err
		}
		a.logger.Debug("draft saved", zap.String("session", f.session.ID()), zap.Int("step", step))

		if step < f.wizard.Total() {
			if notice := f.wizard.Next(); !notice.OK {
				fmt.Fprintf(stderr, "! %s\n", notice.Message)
			}
			continue
		}

		done, err := a.finish(ctx, f, submitter, cmd.OutOrStdout(), stderr)
		if err != nil || done {
			if done {
				if err := store.Delete(ctx, f.session.ID()); err != nil {
					a.logger.Warn("draft cleanup failed", zap.Error(err))
				}
			}
			return err
		}
	}
}

// finish runs the final validation. It reports false after moving the wizard
// back to the first failing step.
func (a *app) finish(ctx context.Context, f *form, submitter submit.Submitter, stdout, stderr io.Writer) (bool, error) {
	if submitter == nil {
		submitter = submit.SubmitterFunc(func(context.Context, submit.Payload) error {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(f.session.Snapshot())
		})
	}

	notice, err := submit.Final(ctx, f.wizard, f.session, submitter)
	var rejected *submit.RejectedError
	if errors.As(err, &rejected) {
		paths := make([]string, 0, len(rejected.Errors))
		for path := range rejected.Errors {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			for _, msg := range rejected.Errors[path] {
				fmt.Fprintf(stderr, "! %s: %s\n", path, msg)
			}
		}
		return false, err
	}
	if err != nil {
		return false, err
	}
	if !notice.OK {
		fmt.Fprintf(stderr, "! step %d: %s\n", notice.Step, notice.Message)
		for f.wizard.Step() > notice.Step {
			f.wizard.Back()
		}
		return false, nil
	}
	a.logger.Info("form submitted", zap.String("session", f.session.ID()))
	return true, nil
}

func (a *app) submitter(cfg *config.Config) (submit.Submitter, error) {
	if cfg.Submit.Endpoint == "" {
		return nil, nil
	}
	timeout, err := cfg.SubmitTimeout()
	if err != nil {
		return nil, err
	}
	opts := []submit.Option{submit.WithTimeout(timeout), submit.WithLogger(a.logger)}
	for key, value := range cfg.Submit.Headers {
		opts = append(opts, submit.WithHeader(key, value))
	}
	return submit.NewHTTPSubmitter(cfg.Submit.Endpoint, opts...)
}
