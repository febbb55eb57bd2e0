package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-batchform/internal/config"
	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/orchestrator"
	"github.com/goliatone/go-batchform/pkg/render"
)

type renderFlags struct {
	step       int
	index      int
	renderer   string
	valuesPath string
	output     string
	action     string
	theme      string
	variant    string
	csrf       string
}

func newRenderCmd(a *app) *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render [blueprint]",
		Short: "Render one step as HTML",
		Long: `Render a blueprint step. With --config the step is taken from the form
definition and rendered against a session holding every step, so derived
fields are read-only and current errors are shown inline. Without --config
the blueprint path or URL is rendered on its own.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args, flags)
		},
	}
	cmd.Flags().IntVar(&flags.step, "step", 1, "step number to render")
	cmd.Flags().IntVar(&flags.index, "index", 0, "value substituted for {index} in field paths")
	cmd.Flags().StringVar(&flags.renderer, "renderer", "", "renderer name (default from config or vanilla)")
	cmd.Flags().StringVar(&flags.valuesPath, "values", "", "JSON file with prefilled values")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&flags.action, "action", "", "form action URL")
	cmd.Flags().StringVar(&flags.theme, "theme", "", "theme name")
	cmd.Flags().StringVar(&flags.variant, "theme-variant", "", "theme variant")
	cmd.Flags().StringVar(&flags.csrf, "csrf", "", "CSRF token emitted as a hidden _csrf field")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, args []string, flags *renderFlags) error {
	ctx := cmd.Context()

	values, err := readValues(flags.valuesPath)
	if err != nil {
		return err
	}

	opts := render.RenderOptions{Action: flags.action}
	if flags.csrf != "" {
		opts.HiddenFields = render.MergeHiddenFields(nil, render.CSRFToken("_csrf", flags.csrf))
	}
	req := orchestrator.Request{
		Step:          flags.step,
		Index:         flags.index,
		Renderer:      flags.renderer,
		ThemeName:     flags.theme,
		ThemeVariant:  flags.variant,
		RenderOptions: opts,
	}

	var orch *orchestrator.Orchestrator
	if len(args) == 1 {
		orch = a.orchestrator(nil)
		req.Source = blueprint.SourceFor(args[0])
		req.Values = values
	} else {
		cfg, err := a.loadConfig()
		if err != nil {
			return err
		}
		f, err := a.openForm(ctx, cfg, values, "")
		if err != nil {
			return err
		}
		status, ok := f.status(flags.step)
		if !ok {
			return fmt.Errorf("step %d is not declared in %s", flags.step, a.configPath)
		}
		if status.Err != nil {
			return fmt.Errorf("step %d: %w", flags.step, status.Err)
		}
		if req.Renderer == "" {
			req.Renderer = cfg.Renderer
		}
		if req.Renderer == "" {
			req.Renderer = config.DefaultRenderer
		}
		doc := status.Document
		req.Document = &doc
		req.Session = f.session
		req.RenderOptions.TotalSteps = f.wizard.Total()
		req.RenderOptions.FormErrors = f.failedSteps()
		orch = a.orchestrator(cfg)
	}

	out, err := orch.Generate(ctx, req)
	if err != nil {
		return err
	}

	if flags.output == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(flags.output, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	a.logger.Info("form written", zap.String("path", flags.output), zap.Int("bytes", len(out)))
	return nil
}
