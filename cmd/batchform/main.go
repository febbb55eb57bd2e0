// Command batchform renders, fills and validates multi-step batch record
// forms described by blueprint documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-batchform/pkg/renderers/tui"
)

type app struct {
	configPath string
	verbose    bool
	logger     *zap.Logger
	// prompts replaces the survey terminal driver when set.
	prompts tui.PromptDriver
}

func newApp() *app {
	return &app{logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "batchform",
		Short: "Render, fill and validate batch record forms",
		Long: `batchform drives multi-step batch record forms built from JSON or YAML
blueprints. Derived weights are recomputed on every write and operation
times are checked against their neighbours before a step can be left.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "form definition file (YAML or TOML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newRenderCmd(a),
		newValidateCmd(a),
		newCalcCmd(a),
		newFillCmd(a),
		newLintCmd(a),
		newWatchCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
