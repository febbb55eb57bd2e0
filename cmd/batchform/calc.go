package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-batchform/pkg/calc"
	"github.com/goliatone/go-batchform/pkg/session"
)

type calcFlags struct {
	variant    string
	valuesPath string
	set        []string
	list       bool
	jsonOut    bool
}

func newCalcCmd(a *app) *cobra.Command {
	flags := &calcFlags{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run the weight calculation chain for a variant",
		Long: `Compute the derived weights of a batch from measured inputs. The variant
comes from --variant, then from the form definition, then defaults to
standard. Overrides from the form definition apply when it names the variant.`,
		Example: `  batchform calc --variant half-batch --set weights.total=120 --set weights.brewing_table_value=4
  batchform calc --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCalc(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.variant, "variant", "", "variant name")
	cmd.Flags().StringVar(&flags.valuesPath, "values", "", "JSON file with input values")
	cmd.Flags().StringArrayVar(&flags.set, "set", nil, "input value as path=value (repeatable)")
	cmd.Flags().BoolVar(&flags.list, "list", false, "list the built-in variants")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print derived values as JSON")
	return cmd
}

func (a *app) runCalc(cmd *cobra.Command, flags *calcFlags) error {
	out := cmd.OutOrStdout()
	if flags.list {
		return listVariants(out)
	}

	variant, err := a.calcVariant(flags.variant)
	if err != nil {
		return err
	}

	values, err := readValues(flags.valuesPath)
	if err != nil {
		return err
	}
	assigned, err := parseAssignments(flags.set)
	if err != nil {
		return err
	}

	sess, err := session.New(session.WithLogger(a.logger), session.WithVariant(variant))
	if err != nil {
		return err
	}
	if err := seed(sess, mergeValues(values, assigned)); err != nil {
		return err
	}

	derived := make(map[string]any)
	paths := sess.DerivedPaths()
	for _, path := range paths {
		if value, ok := sess.Get(path); ok && value != nil {
			derived[path] = value
		}
	}
	a.logger.Debug("calculation settled", zap.String("variant", variant.Name), zap.Int("derived", len(derived)))

	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(derived)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, path := range paths {
		value, ok := derived[path]
		if !ok {
			value = "-"
		}
		fmt.Fprintf(w, "%s\t%v\n", path, value)
	}
	return w.Flush()
}

// calcVariant resolves the variant by flag, then config, then the standard
// catalogue entry.
func (a *app) calcVariant(name string) (calc.Variant, error) {
	if a.configPath != "" {
		cfg, err := a.loadConfig()
		if err != nil {
			return calc.Variant{}, err
		}
		if name == "" || name == cfg.Variant {
			return cfg.CalcVariant()
		}
	}
	if name == "" {
		name = calc.VariantStandard
	}
	variant, ok := calc.Lookup(name)
	if !ok {
		return calc.Variant{}, fmt.Errorf("unknown variant %q (known: %v)", name, calc.Names())
	}
	return variant, nil
}

func listVariants(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTANDARD YIELD\tDESCRIPTION")
	for _, v := range calc.Variants() {
		fmt.Fprintf(w, "%s\t%g\t%s\n", v.Name, v.StandardYield, v.Description)
	}
	return w.Flush()
}
