package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-batchform/internal/draft"
	"github.com/goliatone/go-batchform/pkg/renderers/tui"
)

const weightsStep = `{
  "template": {"template_id": "T1", "template_name": "Weights"},
  "items": [
    {"item_id": "w", "display_order": 1, "config_json": {
      "row_type": "single_input", "label": "Total", "unit": "kg",
      "field": "weights.total", "input_type": "number", "required": true}}
  ]
}`

const operatorStep = `{
  "template": {"template_id": "T2", "template_name": "Operator"},
  "items": [
    {"item_id": "op", "display_order": 1, "config_json": {
      "row_type": "single_input", "label": "Operator",
      "field": "batch.operator", "input_type": "text", "required": true}}
  ]
}`

const formConfig = `
name: Brine batch
variant: standard
steps:
  - source: weights.json
    fields: [weights]
  - source: operator.json
    fields: [batch]
`

type scriptedDriver struct {
	inputs []string
	pos    int
	info   []string
}

func (d *scriptedDriver) Input(_ context.Context, _ tui.InputConfig) (string, error) {
	if d.pos >= len(d.inputs) {
		return "", errors.New("no input scripted")
	}
	answer := d.inputs[d.pos]
	d.pos++
	return answer, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	return true, nil
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.info = append(d.info, msg)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func formDir(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, dir, "weights.json", weightsStep)
	writeFile(t, dir, "operator.json", operatorStep)
	return dir, writeFile(t, dir, "form.yaml", formConfig)
}

func execute(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCalcJSON(t *testing.T) {
	out, _, err := execute(t, newApp(), "calc", "--json",
		"--set", "weights.total=100",
		"--set", "weights.brewing_table_value=10",
		"--set", "weights.standard_yield=800",
		"--set", "weights.magnesium_hydroxide=5",
		"--set", "weights.ncr_actual=2",
		"--set", "weights.actual_weight=100",
	)
	if err != nil {
		t.Fatalf("calc: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := map[string]any{
		"derived.multiplier":         1.0,
		"derived.concentration":      1.25,
		"derived.final_total_weight": 108.25,
		"derived.theoretical_weight": 108.25,
		"derived.yield_rate":         92.4,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("derived mismatch (-want +got):\n%s", diff)
	}
}

func TestCalcListAndUnknownVariant(t *testing.T) {
	out, _, err := execute(t, newApp(), "calc", "--list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, name := range []string{"standard", "half-batch", "by-line"} {
		if !strings.Contains(out, name) {
			t.Fatalf("list output missing %s:\n%s", name, out)
		}
	}

	if _, _, err := execute(t, newApp(), "calc", "--variant", "double"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestValidateReportsFirstFailure(t *testing.T) {
	dir, configPath := formDir(t)
	valuesPath := writeFile(t, dir, "values.json", `{"batch": {"operator": "Kim"}}`)

	out, _, err := execute(t, newApp(), "validate", "-c", configPath, "--values", valuesPath)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	want := "weights.total: This field is required\nstep 1: This field is required\n"
	if out != want {
		t.Fatalf("unexpected report:\n%s", out)
	}

	valuesPath = writeFile(t, dir, "values.json", `{"weights": {"total": "120"}, "batch": {"operator": "Kim"}}`)
	out, _, err = execute(t, newApp(), "validate", "-c", configPath, "--values", valuesPath, "--json")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	var report validateReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Valid || len(report.Errors) != 0 {
		t.Fatalf("expected a clean report, got %+v", report)
	}
}

func TestValidateReportsStepLoadFailures(t *testing.T) {
	dir, configPath := formDir(t)
	if err := os.Remove(filepath.Join(dir, "operator.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out, _, err := execute(t, newApp(), "validate", "-c", configPath)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if !strings.HasPrefix(out, "error: Step 2 failed to load") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}

func TestRenderStepFromConfig(t *testing.T) {
	_, configPath := formDir(t)
	out, _, err := execute(t, newApp(), "render", "-c", configPath, "--step", "2", "--csrf", "tok")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, fragment := range []string{`name="batch.operator"`, `name="_csrf"`, `name="_session"`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("output missing %s:\n%s", fragment, out)
		}
	}

	if _, _, err := execute(t, newApp(), "render", "-c", configPath, "--step", "9"); err == nil {
		t.Fatalf("expected error for undeclared step")
	}
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", weightsStep)
	bad := writeFile(t, dir, "bad.json", `{"items": []}`)

	out, _, err := execute(t, newApp(), "lint", good)
	if err != nil {
		t.Fatalf("lint good: %v\n%s", err, out)
	}
	if out != good+": ok\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, _, err = execute(t, newApp(), "lint", good, bad)
	if !errors.Is(err, errInvalid) {
		t.Fatalf("expected errInvalid, got %v", err)
	}
	if !strings.Contains(out, bad+": ") || !strings.Contains(out, "error") {
		t.Fatalf("expected an error line for %s:\n%s", bad, out)
	}

	if _, _, err := execute(t, newApp(), "lint"); err == nil {
		t.Fatalf("expected error without arguments or config")
	}
}

func TestFillWalksStepsAndPrintsValues(t *testing.T) {
	dir, configPath := formDir(t)
	driver := &scriptedDriver{inputs: []string{"", "120", "Kim"}}
	a := newApp()
	a.prompts = driver

	out, _, err := execute(t, a, "fill", "-c", configPath)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if diff := cmp.Diff(map[string]any{"total": "120"}, got["weights"]); diff != "" {
		t.Fatalf("weights mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"operator": "Kim"}, got["batch"]); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Weights", "! Invalid weights.total: This field is required"}, driver.info[:2]); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}

	store, err := draft.NewStore(filepath.Join(dir, ".batchform", "drafts"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ids, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected drafts to be removed after submit, got %v", ids)
	}
}

func TestFillResumesDraft(t *testing.T) {
	dir, configPath := formDir(t)
	store, err := draft.NewStore(filepath.Join(dir, ".batchform", "drafts"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Save(context.Background(), "s-7", map[string]any{"weights.total": "80"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	driver := &scriptedDriver{inputs: []string{"80", "Lee"}}
	a := newApp()
	a.prompts = driver
	out, stderr, err := execute(t, a, "fill", "-c", configPath, "--resume", "s-7")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !strings.Contains(stderr, "session s-7") {
		t.Fatalf("expected session id on stderr, got %q", stderr)
	}
	if !strings.Contains(out, `"operator": "Lee"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, _, err := execute(t, newApp(), "fill", "-c", configPath, "--resume", "missing"); err == nil {
		t.Fatalf("expected error for unknown draft")
	}
}
