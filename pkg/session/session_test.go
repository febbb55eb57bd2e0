package session

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/calc"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/timerange"
	"github.com/goliatone/go-batchform/pkg/wizard"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const stepOne = `{
  "template": {"template_id": "T1", "template_name": "Weights"},
  "items": [
    {"item_id": "w", "display_order": 1, "config_json": {
      "row_type": "single_input", "label": "Total", "unit": "kg",
      "field": "weights.total", "input_type": "number", "required": true,
      "rule": {"type": "range", "min": 0, "max": 500, "error_message": "Total out of range"}}}
  ]
}`

const stepTwo = `{
  "template": {"template_id": "T2", "template_name": "Operations"},
  "items": [
    {"item_id": "op0", "display_order": 1, "config_json": {
      "row_type": "dual_input", "time_pair": true, "label": "Mixing",
      "inputs": [{"field": "ops.0.start", "input_type": "time"}, {"field": "ops.0.finish", "input_type": "time"}]}},
    {"item_id": "op1", "display_order": 2, "config_json": {
      "row_type": "dual_input", "time_pair": true, "label": "Cooling",
      "inputs": [{"field": "ops.1.start", "input_type": "time"}, {"field": "ops.1.finish", "input_type": "time"}]}}
  ]
}`

var testSchedule = timerange.Schedule{
	Main:  timerange.Slot{Start: "ops.{index}.start", Finish: "ops.{index}.finish"},
	Mains: 2,
}

func standardVariant(t *testing.T) calc.Variant {
	t.Helper()
	v, ok := calc.Lookup(calc.VariantStandard)
	if !ok {
		t.Fatalf("standard variant missing")
	}
	return v
}

func mountPayload(t *testing.T, s *Session, step int, payload string) {
	t.Helper()
	doc := blueprint.MustParseBytes([]byte(payload))
	page := render.RenderDocument(doc, render.RowOptions{Step: step})
	if err := s.Mount(step, page.Bindings); err != nil {
		t.Fatalf("mount step %d: %v", step, err)
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(WithVariant(standardVariant(t)), WithSchedule(testSchedule, timerange.Options{}))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	mountPayload(t, s, 1, stepOne)
	mountPayload(t, s, 2, stepTwo)
	return s
}

func TestNewSettlesFixedMultiplier(t *testing.T) {
	s, err := New(WithVariant(standardVariant(t)))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if got, _ := s.Get("derived.multiplier"); got != 1.0 {
		t.Fatalf("expected multiplier settled on creation, got %v", got)
	}
	if s.ID() == "" {
		t.Fatalf("expected generated session id")
	}
}

func TestSetCascadesDerivedFields(t *testing.T) {
	s := newTestSession(t)

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })
	defer unsubscribe()

	values := []struct {
		path  string
		value any
	}{
		{"weights.total", "100"},
		{"weights.brewing_table_value", "10"},
		{"weights.standard_yield", "800"},
		{"weights.magnesium_hydroxide", "5"},
		{"weights.ncr_actual", "2"},
	}
	for _, v := range values {
		if _, err := s.Set(v.path, v.value); err != nil {
			t.Fatalf("set %s: %v", v.path, err)
		}
	}

	if got, _ := s.Get("derived.final_total_weight"); got != 108.25 {
		t.Fatalf("final total weight = %v, want 108.25", got)
	}
	if len(events) != len(values) {
		t.Fatalf("expected one event per effective write, got %d", len(events))
	}
	if events[0].Changed[0] != "weights.total" || events[0].SessionID != s.ID() {
		t.Fatalf("unexpected first event %+v", events[0])
	}

	changed, err := s.Set("weights.total", "100")
	if err != nil || len(changed) != 0 {
		t.Fatalf("expected rewriting the same value to be a no-op, got %v %v", changed, err)
	}
	if len(events) != len(values) {
		t.Fatalf("expected no event for a no-op write")
	}
}

func TestSetRejectsDerivedField(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Set("derived.yield_rate", 99); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestSetRevalidatesField(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.Set("weights.total", "900"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff([]string{"Total out of range"}, s.Errors().Messages("weights.total")); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Set("weights.total", "120"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !s.Errors().Empty() {
		t.Fatalf("expected errors cleared, got %v", s.Errors().Flatten())
	}
}

func TestSetRevalidatesSchedule(t *testing.T) {
	s := newTestSession(t)

	mustSet(t, s, "ops.0.start", "10:00")
	mustSet(t, s, "ops.1.start", "09:00")
	if diff := cmp.Diff([]string{"must be greater than 10:00"}, s.Errors().Messages("ops.1.start")); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	mustSet(t, s, "ops.0.finish", "10:20")
	mustSet(t, s, "ops.1.start", "10:30")
	if !s.Errors().Empty() {
		t.Fatalf("expected schedule to pass, got %v", s.Errors().Flatten())
	}
}

func TestValidateScopesToPaths(t *testing.T) {
	s := newTestSession(t)
	mustSet(t, s, "ops.0.start", "10:00")
	mustSet(t, s, "ops.1.start", "09:00")

	scoped := s.Validate("weights")
	if diff := cmp.Diff([]wizard.Entry{{Path: "weights.total", Messages: []string{"This field is required"}}}, scoped.Flatten()); diff != "" {
		t.Fatalf("scoped tree mismatch (-want +got):\n%s", diff)
	}

	all := s.ValidateAll()
	if path, msg, _ := all.First(); path != "weights.total" || msg != "This field is required" {
		t.Fatalf("expected first failure in render order, got %q %q", path, msg)
	}
	if all.Len() != 2 {
		t.Fatalf("expected two failed paths, got %v", all.Flatten())
	}
}

func TestSessionDrivesWizard(t *testing.T) {
	s := newTestSession(t)
	c := wizard.New([]wizard.Step{
		{Fields: []string{"weights"}, DefaultMessage: "Check the weights"},
		{Fields: []string{"ops"}, DefaultMessage: "Check the schedule"},
	}, s)

	if notice := c.Next(); notice.OK || notice.Message != "This field is required" {
		t.Fatalf("expected required notice, got %+v", notice)
	}
	mustSet(t, s, "weights.total", "100")
	if notice := c.Next(); !notice.OK || c.Step() != 2 {
		t.Fatalf("expected to advance, got %+v", notice)
	}
	if notice := c.SubmitValidate(); !notice.OK {
		t.Fatalf("expected submit to pass, got %+v", notice)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestSession(t)
	mustSet(t, s, "ops.0.start", "08:00")

	snap := s.Snapshot()
	snap["ops"].([]any)[0].(map[string]any)["start"] = "23:00"

	if got, _ := s.Get("ops.0.start"); got != "08:00" {
		t.Fatalf("snapshot mutation leaked into session: %v", got)
	}
}

func TestUnmountDropsStepErrors(t *testing.T) {
	s := newTestSession(t)
	mustSet(t, s, "weights.total", "900")
	mustSet(t, s, "ops.0.start", "10:00")
	mustSet(t, s, "ops.1.start", "09:00")

	s.Unmount(1)
	if s.Errors().Has("weights") {
		t.Fatalf("expected step 1 errors dropped")
	}
	s.Unmount(2)
	if !s.Errors().Empty() {
		t.Fatalf("expected schedule errors dropped with their bindings, got %v", s.Errors().Flatten())
	}
	if s.Bindings().Len() != 0 {
		t.Fatalf("expected no bindings after unmount")
	}
}

func mustSet(t *testing.T, s *Session, path string, value any) {
	t.Helper()
	if _, err := s.Set(path, value); err != nil {
		t.Fatalf("set %s: %v", path, err)
	}
}
