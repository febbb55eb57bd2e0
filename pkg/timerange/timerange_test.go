package timerange

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func rec(start, finish string) Record {
	return Record{Start: start, Finish: finish, Enabled: true}
}

func TestValidateSameRecord(t *testing.T) {
	cases := []struct {
		name          string
		start, finish string
		wantError     bool
	}{
		{name: "same day", start: "10:00", finish: "11:00"},
		{name: "overnight", start: "22:00", finish: "06:00"},
		{name: "too long", start: "08:00", finish: "21:00", wantError: true},
		{name: "exactly twelve hours", start: "08:00", finish: "20:00"},
		{name: "equal", start: "09:30", finish: "09:30", wantError: true},
		{name: "finish blank", start: "09:30"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate([]Record{rec(tc.start, tc.finish)}, Options{})
			if !tc.wantError {
				if len(got) != 0 {
					t.Fatalf("expected no violations, got %v", got)
				}
				return
			}
			want := []Violation{{Main: 0, Sub: -1, Field: FieldFinish, Message: MessageOrder}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("violations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidatePrecedenceUsesStartWhenFinishBlank(t *testing.T) {
	records := []Record{rec("10:00", ""), rec("09:00", "")}
	records[1].StartPath = "ops.1.start"

	want := []Violation{{
		Main: 1, Sub: -1, Field: FieldStart, Path: "ops.1.start",
		Message: "must be greater than 10:00",
	}}
	if diff := cmp.Diff(want, Validate(records, Options{})); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatePrecedence(t *testing.T) {
	cases := []struct {
		name string
		prev Record
		next string
		want string
	}{
		{name: "after finish", prev: rec("08:00", "09:00"), next: "09:15"},
		{name: "equal to finish", prev: rec("08:00", "09:00"), next: "09:00", want: "must be greater than 09:00"},
		{name: "next day", prev: rec("21:00", "23:30"), next: "00:30"},
		{name: "before finish", prev: rec("08:00", "11:00"), next: "10:00", want: "must be greater than 11:00"},
		{name: "gap too wide", prev: rec("06:00", "07:00"), next: "19:30", want: "must be within 12 hours of 07:00"},
		{name: "gap exactly twelve", prev: rec("06:00", "07:00"), next: "19:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate([]Record{tc.prev, rec(tc.next, "")}, Options{})
			if tc.want == "" {
				if len(got) != 0 {
					t.Fatalf("expected no violations, got %v", got)
				}
				return
			}
			if len(got) != 1 || got[0].Main != 1 || got[0].Field != FieldStart || got[0].Message != tc.want {
				t.Fatalf("expected %q on record 1 start, got %v", tc.want, got)
			}
		})
	}
}

func TestValidateEvenlySpacedScheduleAcrossMidnight(t *testing.T) {
	var records []Record
	for i := 0; i < 12; i++ {
		start := (20*60 + i*120) % MinutesPerDay
		records = append(records, rec(FormatClock(start), FormatClock(start+60)))
	}
	if got := Validate(records, Options{}); len(got) != 0 {
		t.Fatalf("expected evenly spaced schedule to pass, got %v", got)
	}
}

func TestValidateSubRecordsLinkThroughMain(t *testing.T) {
	main := rec("08:00", "08:30")
	main.Subs = []Record{
		rec("08:40", "09:00"),
		{Start: "01:00", Finish: "02:00"},
		rec("09:10", "09:20"),
	}
	next := rec("09:15", "10:00")

	got := Validate([]Record{main, next}, Options{})
	want := []Violation{{Main: 1, Sub: -1, Field: FieldStart, Message: "must be greater than 09:20"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateSubPredecessorIsMain(t *testing.T) {
	main := rec("08:00", "09:00")
	main.Subs = []Record{rec("08:30", "08:45")}

	got := Validate([]Record{main}, Options{})
	want := []Violation{{Main: 0, Sub: 0, Field: FieldStart, Message: "must be greater than 09:00"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateDisabledMainStillChecksEnabledSubs(t *testing.T) {
	main := Record{Start: "08:00", Finish: "09:00", Enabled: false}
	main.Subs = []Record{rec("10:00", "23:30"), {Start: "ab", Finish: "25:00"}}

	records := []Record{rec("07:00", "07:30"), main}
	got := Validate(records, Options{})
	want := []Violation{{Main: 1, Sub: 0, Field: FieldFinish, Message: MessageOrder}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}

	// the sub's predecessor is the nearest enabled record, not the disabled main
	main.Subs = []Record{rec("07:15", "08:00")}
	got = Validate([]Record{rec("07:00", "07:30"), main}, Options{})
	want = []Violation{{Main: 1, Sub: 0, Field: FieldStart, Message: PrecedenceMessage("07:30")}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateMalformedRecordIsNotAnAnchor(t *testing.T) {
	records := []Record{rec("08:00", "09:00"), rec("ab", "25:00"), rec("09:30", "")}
	got := Validate(records, Options{})
	want := []Violation{
		{Main: 1, Sub: -1, Field: FieldStart, Message: MessageMalformed},
		{Main: 1, Sub: -1, Field: FieldFinish, Message: MessageMalformed},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCustomWindow(t *testing.T) {
	got := Validate([]Record{rec("08:00", "11:00")}, Options{MaxDuration: 2 * time.Hour})
	if len(got) != 1 || got[0].Field != FieldFinish {
		t.Fatalf("expected duration violation with a 2h window, got %v", got)
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{"00:00": 0, "9:05": 545, "23:59": 1439, " 12:30 ": 750}
	for in, want := range cases {
		got, ok, err := ParseClock(in)
		if err != nil || !ok || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v, %v; want %d", in, got, ok, err, want)
		}
	}

	for _, in := range []string{"25:00", "ab", "12:5", "12-30", "123:00", "12:60"} {
		if _, _, err := ParseClock(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("ParseClock(%q) expected ErrMalformed, got %v", in, err)
		}
	}

	if _, ok, err := ParseClock(""); ok || err != nil {
		t.Fatalf("expected blank to be absent without error")
	}
}

type mapGetter map[string]any

func (m mapGetter) Get(path string) (any, bool) {
	v, ok := m[path]
	return v, ok
}

func TestFromState(t *testing.T) {
	schedule := Schedule{
		Main:  Slot{Start: "ops.{index}.start", Finish: "ops.{index}.finish"},
		Sub:   Slot{Start: "ops.{index}.subs.{sub}.start", Finish: "ops.{index}.subs.{sub}.finish"},
		Mains: 2,
		Subs:  1,
	}
	doc := mapGetter{
		"ops.0.start":        "08:00",
		"ops.0.finish":       "09:00",
		"ops.0.subs.0.start": "09:10",
		"ops.1.start":        "07:00",
	}
	bound := map[string]bool{"ops.0.start": true, "ops.0.subs.0.start": true, "ops.1.start": true}

	records := FromState(doc, schedule, func(path string) bool { return bound[path] })

	want := []Record{
		{
			Start: "08:00", Finish: "09:00", Enabled: true,
			StartPath: "ops.0.start", FinishPath: "ops.0.finish",
			Subs: []Record{{
				Start: "09:10", Enabled: true,
				StartPath: "ops.0.subs.0.start", FinishPath: "ops.0.subs.0.finish",
			}},
		},
		{
			Start: "07:00", Enabled: true,
			StartPath: "ops.1.start", FinishPath: "ops.1.finish",
			Subs: []Record{{
				StartPath: "ops.1.subs.0.start", FinishPath: "ops.1.subs.0.finish",
			}},
		},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	violations := ValidateState(doc, schedule, func(path string) bool { return bound[path] }, Options{})
	if len(violations) != 1 || violations[0].Path != "ops.1.start" {
		t.Fatalf("expected violation on ops.1.start, got %v", violations)
	}
	if !schedule.Contains("ops.1.subs.0.finish") || schedule.Contains("ops.2.start") {
		t.Fatalf("unexpected Contains result for schedule paths %v", schedule.Paths())
	}
}

func ExampleValidate() {
	records := []Record{
		{Start: "10:00", Enabled: true},
		{Start: "09:00", Enabled: true},
	}
	for _, v := range Validate(records, Options{}) {
		fmt.Println(v)
	}
	// Output: record 1 start: must be greater than 10:00
}
