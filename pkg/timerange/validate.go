// Package timerange validates start/finish times across an ordered list of
// operation records and their nested sub records.
//
// Records are checked in flattened order: each main record, then its sub
// records, then the next main record. Each disabled record is exempt on its
// own; the enabled sub records of a disabled main are still checked. Times are "HH:MM"; a
// finish or start numerically smaller than its predecessor may denote the
// next day.
package timerange

import (
	"fmt"
	"time"
)

// Field names the side of a record a violation is reported on.
type Field string

const (
	FieldStart  Field = "start"
	FieldFinish Field = "finish"
)

// Messages reported by Validate.
const (
	MessageOrder     = "Start < Finish"
	MessageMalformed = "Enter time as HH:MM"
)

// DefaultWindow bounds both record duration and inter-record gaps.
const DefaultWindow = 12 * time.Hour

// Record is one operation record. StartPath and FinishPath are echoed into
// violations.
type Record struct {
	Start      string
	Finish     string
	Enabled    bool
	Subs       []Record
	StartPath  string
	FinishPath string
}

// Violation locates one failed rule. Sub is -1 for main records.
type Violation struct {
	Main    int
	Sub     int
	Field   Field
	Path    string
	Message string
}

// Options tunes the windows. Zero values use DefaultWindow.
type Options struct {
	MaxDuration time.Duration
	MaxGap      time.Duration
}

func (o Options) limits() (duration, gap int) {
	duration = int(DefaultWindow / time.Minute)
	gap = duration
	if o.MaxDuration > 0 {
		duration = int(o.MaxDuration / time.Minute)
	}
	if o.MaxGap > 0 {
		gap = int(o.MaxGap / time.Minute)
	}
	return duration, gap
}

// PrecedenceMessage is reported when a start does not follow its predecessor.
func PrecedenceMessage(reference string) string {
	return "must be greater than " + reference
}

// GapMessage is reported when a start is too far after its predecessor.
func GapMessage(reference string) string {
	return "must be within 12 hours of " + reference
}

type entry struct {
	main, sub int
	rec       Record
}

func flatten(records []Record) []entry {
	var out []entry
	for i, main := range records {
		if main.Enabled {
			out = append(out, entry{main: i, sub: -1, rec: main})
		}
		for j, sub := range main.Subs {
			if sub.Enabled {
				out = append(out, entry{main: i, sub: j, rec: sub})
			}
		}
	}
	return out
}

// Validate checks every enabled record and returns the violations in
// schedule order. It is pure and cheap enough to rerun on every edit.
func Validate(records []Record, opts Options) []Violation {
	maxDuration, maxGap := opts.limits()

	var (
		out       []Violation
		reference = -1
	)
	report := func(e entry, field Field, message string) {
		path := e.rec.StartPath
		if field == FieldFinish {
			path = e.rec.FinishPath
		}
		out = append(out, Violation{Main: e.main, Sub: e.sub, Field: field, Path: path, Message: message})
	}

	for _, e := range flatten(records) {
		start, hasStart, startErr := ParseClock(e.rec.Start)
		finish, hasFinish, finishErr := ParseClock(e.rec.Finish)
		if startErr != nil {
			report(e, FieldStart, MessageMalformed)
		}
		if finishErr != nil {
			report(e, FieldFinish, MessageMalformed)
		}
		if startErr != nil || finishErr != nil {
			continue
		}

		if hasStart && hasFinish {
			span := forward(start, finish)
			if span == 0 || span > maxDuration {
				report(e, FieldFinish, MessageOrder)
			}
		}

		if hasStart && reference >= 0 {
			ref := FormatClock(reference)
			switch {
			case start == reference:
				report(e, FieldStart, PrecedenceMessage(ref))
			case start < reference:
				if forward(reference, start) > maxGap {
					report(e, FieldStart, PrecedenceMessage(ref))
				}
			case start-reference > maxGap:
				report(e, FieldStart, GapMessage(ref))
			}
		}

		switch {
		case hasFinish:
			reference = finish
		case hasStart:
			reference = start
		}
	}
	return out
}

// String renders a violation for logs and CLI output.
func (v Violation) String() string {
	where := fmt.Sprintf("record %d", v.Main)
	if v.Sub >= 0 {
		where = fmt.Sprintf("record %d sub %d", v.Main, v.Sub)
	}
	if v.Path != "" {
		where += " (" + v.Path + ")"
	}
	return fmt.Sprintf("%s %s: %s", where, v.Field, v.Message)
}
