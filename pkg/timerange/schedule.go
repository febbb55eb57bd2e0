package timerange

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Placeholders substituted inside Slot path templates.
const (
	IndexPlaceholder = "{index}"
	SubPlaceholder   = "{sub}"
)

// Slot holds the start/finish path templates of one record kind.
type Slot struct {
	Start  string `json:"start" yaml:"start" toml:"start"`
	Finish string `json:"finish" yaml:"finish" toml:"finish"`
}

func (s Slot) resolve(main, sub int) (start, finish string) {
	return expand(s.Start, main, sub), expand(s.Finish, main, sub)
}

func expand(tmpl string, main, sub int) string {
	out := strings.ReplaceAll(tmpl, IndexPlaceholder, strconv.Itoa(main))
	return strings.ReplaceAll(out, SubPlaceholder, strconv.Itoa(sub))
}

// Schedule describes where operation records live in the form document.
// Mains main records are read from Main; each may carry Subs sub records read
// from Sub. A zero Sub slot means no nesting.
type Schedule struct {
	Main  Slot `json:"main" yaml:"main" toml:"main"`
	Sub   Slot `json:"sub" yaml:"sub" toml:"sub"`
	Mains int  `json:"mains" yaml:"mains" toml:"mains"`
	Subs  int  `json:"subs" yaml:"subs" toml:"subs"`
}

// Empty reports whether the schedule declares no records.
func (s Schedule) Empty() bool {
	return s.Mains <= 0 || s.Main.Start == ""
}

func (s Schedule) nested() bool {
	return s.Subs > 0 && s.Sub.Start != ""
}

// Paths lists every concrete start and finish path, sorted.
func (s Schedule) Paths() []string {
	if s.Empty() {
		return nil
	}
	var out []string
	add := func(paths ...string) {
		for _, p := range paths {
			if p != "" {
				out = append(out, p)
			}
		}
	}
	for i := 0; i < s.Mains; i++ {
		add(s.Main.resolve(i, 0))
		if !s.nested() {
			continue
		}
		for j := 0; j < s.Subs; j++ {
			add(s.Sub.resolve(i, j))
		}
	}
	sort.Strings(out)
	return out
}

// Contains reports whether path is one of the schedule's time fields.
func (s Schedule) Contains(path string) bool {
	paths := s.Paths()
	idx := sort.SearchStrings(paths, path)
	return idx < len(paths) && paths[idx] == path
}

// Getter is the read side of the form document.
type Getter interface {
	Get(path string) (any, bool)
}

// FromState builds records from the document. A record is enabled when
// enabled reports its start path as bound; a nil enabled treats every record
// as enabled.
func FromState(doc Getter, schedule Schedule, enabled func(path string) bool) []Record {
	if schedule.Empty() {
		return nil
	}
	if enabled == nil {
		enabled = func(string) bool { return true }
	}

	read := func(path string) string {
		if path == "" || doc == nil {
			return ""
		}
		value, ok := doc.Get(path)
		if !ok || value == nil {
			return ""
		}
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprint(value)
	}
	build := func(slot Slot, main, sub int) Record {
		start, finish := slot.resolve(main, sub)
		return Record{
			Start:      read(start),
			Finish:     read(finish),
			Enabled:    enabled(start),
			StartPath:  start,
			FinishPath: finish,
		}
	}

	records := make([]Record, 0, schedule.Mains)
	for i := 0; i < schedule.Mains; i++ {
		rec := build(schedule.Main, i, 0)
		if schedule.nested() {
			for j := 0; j < schedule.Subs; j++ {
				rec.Subs = append(rec.Subs, build(schedule.Sub, i, j))
			}
		}
		records = append(records, rec)
	}
	return records
}

// ValidateState is FromState followed by Validate.
func ValidateState(doc Getter, schedule Schedule, enabled func(path string) bool, opts Options) []Violation {
	return Validate(FromState(doc, schedule, enabled), opts)
}
