package wizard

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// stubValidator returns subsets of a fixed tree.
type stubValidator struct {
	failures []Entry
	calls    [][]string
}

func (s *stubValidator) tree(match func(string) bool) *ErrorTree {
	tree := NewErrorTree()
	for _, f := range s.failures {
		if !match(f.Path) {
			continue
		}
		if len(f.Messages) == 0 {
			tree.Insert(f.Path, "")
		}
		for _, msg := range f.Messages {
			tree.Insert(f.Path, msg)
		}
	}
	return tree
}

func (s *stubValidator) Validate(paths ...string) *ErrorTree {
	s.calls = append(s.calls, paths)
	return s.tree(func(p string) bool {
		for _, prefix := range paths {
			if p == prefix || strings.HasPrefix(p, prefix+".") {
				return true
			}
		}
		return false
	})
}

func (s *stubValidator) ValidateAll() *ErrorTree {
	s.calls = append(s.calls, nil)
	return s.tree(func(string) bool { return true })
}

func threeSteps() []Step {
	return []Step{
		{Fields: []string{"weights.total", "weights.spec_grav"}, DefaultMessage: "Check the weights"},
		{Fields: []string{"ops"}, DefaultMessage: "Check the schedule"},
		{},
	}
}

func TestNextAdvancesWhenStepIsValid(t *testing.T) {
	v := &stubValidator{failures: []Entry{{Path: "ops.0.start", Messages: []string{"must be greater than 10:00"}}}}
	c := New(threeSteps(), v)

	notice := c.Next()
	if !notice.OK || c.Step() != 2 {
		t.Fatalf("expected to advance to step 2, got %+v", notice)
	}
	if diff := cmp.Diff([][]string{{"weights.total", "weights.spec_grav"}}, v.calls); diff != "" {
		t.Fatalf("expected scoped validation (-want +got):\n%s", diff)
	}
}

func TestNextBlocksWithFirstMessageInFieldOrder(t *testing.T) {
	v := &stubValidator{failures: []Entry{
		{Path: "weights.spec_grav", Messages: []string{"Please enter a number"}},
		{Path: "weights.total", Messages: []string{"out of range"}},
	}}
	c := New(threeSteps(), v)

	want := Notice{Step: 1, Path: "weights.total", Message: "out of range"}
	if diff := cmp.Diff(want, c.Next()); diff != "" {
		t.Fatalf("notice mismatch (-want +got):\n%s", diff)
	}
	if c.Step() != 1 {
		t.Fatalf("expected to stay on step 1, got %d", c.Step())
	}
}

func TestNextFallsBackToStepDefault(t *testing.T) {
	v := &stubValidator{failures: []Entry{{Path: "weights.total"}}}
	c := New(threeSteps(), v)

	notice := c.Next()
	if notice.OK || notice.Message != "Check the weights" {
		t.Fatalf("expected step default message, got %+v", notice)
	}
}

func TestNextWithoutFieldsUsesDepthFirstSearch(t *testing.T) {
	v := &stubValidator{}
	c := New(threeSteps(), v)
	c.Next()
	c.Next()
	if c.Step() != 3 {
		t.Fatalf("expected step 3, got %d", c.Step())
	}

	v.failures = []Entry{{Path: "notes.0", Messages: []string{"This field is required"}}}
	notice := c.Next()
	if notice.OK || notice.Path != "notes.0" {
		t.Fatalf("expected DFS failure on notes.0, got %+v", notice)
	}

	v.failures = nil
	if notice := c.Next(); !notice.OK || c.Step() != 3 {
		t.Fatalf("expected last step to be capped, got %+v", notice)
	}
}

func TestBackFloorsAtOne(t *testing.T) {
	c := New(threeSteps(), &stubValidator{})
	if notice := c.Back(); !notice.OK || c.Step() != 1 {
		t.Fatalf("expected floor at step 1, got %+v", notice)
	}
	c.Next()
	c.Back()
	if c.Step() != 1 {
		t.Fatalf("expected back to step 1, got %d", c.Step())
	}
}

func TestSubmitValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := New(threeSteps(), &stubValidator{})
		if notice := c.SubmitValidate(); !notice.OK {
			t.Fatalf("expected success, got %+v", notice)
		}
	})

	t.Run("first specific message", func(t *testing.T) {
		v := &stubValidator{failures: []Entry{
			{Path: "weights.total"},
			{Path: "ops.1.start", Messages: []string{"must be greater than 10:00"}},
		}}
		want := Notice{Step: 2, Path: "ops.1.start", Message: "must be greater than 10:00"}
		if diff := cmp.Diff(want, New(threeSteps(), v).SubmitValidate()); diff != "" {
			t.Fatalf("notice mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("owning step default", func(t *testing.T) {
		v := &stubValidator{failures: []Entry{{Path: "ops.0.finish"}}}
		want := Notice{Step: 2, Path: "ops.0.finish", Message: "Check the schedule"}
		if diff := cmp.Diff(want, New(threeSteps(), v).SubmitValidate()); diff != "" {
			t.Fatalf("notice mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("generic", func(t *testing.T) {
		v := &stubValidator{failures: []Entry{{Path: "orphan"}}}
		notice := New(threeSteps(), v).SubmitValidate()
		if notice.OK || notice.Message != GenericMessage {
			t.Fatalf("expected generic message, got %+v", notice)
		}
	})
}

func TestErrorTreeOrder(t *testing.T) {
	tree := NewErrorTree()
	tree.Insert("ops.1.start", "b")
	tree.Insert("weights.total", "c")
	tree.Insert("ops.0.finish", "a")
	tree.Insert("ops.1.start", "b")

	want := []Entry{
		{Path: "ops.1.start", Messages: []string{"b"}},
		{Path: "ops.0.finish", Messages: []string{"a"}},
		{Path: "weights.total", Messages: []string{"c"}},
	}
	if diff := cmp.Diff(want, tree.Flatten()); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}

	if path, msg, _ := tree.FirstUnder("weights"); path != "weights.total" || msg != "c" {
		t.Fatalf("unexpected FirstUnder result %q %q", path, msg)
	}

	tree.Clear("ops")
	if tree.Has("ops") || tree.Len() != 1 {
		t.Fatalf("expected ops subtree cleared, got %v", tree.Flatten())
	}
	tree.Insert("ops.0.finish", "again")
	if path, _, _ := tree.First(); path != "ops.0.finish" {
		t.Fatalf("expected cleared node to keep its position, got %q", path)
	}
	if _, _, ok := tree.FirstUnder("missing"); ok {
		t.Fatalf("expected no result for unknown prefix")
	}
}

func TestErrorTreeMergeAndMap(t *testing.T) {
	a := NewErrorTree()
	a.Insert("x", "one")
	b := NewErrorTree()
	b.Insert("y.z", "")
	b.Insert("x", "two")
	a.Merge(b)

	want := map[string][]string{"x": {"one", "two"}, "y.z": nil}
	if diff := cmp.Diff(want, a.Map()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
	if NewErrorTree().Map() != nil || !NewErrorTree().Empty() {
		t.Fatalf("expected empty tree")
	}
}
