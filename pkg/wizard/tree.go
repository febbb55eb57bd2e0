package wizard

import "strings"

// ErrorTree is an ordered tree of field errors keyed by dot paths. Children
// keep first-insertion order, so depth-first traversal follows the order the
// fields were validated in.
type ErrorTree struct {
	root node
}

type node struct {
	key      string
	path     string
	failed   bool
	messages []string
	children []*node
	index    map[string]*node
}

// Entry is one flattened tree element.
type Entry struct {
	Path     string
	Messages []string
}

// NewErrorTree returns an empty tree.
func NewErrorTree() *ErrorTree {
	return &ErrorTree{}
}

func (n *node) child(key string, create bool) *node {
	if c, ok := n.index[key]; ok {
		return c
	}
	if !create {
		return nil
	}
	path := key
	if n.path != "" {
		path = n.path + "." + key
	}
	c := &node{key: key, path: path}
	if n.index == nil {
		n.index = map[string]*node{}
	}
	n.index[key] = c
	n.children = append(n.children, c)
	return c
}

func (t *ErrorTree) find(path string, create bool) *node {
	current := &t.root
	if path == "" {
		return current
	}
	for _, key := range strings.Split(path, ".") {
		current = current.child(key, create)
		if current == nil {
			return nil
		}
	}
	return current
}

// Insert records a failure at path. An empty message marks the path as failed
// without a specific message. Duplicate messages are ignored.
func (t *ErrorTree) Insert(path, message string) {
	n := t.find(path, true)
	n.failed = true
	if message == "" {
		return
	}
	for _, existing := range n.messages {
		if existing == message {
			return
		}
	}
	n.messages = append(n.messages, message)
}

// Clear drops the failures recorded at path and everything under it. Node
// positions are kept so a later Insert retains the original order.
func (t *ErrorTree) Clear(path string) {
	n := t.find(path, false)
	if n == nil {
		return
	}
	n.walk(func(c *node) bool {
		c.failed = false
		c.messages = nil
		return true
	})
}

// Merge inserts every failure of other, in its order.
func (t *ErrorTree) Merge(other *ErrorTree) {
	if other == nil {
		return
	}
	for _, entry := range other.Flatten() {
		if len(entry.Messages) == 0 {
			t.Insert(entry.Path, "")
			continue
		}
		for _, msg := range entry.Messages {
			t.Insert(entry.Path, msg)
		}
	}
}

// Messages returns the messages recorded exactly at path.
func (t *ErrorTree) Messages(path string) []string {
	n := t.find(path, false)
	if n == nil {
		return nil
	}
	return append([]string(nil), n.messages...)
}

// Has reports whether path or anything under it failed.
func (t *ErrorTree) Has(path string) bool {
	_, _, ok := t.firstFailure(path)
	return ok
}

// Empty reports whether the tree holds no failures.
func (t *ErrorTree) Empty() bool {
	return t == nil || !t.Has("")
}

// Len counts failed paths.
func (t *ErrorTree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Flatten())
}

// First returns the first specific message in depth-first order.
func (t *ErrorTree) First() (path, message string, ok bool) {
	return t.FirstUnder("")
}

// FirstUnder is First restricted to prefix and its descendants.
func (t *ErrorTree) FirstUnder(prefix string) (path, message string, ok bool) {
	if t == nil {
		return "", "", false
	}
	start := t.find(prefix, false)
	if start == nil {
		return "", "", false
	}
	start.walk(func(n *node) bool {
		if len(n.messages) > 0 {
			path, message, ok = n.path, n.messages[0], true
			return false
		}
		return true
	})
	return path, message, ok
}

// firstFailure is like FirstUnder but also matches failures without a
// message.
func (t *ErrorTree) firstFailure(prefix string) (path, message string, ok bool) {
	if t == nil {
		return "", "", false
	}
	start := t.find(prefix, false)
	if start == nil {
		return "", "", false
	}
	start.walk(func(n *node) bool {
		if n.failed {
			path, ok = n.path, true
			if len(n.messages) > 0 {
				message = n.messages[0]
			}
			return false
		}
		return true
	})
	return path, message, ok
}

// Flatten lists failed paths in depth-first order.
func (t *ErrorTree) Flatten() []Entry {
	if t == nil {
		return nil
	}
	var out []Entry
	t.root.walk(func(n *node) bool {
		if n.failed {
			out = append(out, Entry{Path: n.path, Messages: append([]string(nil), n.messages...)})
		}
		return true
	})
	return out
}

// Map returns the failures keyed by path, the shape renderers consume.
func (t *ErrorTree) Map() map[string][]string {
	entries := t.Flatten()
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string][]string, len(entries))
	for _, entry := range entries {
		out[entry.Path] = entry.Messages
	}
	return out
}

// walk visits n and its descendants depth first until fn returns false.
func (n *node) walk(fn func(*node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
