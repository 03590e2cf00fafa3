package dom

import (
	"slices"
	"sync"
)

// Node is an in-memory Element. It is safe for concurrent use.
type Node struct {
	mu            sync.RWMutex
	attrs         map[string]string
	classes       map[string]struct{}
	value         string
	checked       bool
	indeterminate bool
	parent        *Node
	children      []*Node
	listeners     map[string][]Listener
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithAttr sets an attribute.
func WithAttr(name, value string) NodeOption {
	return func(n *Node) { n.attrs[name] = value }
}

// WithClass adds marker classes.
func WithClass(classes ...string) NodeOption {
	return func(n *Node) {
		for _, class := range classes {
			n.classes[class] = struct{}{}
		}
	}
}

// WithValue sets the control value.
func WithValue(value string) NodeOption {
	return func(n *Node) { n.value = value }
}

// WithChecked sets the checked state.
func WithChecked(checked bool) NodeOption {
	return func(n *Node) { n.checked = checked }
}

// WithIndeterminate sets the tri-state flag of a checkbox.
func WithIndeterminate(indeterminate bool) NodeOption {
	return func(n *Node) { n.indeterminate = indeterminate }
}

// WithChildren nests children under the node.
func WithChildren(children ...*Node) NodeOption {
	return func(n *Node) {
		for _, child := range children {
			if child == nil {
				continue
			}
			child.parent = n
			n.children = append(n.children, child)
		}
	}
}

// NewNode builds a detached node.
func NewNode(opts ...NodeOption) *Node {
	n := &Node{
		attrs:     map[string]string{},
		classes:   map[string]struct{}{},
		listeners: map[string][]Listener{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

func (n *Node) Attr(name string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	value, ok := n.attrs[name]
	return value, ok
}

func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	n.attrs[name] = value
	n.mu.Unlock()
}

func (n *Node) RemoveAttr(name string) {
	n.mu.Lock()
	delete(n.attrs, name)
	n.mu.Unlock()
}

func (n *Node) HasClass(class string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.classes[class]
	return ok
}

func (n *Node) Value() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value
}

func (n *Node) SetValue(value string) {
	n.mu.Lock()
	n.value = value
	n.mu.Unlock()
}

func (n *Node) Checked() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.checked
}

func (n *Node) SetChecked(checked bool) {
	n.mu.Lock()
	n.checked = checked
	n.mu.Unlock()
}

func (n *Node) Indeterminate() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.indeterminate
}

func (n *Node) SetIndeterminate(indeterminate bool) {
	n.mu.Lock()
	n.indeterminate = indeterminate
	n.mu.Unlock()
}

// Disabled reports whether the disabled attribute is present.
func (n *Node) Disabled() bool {
	return HasAttr(n, AttrDisabled)
}

func (n *Node) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []Element {
	var out []Element
	n.walk(func(child *Node) {
		out = append(out, child)
	})
	return out
}

func (n *Node) walk(visit func(*Node)) {
	for _, child := range n.children {
		visit(child)
		child.walk(visit)
	}
}

func (n *Node) AddEventListener(eventType string, listener Listener) {
	if listener == nil {
		return
	}
	n.mu.Lock()
	n.listeners[eventType] = append(n.listeners[eventType], listener)
	n.mu.Unlock()
}

// Fire dispatches an event of eventType at n and bubbles it to every ancestor.
// Listeners run synchronously on the calling goroutine.
func (n *Node) Fire(eventType string) {
	for current := n; current != nil; current = current.parent {
		current.mu.RLock()
		listeners := slices.Clone(current.listeners[eventType])
		current.mu.RUnlock()
		for _, listener := range listeners {
			listener(Event{Type: eventType, Target: n, CurrentTarget: current})
		}
	}
}

// MemoryDocument is a Document over a forest of Nodes.
type MemoryDocument struct {
	roots []*Node
}

// NewDocument builds a document whose top-level nodes are roots.
func NewDocument(roots ...*Node) *MemoryDocument {
	return &MemoryDocument{roots: slices.DeleteFunc(slices.Clone(roots), func(n *Node) bool { return n == nil })}
}

func (d *MemoryDocument) each(visit func(*Node) bool) {
	for _, root := range d.roots {
		if !visit(root) {
			return
		}
		stop := false
		root.walk(func(child *Node) {
			if !stop && !visit(child) {
				stop = true
			}
		})
		if stop {
			return
		}
	}
}

func (d *MemoryDocument) ByName(name string) Element {
	if name == "" {
		return nil
	}
	var byName, byDataName *Node
	d.each(func(n *Node) bool {
		if v, _ := n.Attr(AttrName); v == name {
			byName = n
			return false
		}
		if byDataName == nil {
			if v, _ := n.Attr(AttrDataName); v == name {
				byDataName = n
			}
		}
		return true
	})
	switch {
	case byName != nil:
		return byName
	case byDataName != nil:
		return byDataName
	default:
		return nil
	}
}

func (d *MemoryDocument) ByGroup(group string) []Element {
	var out []Element
	d.each(func(n *Node) bool {
		if v, ok := n.Attr(AttrOptionGroup); ok && v == group {
			out = append(out, n)
		}
		return true
	})
	return out
}

func (d *MemoryDocument) ByClass(class string) []Element {
	var out []Element
	d.each(func(n *Node) bool {
		if n.HasClass(class) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func (d *MemoryDocument) ByID(id string) Element {
	var found *Node
	d.each(func(n *Node) bool {
		if v, ok := n.Attr(AttrID); ok && v == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return found
}
