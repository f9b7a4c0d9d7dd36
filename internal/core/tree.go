package core

import "fmt"

// Severity grades an annotation attached to a node.
type Severity uint8

const (
	SeverityNote Severity = iota + 1
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// MarshalText renders the severity name in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Annotation is a structured finding about the bytes covered by a node.
type Annotation struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     string   `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
}

// Node is one decoded field or subtree.
type Node struct {
	Name        string       `json:"name" yaml:"name"`
	Text        string       `json:"text,omitempty" yaml:"text,omitempty"`
	Source      string       `json:"source,omitempty" yaml:"source,omitempty"`
	Offset      int          `json:"offset" yaml:"offset"`
	Length      int          `json:"length" yaml:"length"`
	Value       any          `json:"value,omitempty" yaml:"value,omitempty"`
	Children    []*Node      `json:"children,omitempty" yaml:"children,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// NewNode creates a node covering n bytes at off within buf.
func NewNode(buf *Buffer, name string, off, n int) *Node {
	return &Node{
		Name:   name,
		Source: buf.Source(),
		Offset: buf.Abs(off),
		Length: n,
	}
}

// Add appends child and returns it.
func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Annotate attaches a finding to the node.
func (n *Node) Annotate(sev Severity, code, format string, args ...any) {
	n.Annotations = append(n.Annotations, Annotation{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node named name in n's subtree.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(x *Node) bool {
		if x.Name == name {
			found = x
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node named name in n's subtree, in wire order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		if x.Name == name {
			out = append(out, x)
		}
		return true
	})
	return out
}

// Tree is the decoded representation of one buffer.
type Tree struct {
	Protocol string  `json:"protocol" yaml:"protocol"`
	Info     string  `json:"info,omitempty" yaml:"info,omitempty"`
	Nodes    []*Node `json:"nodes" yaml:"nodes"`
}

// Add appends a top-level node and returns it.
func (t *Tree) Add(n *Node) *Node {
	t.Nodes = append(t.Nodes, n)
	return n
}

// Walk visits all nodes depth-first until fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	for _, n := range t.Nodes {
		if !n.Walk(fn) {
			return
		}
	}
}

// Find returns the first node named name.
func (t *Tree) Find(name string) *Node {
	for _, n := range t.Nodes {
		if f := n.Find(name); f != nil {
			return f
		}
	}
	return nil
}

// FindAll returns all nodes named name, in wire order.
func (t *Tree) FindAll(name string) []*Node {
	var out []*Node
	for _, n := range t.Nodes {
		out = append(out, n.FindAll(name)...)
	}
	return out
}

// Annotations collects every annotation in the tree.
func (t *Tree) Annotations() []Annotation {
	var out []Annotation
	t.Walk(func(n *Node) bool {
		out = append(out, n.Annotations...)
		return true
	})
	return out
}

// HasAnnotation reports whether any node carries an annotation with code.
func (t *Tree) HasAnnotation(code string) bool {
	for _, a := range t.Annotations() {
		if a.Code == code {
			return true
		}
	}
	return false
}
