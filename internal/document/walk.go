package document

import (
	"errors"
	"strconv"
	"strings"
)

// StopWalk can be returned by a Visitor to end the walk early, Walk then
// returns nil.
var StopWalk = errors.New("stop walk")

// Path locates a node inside a document, it renders as `.key` and `[i]`
// segments with the root being the empty string. Segments link to their
// parent so extending a path does not copy it.
type Path struct {
	segment *segment
}

type segment struct {
	parent  *segment
	key     string
	index   int
	isIndex bool
}

func (p Path) Key(key string) Path {
	return Path{segment: &segment{parent: p.segment, key: key}}
}

func (p Path) Index(i int) Path {
	return Path{segment: &segment{parent: p.segment, index: i, isIndex: true}}
}

func (p Path) String() string {
	var segments []*segment
	for s := p.segment; s != nil; s = s.parent {
		segments = append(segments, s)
	}

	var out strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		s := segments[i]
		if s.isIndex {
			out.WriteByte('[')
			out.WriteString(strconv.Itoa(s.index))
			out.WriteByte(']')
			continue
		}
		out.WriteByte('.')
		out.WriteString(s.key)
	}
	return out.String()
}

// Visitor is called for every container node of a document. Returning an
// error ends the walk.
type Visitor interface {
	OnMapping(path Path, m *Mapping) error
	OnSequence(path Path, s Sequence) error
}

// VisitorFuncs adapts plain functions into a Visitor, nil functions are
// skipped.
type VisitorFuncs struct {
	Mapping  func(path Path, m *Mapping) error
	Sequence func(path Path, s Sequence) error
}

func (v VisitorFuncs) OnMapping(path Path, m *Mapping) error {
	if v.Mapping == nil {
		return nil
	}
	return v.Mapping(path, m)
}

func (v VisitorFuncs) OnSequence(path Path, s Sequence) error {
	if v.Sequence == nil {
		return nil
	}
	return v.Sequence(path, s)
}

type frame struct {
	path Path
	node Node
}

// Walk visits every mapping and sequence of the tree depth-first in document
// order (a node before its children, children in key/index order). Leaves are
// not visited. An explicit stack is used so deeply nested documents do not
// grow the goroutine stack.
func Walk(root Node, v Visitor) error {
	if root == nil {
		return nil
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var err error
		switch node := current.node.(type) {
		case *Mapping:
			err = v.OnMapping(current.path, node)
			if err != nil {
				break
			}
			for i := len(node.keys) - 1; i >= 0; i-- {
				key := node.keys[i]
				child := node.values[key]
				if isContainer(child) {
					stack = append(stack, frame{path: current.path.Key(key), node: child})
				}
			}
		case Sequence:
			err = v.OnSequence(current.path, node)
			if err != nil {
				break
			}
			for i := len(node) - 1; i >= 0; i-- {
				if isContainer(node[i]) {
					stack = append(stack, frame{path: current.path.Index(i), node: node[i]})
				}
			}
		}

		if errors.Is(err, StopWalk) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func isContainer(n Node) bool {
	switch n.(type) {
	case *Mapping, Sequence:
		return true
	}
	return false
}
