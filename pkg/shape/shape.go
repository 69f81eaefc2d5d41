// Package shape holds the whiteboard shape model: a closed set of eight shape
// kinds sharing a common style record.
package shape

import (
	"github.com/google/uuid"
)

// MaxDepth caps group nesting for recursive operations and decoding.
const MaxDepth = 32

type Kind int

const (
	KindRectangle Kind = iota
	KindEllipse
	KindLine
	KindArrow
	KindFreehand
	KindText
	KindImage
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindRectangle:
		return "rectangle"
	case KindEllipse:
		return "ellipse"
	case KindLine:
		return "line"
	case KindArrow:
		return "arrow"
	case KindFreehand:
		return "freehand"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindGroup:
		return "group"
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindRectangle; k <= KindGroup; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Shape is implemented by exactly the eight value types in this package:
// Rectangle, Ellipse, Line, Arrow, Freehand, Text, Image and Group.
type Shape interface {
	ShapeID() string
	Kind() Kind
	ShapeStyle() Style
	isShape()
}

// NewID returns a fresh shape identity.
func NewID() string {
	return uuid.NewString()
}

// WithStyle returns a copy of s carrying the given style.
func WithStyle(s Shape, st Style) Shape {
	switch v := s.(type) {
	case Rectangle:
		v.Style = st
		return v
	case Ellipse:
		v.Style = st
		return v
	case Line:
		v.Style = st
		return v
	case Arrow:
		v.Style = st
		return v
	case Freehand:
		v.Style = st
		return v
	case Text:
		v.Style = st
		return v
	case Image:
		v.Style = st
		return v
	case Group:
		v.Style = st
		return v
	}
	return s
}

// WithNewID returns a duplicate of s with fresh identities throughout the tree.
// Seeds are kept so the duplicate renders with the same jitter.
func WithNewID(s Shape) Shape {
	switch v := s.(type) {
	case Rectangle:
		v.ID = NewID()
		return v
	case Ellipse:
		v.ID = NewID()
		return v
	case Line:
		v.ID = NewID()
		v.Intermediate = clonePoints(v.Intermediate)
		return v
	case Arrow:
		v.ID = NewID()
		v.Intermediate = clonePoints(v.Intermediate)
		return v
	case Freehand:
		v.ID = NewID()
		v.Points = clonePoints(v.Points)
		return v
	case Text:
		v.ID = NewID()
		return v
	case Image:
		v.ID = NewID()
		return v
	case Group:
		v.ID = NewID()
		if v.Children != nil {
			children := make([]Shape, len(v.Children))
			for i, c := range v.Children {
				children[i] = WithNewID(c)
			}
			v.Children = children
		}
		return v
	}
	return s
}

// Find looks up id in s and, for groups, its descendants.
func Find(s Shape, id string) (Shape, bool) {
	return find(s, id, 0)
}

func find(s Shape, id string, depth int) (Shape, bool) {
	if s == nil || depth > MaxDepth {
		return nil, false
	}
	if s.ShapeID() == id {
		return s, true
	}
	if g, ok := s.(Group); ok {
		for _, c := range g.Children {
			if found, ok := find(c, id, depth+1); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Depth is 1 for a leaf shape and grows by one per level of group nesting.
func Depth(s Shape) int {
	g, ok := s.(Group)
	if !ok {
		return 1
	}
	deepest := 0
	for _, c := range g.Children {
		if d := Depth(c); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

func clonePoints(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
