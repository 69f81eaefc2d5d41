// Package codec maps shapes to and from automerge maps. Every field is stored
// under its own primitive key so concurrent edits to different fields of the
// same shape merge instead of overwriting each other.
package codec

import (
	"fmt"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/inkboard/pkg/shape"
)

const (
	tagRectangle = "rectangle"
	tagEllipse   = "ellipse"
	tagLine      = "line"
	tagArrow     = "arrow"
	tagFreehand  = "freehand"
	tagText      = "text"
	tagImage     = "image"
	tagGroup     = "group"
)

// Encode writes every field of s into m. m is expected to be empty; stale keys
// from a previous shape kind are not cleared.
func Encode(s shape.Shape, m *automerge.Map) error {
	return encode(s, m, 0)
}

// Check encodes s into a throwaway document and returns the error Encode would
// give. Nothing can be rolled back once Encode has started writing, so callers
// check first.
func Check(s shape.Shape) error {
	doc := automerge.New()
	if err := doc.RootMap().Set("shape", automerge.NewMap()); err != nil {
		return fmt.Errorf("failed to create scratch map: %w", err)
	}
	v, err := doc.RootMap().Get("shape")
	if err != nil {
		return fmt.Errorf("failed to read scratch map: %w", err)
	}
	return Encode(s, v.Map())
}

type writer struct {
	m   *automerge.Map
	err error
}

func (w *writer) set(key string, v interface{}) {
	if w.err != nil {
		return
	}
	if err := w.m.Set(key, v); err != nil {
		w.err = fmt.Errorf("failed to set %s: %w", key, err)
	}
}

func (w *writer) point(xKey, yKey string, p shape.Point) {
	w.set(xKey, p.X)
	w.set(yKey, p.Y)
}

func (w *writer) points(key string, pts []shape.Point) {
	if w.err != nil {
		return
	}
	if err := w.m.Set(key, automerge.NewList()); err != nil {
		w.err = fmt.Errorf("failed to create %s: %w", key, err)
		return
	}
	v, err := w.m.Get(key)
	if err != nil {
		w.err = fmt.Errorf("failed to read back %s: %w", key, err)
		return
	}
	flat := make([]interface{}, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	if len(flat) == 0 {
		return
	}
	if err := v.List().Append(flat...); err != nil {
		w.err = fmt.Errorf("failed to append %s: %w", key, err)
	}
}

func (w *writer) style(st shape.Style) {
	w.set(keyStrokeR, int64(st.StrokeColor.R))
	w.set(keyStrokeG, int64(st.StrokeColor.G))
	w.set(keyStrokeB, int64(st.StrokeColor.B))
	w.set(keyStrokeA, int64(st.StrokeColor.A))
	w.set(keyStrokeWidth, st.StrokeWidth)
	w.set(keyHasFill, st.FillColor != nil)
	if st.FillColor != nil {
		w.set(keyFillR, int64(st.FillColor.R))
		w.set(keyFillG, int64(st.FillColor.G))
		w.set(keyFillB, int64(st.FillColor.B))
		w.set(keyFillA, int64(st.FillColor.A))
	}
	w.set(keyFillPattern, int64(st.FillPattern))
	w.set(keySloppiness, int64(st.Sloppiness))
	w.set(keySeed, int64(st.Seed))
	w.set(keyOpacity, st.Opacity)
}

func encode(s shape.Shape, m *automerge.Map, depth int) error {
	if depth > shape.MaxDepth {
		return fmt.Errorf("group nesting exceeds %d levels", shape.MaxDepth)
	}
	w := &writer{m: m}
	switch v := s.(type) {
	case shape.Rectangle:
		w.set(keyType, tagRectangle)
		w.set(keyID, v.ID)
		w.point(keyX, keyY, v.Position)
		w.set(keyWidth, v.Width)
		w.set(keyHeight, v.Height)
		w.set(keyCornerRadius, v.CornerRadius)
		w.set(keyRotation, v.Rotation)
		w.style(v.Style)
	case shape.Ellipse:
		w.set(keyType, tagEllipse)
		w.set(keyID, v.ID)
		w.point(keyX, keyY, v.Center)
		w.set(keyWidth, v.RadiusX)
		w.set(keyHeight, v.RadiusY)
		w.set(keyRotation, v.Rotation)
		w.style(v.Style)
	case shape.Line:
		w.set(keyType, tagLine)
		w.set(keyID, v.ID)
		w.point(keyStartX, keyStartY, v.Start)
		w.point(keyEndX, keyEndY, v.End)
		w.points(keyPoints, v.Intermediate)
		w.set(keyPathStyle, int64(v.PathStyle))
		w.set(keyStrokeStyle, int64(v.StrokeStyle))
		w.style(v.Style)
	case shape.Arrow:
		w.set(keyType, tagArrow)
		w.set(keyID, v.ID)
		w.point(keyStartX, keyStartY, v.Start)
		w.point(keyEndX, keyEndY, v.End)
		w.points(keyPoints, v.Intermediate)
		w.set(keyPathStyle, int64(v.PathStyle))
		w.set(keyStrokeStyle, int64(v.StrokeStyle))
		w.set(keyHeadSize, v.HeadSize)
		w.style(v.Style)
	case shape.Freehand:
		w.set(keyType, tagFreehand)
		w.set(keyID, v.ID)
		w.points(keyPoints, v.Points)
		w.style(v.Style)
	case shape.Text:
		w.set(keyType, tagText)
		w.set(keyID, v.ID)
		w.point(keyX, keyY, v.Position)
		w.set(keyContent, v.Content)
		w.set(keyFontSize, v.FontSize)
		w.set(keyFontFamily, int64(v.FontFamily))
		w.set(keyFontWeight, int64(v.FontWeight))
		w.set(keyRotation, v.Rotation)
		w.style(v.Style)
	case shape.Image:
		w.set(keyType, tagImage)
		w.set(keyID, v.ID)
		w.point(keyX, keyY, v.Position)
		w.set(keyWidth, v.Width)
		w.set(keyHeight, v.Height)
		w.set(keySourceWidth, int64(v.SourceWidth))
		w.set(keySourceHeight, int64(v.SourceHeight))
		w.set(keyFormat, int64(v.Format))
		w.set(keyDataBase64, v.DataBase64)
		w.set(keyRotation, v.Rotation)
		w.style(v.Style)
	case shape.Group:
		w.set(keyType, tagGroup)
		w.set(keyID, v.ID)
		w.style(v.Style)
		if w.err != nil {
			return w.err
		}
		return encodeChildren(v.Children, m, depth)
	default:
		return fmt.Errorf("unsupported shape type %T", s)
	}
	return w.err
}

func encodeChildren(children []shape.Shape, m *automerge.Map, depth int) error {
	if err := m.Set(keyChildren, automerge.NewList()); err != nil {
		return fmt.Errorf("failed to create children: %w", err)
	}
	v, err := m.Get(keyChildren)
	if err != nil {
		return fmt.Errorf("failed to read back children: %w", err)
	}
	list := v.List()
	for i, c := range children {
		if err := list.Append(automerge.NewMap()); err != nil {
			return fmt.Errorf("failed to append child %d: %w", i, err)
		}
		cv, err := list.Get(i)
		if err != nil {
			return fmt.Errorf("failed to read back child %d: %w", i, err)
		}
		if err := encode(c, cv.Map(), depth+1); err != nil {
			return err
		}
	}
	return nil
}
