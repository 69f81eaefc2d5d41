package codec

import (
	"math"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/inkboard/pkg/shape"
)

// Decode reads a shape back from m. It reports false for anything that is not
// a well-formed shape: a missing or mistyped field, an unknown type tag, an
// out-of-range enum, an odd-length point list or nesting deeper than
// shape.MaxDepth. Decode never panics on peer-supplied data.
func Decode(m *automerge.Map) (shape.Shape, bool) {
	if m == nil {
		return nil, false
	}
	return decode(m, 0)
}

// reader collects the first failure so field reads can be written in a row.
type reader struct {
	m  *automerge.Map
	ok bool
}

func (r *reader) value(key string) *automerge.Value {
	if !r.ok {
		return nil
	}
	v, err := r.m.Get(key)
	if err != nil || v == nil || v.Kind() == automerge.KindVoid {
		return nil
	}
	return v
}

func (r *reader) str(key string) string {
	v := r.value(key)
	if v == nil || v.Kind() != automerge.KindStr {
		r.ok = false
		return ""
	}
	return v.Str()
}

func numeric(v *automerge.Value) (float64, bool) {
	switch v.Kind() {
	case automerge.KindFloat64:
		return v.Float64(), true
	case automerge.KindInt64:
		return float64(v.Int64()), true
	case automerge.KindUint64:
		return float64(v.Uint64()), true
	}
	return 0, false
}

func (r *reader) float(key string) float64 {
	v := r.value(key)
	if v == nil {
		r.ok = false
		return 0
	}
	f, ok := numeric(v)
	if !ok {
		r.ok = false
	}
	return f
}

// floatOr returns def when key is absent and fails only when it is present
// with the wrong type.
func (r *reader) floatOr(key string, def float64) float64 {
	if !r.ok {
		return def
	}
	v := r.value(key)
	if v == nil {
		return def
	}
	f, ok := numeric(v)
	if !ok {
		r.ok = false
		return def
	}
	return f
}

func (r *reader) int(key string, max int64) int64 {
	v := r.value(key)
	if v == nil {
		r.ok = false
		return 0
	}
	var n int64
	switch v.Kind() {
	case automerge.KindInt64:
		n = v.Int64()
	case automerge.KindUint64:
		if v.Uint64() > math.MaxInt64 {
			r.ok = false
			return 0
		}
		n = int64(v.Uint64())
	case automerge.KindFloat64:
		f := v.Float64()
		if f != math.Trunc(f) {
			r.ok = false
			return 0
		}
		n = int64(f)
	default:
		r.ok = false
		return 0
	}
	if n < 0 || n > max {
		r.ok = false
		return 0
	}
	return n
}

func (r *reader) intOr(key string, max int64, def int64) int64 {
	if !r.ok {
		return def
	}
	if r.value(key) == nil {
		return def
	}
	return r.int(key, max)
}

func (r *reader) boolean(key string) bool {
	v := r.value(key)
	if v == nil || v.Kind() != automerge.KindBool {
		r.ok = false
		return false
	}
	return v.Bool()
}

func (r *reader) point(xKey, yKey string) shape.Point {
	return shape.Pt(r.float(xKey), r.float(yKey))
}

// points reads a flat x0,y0,x1,y1 list. A missing list is an empty one.
func (r *reader) points(key string) []shape.Point {
	v := r.value(key)
	if v == nil || !r.ok {
		return nil
	}
	if v.Kind() != automerge.KindList {
		r.ok = false
		return nil
	}
	values, err := v.List().Values()
	if err != nil || len(values)%2 != 0 {
		r.ok = false
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	out := make([]shape.Point, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		x, okX := numeric(values[i])
		y, okY := numeric(values[i+1])
		if !okX || !okY {
			r.ok = false
			return nil
		}
		out = append(out, shape.Pt(x, y))
	}
	return out
}

func (r *reader) color(rk, gk, bk, ak string) shape.Color {
	return shape.RGBA(
		uint8(r.int(rk, math.MaxUint8)),
		uint8(r.int(gk, math.MaxUint8)),
		uint8(r.int(bk, math.MaxUint8)),
		uint8(r.int(ak, math.MaxUint8)),
	)
}

func (r *reader) style() shape.Style {
	st := shape.Style{
		StrokeColor: r.color(keyStrokeR, keyStrokeG, keyStrokeB, keyStrokeA),
		StrokeWidth: r.float(keyStrokeWidth),
	}
	if r.boolean(keyHasFill) {
		fill := r.color(keyFillR, keyFillG, keyFillB, keyFillA)
		st.FillColor = &fill
	}
	st.FillPattern = shape.FillPattern(r.intOr(keyFillPattern, math.MaxInt32, int64(shape.FillSolid)))
	st.Sloppiness = shape.Sloppiness(r.int(keySloppiness, math.MaxInt32))
	st.Seed = uint32(r.int(keySeed, math.MaxUint32))
	st.Opacity = r.floatOr(keyOpacity, 1)
	if !st.FillPattern.Valid() || !st.Sloppiness.Valid() {
		r.ok = false
	}
	return st
}

func decode(m *automerge.Map, depth int) (shape.Shape, bool) {
	if depth > shape.MaxDepth {
		return nil, false
	}
	r := &reader{m: m, ok: true}
	tag := r.str(keyType)
	id := r.str(keyID)
	if !r.ok || id == "" {
		return nil, false
	}

	var out shape.Shape
	switch tag {
	case tagRectangle:
		out = shape.Rectangle{
			ID:           id,
			Position:     r.point(keyX, keyY),
			Width:        r.float(keyWidth),
			Height:       r.float(keyHeight),
			CornerRadius: r.floatOr(keyCornerRadius, 0),
			Rotation:     r.floatOr(keyRotation, 0),
			Style:        r.style(),
		}
	case tagEllipse:
		out = shape.Ellipse{
			ID:       id,
			Center:   r.point(keyX, keyY),
			RadiusX:  r.float(keyWidth),
			RadiusY:  r.float(keyHeight),
			Rotation: r.floatOr(keyRotation, 0),
			Style:    r.style(),
		}
	case tagLine:
		l := shape.Line{
			ID:           id,
			Start:        r.point(keyStartX, keyStartY),
			End:          r.point(keyEndX, keyEndY),
			Intermediate: r.points(keyPoints),
			PathStyle:    shape.PathStyle(r.intOr(keyPathStyle, math.MaxInt32, 0)),
			StrokeStyle:  shape.StrokeStyle(r.intOr(keyStrokeStyle, math.MaxInt32, 0)),
			Style:        r.style(),
		}
		if !l.PathStyle.Valid() || !l.StrokeStyle.Valid() {
			return nil, false
		}
		out = l
	case tagArrow:
		a := shape.Arrow{
			ID:           id,
			Start:        r.point(keyStartX, keyStartY),
			End:          r.point(keyEndX, keyEndY),
			Intermediate: r.points(keyPoints),
			PathStyle:    shape.PathStyle(r.intOr(keyPathStyle, math.MaxInt32, 0)),
			StrokeStyle:  shape.StrokeStyle(r.intOr(keyStrokeStyle, math.MaxInt32, 0)),
			HeadSize:     r.floatOr(keyHeadSize, shape.DefaultHeadSize),
			Style:        r.style(),
		}
		if !a.PathStyle.Valid() || !a.StrokeStyle.Valid() {
			return nil, false
		}
		out = a
	case tagFreehand:
		out = shape.Freehand{
			ID:     id,
			Points: r.points(keyPoints),
			Style:  r.style(),
		}
	case tagText:
		t := shape.Text{
			ID:         id,
			Position:   r.point(keyX, keyY),
			Content:    r.str(keyContent),
			FontSize:   r.floatOr(keyFontSize, shape.DefaultFontSize),
			FontFamily: shape.FontFamily(r.int(keyFontFamily, math.MaxInt32)),
			FontWeight: shape.FontWeight(r.int(keyFontWeight, math.MaxInt32)),
			Rotation:   r.floatOr(keyRotation, 0),
			Style:      r.style(),
		}
		if !t.FontFamily.Valid() || !t.FontWeight.Valid() {
			return nil, false
		}
		out = t
	case tagImage:
		img := shape.Image{
			ID:           id,
			Position:     r.point(keyX, keyY),
			Width:        r.float(keyWidth),
			Height:       r.float(keyHeight),
			SourceWidth:  uint32(r.int(keySourceWidth, math.MaxUint32)),
			SourceHeight: uint32(r.int(keySourceHeight, math.MaxUint32)),
			Format:       shape.ImageFormat(r.int(keyFormat, math.MaxInt32)),
			DataBase64:   r.str(keyDataBase64),
			Rotation:     r.floatOr(keyRotation, 0),
			Style:        r.style(),
		}
		if !img.Format.Valid() {
			return nil, false
		}
		out = img
	case tagGroup:
		g := shape.Group{ID: id, Style: r.style()}
		if !r.ok {
			return nil, false
		}
		children, ok := decodeChildren(r.value(keyChildren), depth)
		if !ok {
			return nil, false
		}
		g.Children = children
		out = g
	default:
		return nil, false
	}
	if !r.ok {
		return nil, false
	}
	return out, true
}

func decodeChildren(v *automerge.Value, depth int) ([]shape.Shape, bool) {
	if v == nil {
		return nil, true
	}
	if v.Kind() != automerge.KindList {
		return nil, false
	}
	values, err := v.List().Values()
	if err != nil {
		return nil, false
	}
	if len(values) == 0 {
		return nil, true
	}
	children := make([]shape.Shape, 0, len(values))
	for _, cv := range values {
		if cv.Kind() != automerge.KindMap {
			return nil, false
		}
		c, ok := decode(cv.Map(), depth+1)
		if !ok {
			return nil, false
		}
		children = append(children, c)
	}
	return children, true
}
