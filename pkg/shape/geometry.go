package shape

import (
	"math"
	"strings"
)

// Rect is an axis-aligned box with Min <= Max on both axes.
type Rect struct {
	Min, Max Point
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func (r Rect) Inflate(d float64) Rect {
	return Rect{Min: Pt(r.Min.X-d, r.Min.Y-d), Max: Pt(r.Max.X+d, r.Max.Y+d)}
}

func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Pt(math.Min(r.Min.X, o.Min.X), math.Min(r.Min.Y, o.Min.Y)),
		Max: Pt(math.Max(r.Max.X, o.Max.X), math.Max(r.Max.Y, o.Max.Y)),
	}
}

func boundsOf(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r = r.Union(Rect{Min: p, Max: p})
	}
	return r
}

func rectFrom(pos Point, w, h float64) Rect {
	return boundsOf([]Point{pos, Pt(pos.X+w, pos.Y+h)})
}

// Bounds is the unrotated bounding box of s. Text uses the measured size from
// cache when one is present and an estimate otherwise; cache may be nil.
func Bounds(s Shape, cache *LayoutCache) Rect {
	return bounds(s, cache, 0)
}

func bounds(s Shape, cache *LayoutCache, depth int) Rect {
	switch v := s.(type) {
	case Rectangle:
		return rectFrom(v.Position, v.Width, v.Height)
	case Ellipse:
		return Rect{Min: Pt(v.Center.X-v.RadiusX, v.Center.Y-v.RadiusY), Max: Pt(v.Center.X+v.RadiusX, v.Center.Y+v.RadiusY)}
	case Line:
		return boundsOf(v.Points())
	case Arrow:
		return boundsOf(v.Points()).Inflate(v.HeadSize / 2)
	case Freehand:
		return boundsOf(v.Points)
	case Text:
		w, h := estimateText(v)
		if cache != nil {
			if size, ok := cache.Get(v.ID); ok {
				w, h = size.Width, size.Height
			}
		}
		return rectFrom(v.Position, w, h)
	case Image:
		return rectFrom(v.Position, v.Width, v.Height)
	case Group:
		if len(v.Children) == 0 || depth >= MaxDepth {
			return Rect{}
		}
		r := bounds(v.Children[0], cache, depth+1)
		for _, c := range v.Children[1:] {
			r = r.Union(bounds(c, cache, depth+1))
		}
		return r
	}
	return Rect{}
}

func estimateText(t Text) (float64, float64) {
	lines := strings.Split(t.Content, "\n")
	longest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	return float64(longest) * t.FontSize * 0.6, float64(len(lines)) * t.FontSize * 1.2
}

// HitTest reports whether p lies on s within tolerance. Outlines count for
// unfilled closed shapes, interiors for filled ones.
func HitTest(s Shape, p Point, tolerance float64) bool {
	return hitTest(s, p, tolerance, 0)
}

func hitTest(s Shape, p Point, tolerance float64, depth int) bool {
	switch v := s.(type) {
	case Rectangle:
		r := rectFrom(v.Position, v.Width, v.Height)
		if v.Style.Filled() {
			return r.Inflate(tolerance).Contains(p)
		}
		return r.Inflate(tolerance).Contains(p) && !r.Inflate(-tolerance).Contains(p)
	case Ellipse:
		if v.RadiusX <= 0 || v.RadiusY <= 0 {
			return false
		}
		dx, dy := (p.X-v.Center.X)/v.RadiusX, (p.Y-v.Center.Y)/v.RadiusY
		d := math.Sqrt(dx*dx + dy*dy)
		slack := tolerance / math.Min(v.RadiusX, v.RadiusY)
		if v.Style.Filled() {
			return d <= 1+slack
		}
		return math.Abs(d-1) <= slack
	case Line:
		return polylineDist(p, v.Points()) <= tolerance+v.Style.StrokeWidth/2
	case Arrow:
		return polylineDist(p, v.Points()) <= tolerance+v.Style.StrokeWidth/2
	case Freehand:
		return polylineDist(p, v.Points) <= tolerance+v.Style.StrokeWidth/2
	case Text, Image:
		return Bounds(v, nil).Inflate(tolerance).Contains(p)
	case Group:
		if depth >= MaxDepth {
			return false
		}
		for _, c := range v.Children {
			if hitTest(c, p, tolerance, depth+1) {
				return true
			}
		}
	}
	return false
}

func segmentDist(p, a, b Point) float64 {
	sx, sy := b.X-a.X, b.Y-a.Y
	px, py := p.X-a.X, p.Y-a.Y
	lenSq := sx*sx + sy*sy
	if lenSq < 1e-12 {
		return math.Hypot(px, py)
	}
	t := math.Max(0, math.Min(1, (px*sx+py*sy)/lenSq))
	return math.Hypot(p.X-(a.X+t*sx), p.Y-(a.Y+t*sy))
}

func polylineDist(p Point, pts []Point) float64 {
	if len(pts) == 1 {
		return math.Hypot(p.X-pts[0].X, p.Y-pts[0].Y)
	}
	best := math.Inf(1)
	for i := 1; i < len(pts); i++ {
		best = math.Min(best, segmentDist(p, pts[i-1], pts[i]))
	}
	return best
}

// Translate moves s by (dx, dy). Identity and style, including the seed, are
// unchanged.
func Translate(s Shape, dx, dy float64) Shape {
	mv := func(p Point) Point { return Pt(p.X+dx, p.Y+dy) }
	mvAll := func(pts []Point) []Point {
		if pts == nil {
			return nil
		}
		out := make([]Point, len(pts))
		for i, p := range pts {
			out[i] = mv(p)
		}
		return out
	}
	switch v := s.(type) {
	case Rectangle:
		v.Position = mv(v.Position)
		return v
	case Ellipse:
		v.Center = mv(v.Center)
		return v
	case Line:
		v.Start, v.End, v.Intermediate = mv(v.Start), mv(v.End), mvAll(v.Intermediate)
		return v
	case Arrow:
		v.Start, v.End, v.Intermediate = mv(v.Start), mv(v.End), mvAll(v.Intermediate)
		return v
	case Freehand:
		v.Points = mvAll(v.Points)
		return v
	case Text:
		v.Position = mv(v.Position)
		return v
	case Image:
		v.Position = mv(v.Position)
		return v
	case Group:
		if v.Children != nil {
			kids := make([]Shape, len(v.Children))
			for i, c := range v.Children {
				kids[i] = Translate(c, dx, dy)
			}
			v.Children = kids
		}
		return v
	}
	return s
}
