package shape

type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Rectangle is positioned by its top-left corner.
type Rectangle struct {
	ID           string
	Position     Point
	Width        float64
	Height       float64
	CornerRadius float64
	// Rotation is in radians around the center.
	Rotation float64
	Style    Style
}

func NewRectangle(seeds *SeedSource, pos Point, width, height float64) Rectangle {
	id := NewID()
	return Rectangle{ID: id, Position: pos, Width: width, Height: height, Style: styleFor(seeds, id)}
}

type Ellipse struct {
	ID       string
	Center   Point
	RadiusX  float64
	RadiusY  float64
	Rotation float64
	Style    Style
}

func NewEllipse(seeds *SeedSource, center Point, rx, ry float64) Ellipse {
	id := NewID()
	return Ellipse{ID: id, Center: center, RadiusX: rx, RadiusY: ry, Style: styleFor(seeds, id)}
}

type Line struct {
	ID           string
	Start        Point
	End          Point
	Intermediate []Point
	PathStyle    PathStyle
	StrokeStyle  StrokeStyle
	Style        Style
}

func NewLine(seeds *SeedSource, start, end Point) Line {
	id := NewID()
	return Line{ID: id, Start: start, End: end, Style: styleFor(seeds, id)}
}

// Points returns start, intermediate points and end in drawing order.
func (l Line) Points() []Point {
	return polyline(l.Start, l.Intermediate, l.End)
}

// DefaultHeadSize is the arrowhead size new arrows get.
const DefaultHeadSize = 15.0

type Arrow struct {
	ID           string
	Start        Point
	End          Point
	Intermediate []Point
	PathStyle    PathStyle
	StrokeStyle  StrokeStyle
	HeadSize     float64
	Style        Style
}

func NewArrow(seeds *SeedSource, start, end Point) Arrow {
	id := NewID()
	return Arrow{ID: id, Start: start, End: end, HeadSize: DefaultHeadSize, Style: styleFor(seeds, id)}
}

func (a Arrow) Points() []Point {
	return polyline(a.Start, a.Intermediate, a.End)
}

type Freehand struct {
	ID     string
	Points []Point
	Style  Style
}

func NewFreehand(seeds *SeedSource, points []Point) Freehand {
	id := NewID()
	return Freehand{ID: id, Points: clonePoints(points), Style: styleFor(seeds, id)}
}

// DefaultFontSize is used for new text and when a stored size is missing.
const DefaultFontSize = 20.0

type Text struct {
	ID         string
	Position   Point
	Content    string
	FontSize   float64
	FontFamily FontFamily
	FontWeight FontWeight
	Rotation   float64
	Style      Style
}

func NewText(seeds *SeedSource, pos Point, content string) Text {
	id := NewID()
	return Text{
		ID:         id,
		Position:   pos,
		Content:    content,
		FontSize:   DefaultFontSize,
		FontFamily: GelPen,
		FontWeight: Regular,
		Style:      styleFor(seeds, id),
	}
}

type Image struct {
	ID           string
	Position     Point
	Width        float64
	Height       float64
	SourceWidth  uint32
	SourceHeight uint32
	Format       ImageFormat
	// DataBase64 is the encoded image payload, kept as text so it is stored as
	// a single string field.
	DataBase64 string
	Rotation   float64
	Style      Style
}

func NewImage(seeds *SeedSource, pos Point, width, height float64, srcW, srcH uint32, format ImageFormat, data string) Image {
	id := NewID()
	return Image{
		ID:           id,
		Position:     pos,
		Width:        width,
		Height:       height,
		SourceWidth:  srcW,
		SourceHeight: srcH,
		Format:       format,
		DataBase64:   data,
		Style:        styleFor(seeds, id),
	}
}

// Group owns full child shapes, which may themselves be groups.
type Group struct {
	ID       string
	Children []Shape
	Style    Style
}

func NewGroup(seeds *SeedSource, children ...Shape) Group {
	id := NewID()
	var kids []Shape
	if len(children) > 0 {
		kids = append(kids, children...)
	}
	return Group{ID: id, Children: kids, Style: styleFor(seeds, id)}
}

func (r Rectangle) ShapeID() string { return r.ID }
func (e Ellipse) ShapeID() string   { return e.ID }
func (l Line) ShapeID() string      { return l.ID }
func (a Arrow) ShapeID() string     { return a.ID }
func (f Freehand) ShapeID() string  { return f.ID }
func (t Text) ShapeID() string      { return t.ID }
func (i Image) ShapeID() string     { return i.ID }
func (g Group) ShapeID() string     { return g.ID }

func (Rectangle) Kind() Kind { return KindRectangle }
func (Ellipse) Kind() Kind   { return KindEllipse }
func (Line) Kind() Kind      { return KindLine }
func (Arrow) Kind() Kind     { return KindArrow }
func (Freehand) Kind() Kind  { return KindFreehand }
func (Text) Kind() Kind      { return KindText }
func (Image) Kind() Kind     { return KindImage }
func (Group) Kind() Kind     { return KindGroup }

func (r Rectangle) ShapeStyle() Style { return r.Style }
func (e Ellipse) ShapeStyle() Style   { return e.Style }
func (l Line) ShapeStyle() Style      { return l.Style }
func (a Arrow) ShapeStyle() Style     { return a.Style }
func (f Freehand) ShapeStyle() Style  { return f.Style }
func (t Text) ShapeStyle() Style      { return t.Style }
func (i Image) ShapeStyle() Style     { return i.Style }
func (g Group) ShapeStyle() Style     { return g.Style }

func (Rectangle) isShape() {}
func (Ellipse) isShape()   {}
func (Line) isShape()      {}
func (Arrow) isShape()     {}
func (Freehand) isShape()  {}
func (Text) isShape()      {}
func (Image) isShape()     {}
func (Group) isShape()     {}

func polyline(start Point, mid []Point, end Point) []Point {
	pts := make([]Point, 0, len(mid)+2)
	pts = append(pts, start)
	pts = append(pts, mid...)
	return append(pts, end)
}
