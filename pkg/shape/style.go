package shape

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{}
)

type Sloppiness int

const (
	Architect Sloppiness = iota
	Artist
	Cartoonist
	Drunk
)

func (s Sloppiness) Valid() bool { return s >= Architect && s <= Drunk }

func (s Sloppiness) String() string {
	switch s {
	case Architect:
		return "architect"
	case Artist:
		return "artist"
	case Cartoonist:
		return "cartoonist"
	case Drunk:
		return "drunk"
	}
	return "unknown"
}

// Roughness is the jitter amplitude the renderer applies for this level.
func (s Sloppiness) Roughness() float64 {
	switch s {
	case Artist:
		return 1
	case Cartoonist:
		return 2
	case Drunk:
		return 3.5
	}
	return 0
}

type FillPattern int

const (
	FillSolid FillPattern = iota
	FillHachure
	FillZigZag
	FillCrossHatch
	FillDots
	FillDashed
	FillZigZagLine
)

func (f FillPattern) Valid() bool { return f >= FillSolid && f <= FillZigZagLine }

func (f FillPattern) String() string {
	switch f {
	case FillSolid:
		return "solid"
	case FillHachure:
		return "hachure"
	case FillZigZag:
		return "zigzag"
	case FillCrossHatch:
		return "cross-hatch"
	case FillDots:
		return "dots"
	case FillDashed:
		return "dashed"
	case FillZigZagLine:
		return "zigzag-line"
	}
	return "unknown"
}

type StrokeStyle int

const (
	StrokeSolid StrokeStyle = iota
	StrokeDashed
	StrokeDotted
)

func (s StrokeStyle) Valid() bool { return s >= StrokeSolid && s <= StrokeDotted }

func (s StrokeStyle) String() string {
	switch s {
	case StrokeSolid:
		return "solid"
	case StrokeDashed:
		return "dashed"
	case StrokeDotted:
		return "dotted"
	}
	return "unknown"
}

type PathStyle int

const (
	PathDirect PathStyle = iota
	PathFlowing
	PathAngular
)

func (p PathStyle) Valid() bool { return p >= PathDirect && p <= PathAngular }

func (p PathStyle) String() string {
	switch p {
	case PathDirect:
		return "direct"
	case PathFlowing:
		return "flowing"
	case PathAngular:
		return "angular"
	}
	return "unknown"
}

type FontFamily int

const (
	GelPen FontFamily = iota
	NotoSans
	GelPenSerif
)

func (f FontFamily) Valid() bool { return f >= GelPen && f <= GelPenSerif }

func (f FontFamily) String() string {
	switch f {
	case GelPen:
		return "gelpen"
	case NotoSans:
		return "noto-sans"
	case GelPenSerif:
		return "gelpen-serif"
	}
	return "unknown"
}

type FontWeight int

const (
	Light FontWeight = iota
	Regular
	Heavy
)

func (f FontWeight) Valid() bool { return f >= Light && f <= Heavy }

func (f FontWeight) String() string {
	switch f {
	case Light:
		return "light"
	case Regular:
		return "regular"
	case Heavy:
		return "heavy"
	}
	return "unknown"
}

type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG
	WebP
)

func (f ImageFormat) Valid() bool { return f >= PNG && f <= WebP }

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case WebP:
		return "webp"
	}
	return "unknown"
}

// Style is shared by every shape kind. Seed is assigned once at creation and
// must survive every transform so the hand-drawn jitter stays put.
type Style struct {
	StrokeColor Color
	StrokeWidth float64
	// FillColor is nil when the shape is unfilled.
	FillColor   *Color
	FillPattern FillPattern
	Sloppiness  Sloppiness
	Seed        uint32
	Opacity     float64
}

// DefaultStyle draws a seed from seeds. A nil source yields seed 0; use
// styleFor when an id is available.
func DefaultStyle(seeds *SeedSource) Style {
	var seed uint32
	if seeds != nil {
		seed = seeds.Next()
	}
	return Style{
		StrokeColor: Black,
		StrokeWidth: 2,
		FillPattern: FillSolid,
		Sloppiness:  Artist,
		Seed:        seed,
		Opacity:     1,
	}
}

func styleFor(seeds *SeedSource, id string) Style {
	st := DefaultStyle(seeds)
	if seeds == nil {
		st.Seed = SeedFromID(id)
	}
	return st
}

// WithFill returns a copy of the style filled with c.
func (s Style) WithFill(c Color) Style {
	s.FillColor = &c
	return s
}

// Filled reports whether the style has a fill color.
func (s Style) Filled() bool {
	return s.FillColor != nil
}
