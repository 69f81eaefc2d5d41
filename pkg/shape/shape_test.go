package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSourceIsDeterministicAndDistinct(t *testing.T) {
	a, b := NewSeedSource(0), NewSeedSource(0)
	seen := map[uint32]bool{}
	for i := 0; i < 100; i++ {
		x, y := a.Next(), b.Next()
		assert.Equal(t, x, y)
		assert.False(t, seen[x], "seed %d repeated", x)
		seen[x] = true
	}
}

func TestSeedFromIDIsStable(t *testing.T) {
	assert.Equal(t, SeedFromID("abc"), SeedFromID("abc"))
	assert.NotEqual(t, SeedFromID("abc"), SeedFromID("abd"))

	r := NewRectangle(nil, Pt(0, 0), 10, 10)
	assert.Equal(t, SeedFromID(r.ID), r.Style.Seed)
}

func TestTranslateKeepsSeedAndID(t *testing.T) {
	seeds := NewSeedSource(7)
	r := NewRectangle(seeds, Pt(10, 20), 30, 40)
	moved := Translate(r, 5, -5).(Rectangle)
	assert.Equal(t, r.ID, moved.ID)
	assert.Equal(t, r.Style.Seed, moved.Style.Seed)
	assert.Equal(t, Pt(15, 15), moved.Position)

	f := NewFreehand(seeds, []Point{{0, 0}, {1, 1}})
	g := NewGroup(seeds, r, f)
	movedGroup := Translate(g, 1, 1).(Group)
	assert.Equal(t, g.Style.Seed, movedGroup.Style.Seed)
	assert.Equal(t, Pt(11, 21), movedGroup.Children[0].(Rectangle).Position)
	assert.Equal(t, Pt(0, 0), f.Points[0], "original points must not be mutated")
}

func TestFindRecursesThroughGroups(t *testing.T) {
	seeds := NewSeedSource(0)
	leaf := NewEllipse(seeds, Pt(0, 0), 5, 5)
	inner := NewGroup(seeds, leaf)
	outer := NewGroup(seeds, NewLine(seeds, Pt(0, 0), Pt(1, 1)), inner)

	found, ok := Find(outer, leaf.ID)
	require.True(t, ok)
	assert.Equal(t, leaf, found)

	_, ok = Find(outer, "missing")
	assert.False(t, ok)
	assert.Equal(t, 3, Depth(outer))
}

func TestWithNewIDRegeneratesWholeTree(t *testing.T) {
	seeds := NewSeedSource(0)
	leaf := NewText(seeds, Pt(0, 0), "hi")
	g := NewGroup(seeds, leaf)
	dup := WithNewID(g).(Group)
	assert.NotEqual(t, g.ID, dup.ID)
	assert.NotEqual(t, leaf.ID, dup.Children[0].ShapeID())
	assert.Equal(t, leaf.Style.Seed, dup.Children[0].ShapeStyle().Seed)
}

func TestBoundsAndHitTest(t *testing.T) {
	seeds := NewSeedSource(0)
	r := NewRectangle(seeds, Pt(0, 0), 100, 50)
	assert.Equal(t, Rect{Min: Pt(0, 0), Max: Pt(100, 50)}, Bounds(r, nil))
	assert.True(t, HitTest(r, Pt(0, 25), 2))
	assert.False(t, HitTest(r, Pt(50, 25), 2), "unfilled interior is not a hit")
	r.Style = r.Style.WithFill(White)
	assert.True(t, HitTest(r, Pt(50, 25), 2))

	l := NewLine(seeds, Pt(0, 0), Pt(10, 0))
	assert.True(t, HitTest(l, Pt(5, 1), 1))
	assert.False(t, HitTest(l, Pt(5, 10), 1))

	g := NewGroup(seeds, r, NewRectangle(seeds, Pt(200, 200), 10, 10))
	assert.Equal(t, Rect{Min: Pt(0, 0), Max: Pt(210, 210)}, Bounds(g, nil))
	assert.True(t, HitTest(g, Pt(200, 205), 1))
}

func TestTextBoundsPreferLayoutCache(t *testing.T) {
	txt := NewText(nil, Pt(10, 10), "hello")
	cache := NewLayoutCache()
	estimated := Bounds(txt, cache)
	assert.InDelta(t, 5*DefaultFontSize*0.6, estimated.Width(), 1e-9)

	cache.Set(txt.ID, Size{Width: 42, Height: 7})
	assert.Equal(t, Rect{Min: Pt(10, 10), Max: Pt(52, 17)}, Bounds(txt, cache))

	cache.Invalidate(txt.ID)
	assert.Equal(t, estimated, Bounds(txt, cache))
	assert.Equal(t, 0, cache.Len())
}

func TestParseKind(t *testing.T) {
	for k := KindRectangle; k <= KindGroup; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("math")
	assert.False(t, ok)
}
