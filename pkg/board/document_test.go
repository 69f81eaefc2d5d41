package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/inkboard/pkg/shape"
)

func newDoc(t *testing.T) *Document {
	t.Helper()
	d, err := New()
	require.NoError(t, err)
	return d
}

func zOrder(t *testing.T, d *Document) []string {
	t.Helper()
	z, err := d.ZOrder()
	require.NoError(t, err)
	return z
}

// exchange brings a and b to the same state using deltas in both directions.
func exchange(t *testing.T, a, b *Document) {
	t.Helper()
	va, vb := a.Version(), b.Version()
	toB, err := a.ExportUpdates(vb)
	require.NoError(t, err)
	toA, err := b.ExportUpdates(va)
	require.NoError(t, err)
	require.NoError(t, b.Import(toB))
	require.NoError(t, a.Import(toA))
}

func TestAddGetRoundTrip(t *testing.T) {
	d := newDoc(t)
	seeds := shape.NewSeedSource(0)
	r := shape.NewRectangle(seeds, shape.Pt(100, 200), 50, 30)
	require.NoError(t, d.AddShape(r))

	got, err := d.GetShape(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, []string{r.ID}, zOrder(t, d))
	assert.Equal(t, 1, d.ShapeCount())

	assert.ErrorIs(t, d.AddShape(r), ErrShapeExists)
}

func TestRejectedShapeLeavesNothingBehind(t *testing.T) {
	d := newDoc(t)
	seeds := shape.NewSeedSource(0)
	var deep shape.Shape = shape.NewRectangle(seeds, shape.Pt(0, 0), 1, 1)
	for i := 0; i <= shape.MaxDepth; i++ {
		deep = shape.NewGroup(seeds, deep)
	}
	version := d.Version()
	snapshot := d.ExportSnapshot()

	assert.ErrorIs(t, d.AddShape(deep), ErrInvalidShape)
	assert.ErrorIs(t, d.AddShape(shape.Rectangle{}), ErrInvalidShape)
	assert.Equal(t, 0, d.ShapeCount())
	assert.Empty(t, zOrder(t, d))
	assert.True(t, version.Equal(d.Version()))
	assert.Equal(t, snapshot, d.ExportSnapshot())

	r := shape.NewRectangle(seeds, shape.Pt(5, 5), 1, 1)
	require.NoError(t, d.AddShape(r))
	tooDeep := shape.NewGroup(seeds, deep)
	tooDeep.ID = r.ID
	assert.ErrorIs(t, d.UpdateShape(tooDeep), ErrInvalidShape)

	peer, err := FromSnapshot(d.ExportSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 1, peer.ShapeCount())
	assert.Equal(t, []string{r.ID}, zOrder(t, peer))
	got, err := peer.GetShape(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestSnapshotIntoFreshDocument(t *testing.T) {
	a := newDoc(t)
	r := shape.NewRectangle(shape.NewSeedSource(0), shape.Pt(100, 200), 50, 30)
	require.NoError(t, a.AddShape(r))

	b := newDoc(t)
	require.NoError(t, b.Import(a.ExportSnapshot()))
	got, err := b.GetShape(r.ID)
	require.NoError(t, err)
	rect, ok := got.(shape.Rectangle)
	require.True(t, ok)
	assert.Equal(t, shape.Pt(100, 200), rect.Position)
	assert.Equal(t, 50.0, rect.Width)
	assert.Equal(t, 30.0, rect.Height)
	assert.Equal(t, []string{r.ID}, zOrder(t, b))
	assert.True(t, a.Version().Equal(b.Version()))
}

func TestConcurrentAddsConverge(t *testing.T) {
	a, b := newDoc(t), newDoc(t)
	seeds := shape.NewSeedSource(0)
	ra := shape.NewRectangle(seeds, shape.Pt(0, 0), 1, 1)
	rb := shape.NewEllipse(seeds, shape.Pt(5, 5), 2, 2)
	require.NoError(t, a.AddShape(ra))
	require.NoError(t, b.AddShape(rb))

	exchange(t, a, b)

	assert.Equal(t, zOrder(t, a), zOrder(t, b))
	assert.ElementsMatch(t, []string{ra.ID, rb.ID}, zOrder(t, a))
	assert.Equal(t, 2, a.ShapeCount())
	assert.Equal(t, 2, b.ShapeCount())
	assert.True(t, a.Version().Equal(b.Version()))
}

func TestImportIsIdempotent(t *testing.T) {
	a, b := newDoc(t), newDoc(t)
	require.NoError(t, a.AddShape(shape.NewText(nil, shape.Pt(1, 1), "hi")))
	delta, err := a.ExportUpdates(b.Version())
	require.NoError(t, err)

	require.NoError(t, b.Import(delta))
	v := b.Version()
	z := zOrder(t, b)
	require.NoError(t, b.Import(delta))
	require.NoError(t, b.Import(a.ExportSnapshot()))
	assert.True(t, v.Equal(b.Version()))
	assert.Equal(t, z, zOrder(t, b))
}

func TestImportOfGarbageLeavesDocumentAlone(t *testing.T) {
	d := newDoc(t)
	require.NoError(t, d.AddShape(shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)))
	v := d.Version()
	_ = d.Import([]byte("definitely not automerge"))
	assert.True(t, v.Equal(d.Version()))
	assert.Equal(t, 1, d.ShapeCount())
	assert.NoError(t, d.Import(nil))
}

func TestExportUpdatesIgnoresUnknownHashes(t *testing.T) {
	a, b := newDoc(t), newDoc(t)
	require.NoError(t, b.AddShape(shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)))
	require.NoError(t, a.AddShape(shape.NewRectangle(nil, shape.Pt(1, 1), 1, 1)))

	// b's heads are unknown to a, so a sends everything it has
	delta, err := a.ExportUpdates(b.Version())
	require.NoError(t, err)
	require.NoError(t, b.Import(delta))
	assert.Equal(t, 2, b.ShapeCount())

	empty, err := a.ExportUpdates(a.Version())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRemoveIsIdempotent(t *testing.T) {
	a := newDoc(t)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	require.NoError(t, a.AddShape(r))
	b, err := a.Clone()
	require.NoError(t, err)

	require.NoError(t, a.RemoveShape(r.ID))
	require.NoError(t, b.RemoveShape(r.ID))
	exchange(t, a, b)

	for _, d := range []*Document{a, b} {
		got, err := d.GetShape(r.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, zOrder(t, d))
	}

	v := a.Version()
	require.NoError(t, a.RemoveShape(r.ID))
	assert.True(t, v.Equal(a.Version()), "removing an absent id must not commit")
}

func TestUpdateShape(t *testing.T) {
	d := newDoc(t)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 10, 10)
	require.NoError(t, d.AddShape(r))
	r.Width = 99
	r.Style = r.Style.WithFill(shape.White)
	require.NoError(t, d.UpdateShape(r))

	got, err := d.GetShape(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, []string{r.ID}, zOrder(t, d))

	missing := shape.NewEllipse(nil, shape.Pt(0, 0), 1, 1)
	assert.ErrorIs(t, d.UpdateShape(missing), ErrShapeNotFound)
}

func TestZOrderOperations(t *testing.T) {
	d := newDoc(t)
	var ids []string
	for i := 0; i < 3; i++ {
		r := shape.NewRectangle(nil, shape.Pt(float64(i), 0), 1, 1)
		require.NoError(t, d.AddShape(r))
		ids = append(ids, r.ID)
	}
	a, b, c := ids[0], ids[1], ids[2]

	moved, err := d.BringForward(a)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{b, a, c}, zOrder(t, d))

	moved, err = d.BringForward(c)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = d.SendBackward(b)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = d.SendBackward(c)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{b, c, a}, zOrder(t, d))

	require.NoError(t, d.BringToFront(b))
	assert.Equal(t, []string{c, a, b}, zOrder(t, d))
	require.NoError(t, d.SendToBack(b))
	assert.Equal(t, []string{b, c, a}, zOrder(t, d))

	v := d.Version()
	require.NoError(t, d.BringToFront("nope"))
	assert.True(t, v.Equal(d.Version()))
}

func TestSwapOfTwoShapes(t *testing.T) {
	d := newDoc(t)
	a := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	b := shape.NewRectangle(nil, shape.Pt(1, 0), 1, 1)
	require.NoError(t, d.AddShape(a))
	require.NoError(t, d.AddShape(b))

	moved, err := d.BringForward(a.ID)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{b.ID, a.ID}, zOrder(t, d))

	moved, err = d.BringForward(a.ID)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = d.SendBackward(a.ID)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{a.ID, b.ID}, zOrder(t, d))
}

func TestConcurrentSwapKeepsPairTogether(t *testing.T) {
	a := newDoc(t)
	var ids []string
	for i := 0; i < 3; i++ {
		r := shape.NewRectangle(nil, shape.Pt(float64(i), 0), 1, 1)
		require.NoError(t, a.AddShape(r))
		ids = append(ids, r.ID)
	}
	b, err := a.Clone()
	require.NoError(t, err)

	_, err = a.BringForward(ids[0])
	require.NoError(t, err)
	extra := shape.NewRectangle(nil, shape.Pt(9, 9), 1, 1)
	require.NoError(t, b.AddShape(extra))

	exchange(t, a, b)
	z := zOrder(t, a)
	assert.Equal(t, z, zOrder(t, b))
	assert.Equal(t, []string{ids[1], ids[0], ids[2], extra.ID}, z)
}

func TestShapesOrderedSkipsDanglingAndDuplicates(t *testing.T) {
	d := newDoc(t)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	e := shape.NewEllipse(nil, shape.Pt(0, 0), 1, 1)
	require.NoError(t, d.AddShape(r))
	require.NoError(t, d.AddShape(e))

	d.mu.Lock()
	z, err := d.zList()
	require.NoError(t, err)
	require.NoError(t, z.Append("dangling", r.ID))
	require.NoError(t, d.commit("corrupt"))
	d.mu.Unlock()

	shapes, err := d.ShapesOrdered()
	require.NoError(t, err)
	require.Len(t, shapes, 2)
	assert.Equal(t, r.ID, shapes[0].ShapeID())
	assert.Equal(t, e.ID, shapes[1].ShapeID())
}

func TestClearReportsBrokenSchema(t *testing.T) {
	d := newDoc(t)
	d.mu.Lock()
	require.NoError(t, d.doc.RootMap().Set(keyShapes, "not a map"))
	require.NoError(t, d.commit("corrupt"))
	d.mu.Unlock()

	assert.Error(t, d.Clear())
}

func TestNameAndClear(t *testing.T) {
	d := newDoc(t)
	require.NoError(t, d.SetName("Planning"))
	name, err := d.Name()
	require.NoError(t, err)
	assert.Equal(t, "Planning", name)

	require.NoError(t, d.AddShape(shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)))
	require.NoError(t, d.AddShape(shape.NewRectangle(nil, shape.Pt(1, 1), 1, 1)))
	require.NoError(t, d.Clear())
	assert.Equal(t, 0, d.ShapeCount())
	assert.Empty(t, zOrder(t, d))

	b := newDoc(t)
	require.NoError(t, b.Import(d.ExportSnapshot()))
	name, err = b.Name()
	require.NoError(t, err)
	assert.Equal(t, "Planning", name)
}

func TestFindShapeInsideGroup(t *testing.T) {
	d := newDoc(t)
	seeds := shape.NewSeedSource(0)
	leaf := shape.NewEllipse(seeds, shape.Pt(1, 1), 1, 1)
	g := shape.NewGroup(seeds, leaf)
	require.NoError(t, d.AddShape(g))

	found, err := d.FindShape(leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, leaf, found)

	top, err := d.GetShape(leaf.ID)
	require.NoError(t, err)
	assert.Nil(t, top)
}

func TestHistoryAndAt(t *testing.T) {
	d := newDoc(t)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	require.NoError(t, d.AddShape(r))
	require.NoError(t, d.RemoveShape(r.ID))

	history, err := d.History()
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "genesis", history[0].Message)
	assert.Equal(t, "add_shape "+r.ID, history[1].Message)
	assert.Equal(t, d.ActorID(), history[1].Actor)
	assert.Equal(t, []string{history[0].Hash}, history[1].Dependencies)

	old, err := d.At(history[1].Hash)
	require.NoError(t, err)
	assert.Equal(t, 1, old.ShapeCount())
	assert.Equal(t, 0, d.ShapeCount())
}

func TestVersionStringsRoundTrip(t *testing.T) {
	d := newDoc(t)
	require.NoError(t, d.AddShape(shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)))
	v := d.Version()
	parsed, err := ParseVersion(v.Strings())
	require.NoError(t, err)
	assert.True(t, v.Equal(parsed))

	_, err = ParseVersion([]string{"zz"})
	assert.Error(t, err)
}

func TestPeersHaveDistinctIDs(t *testing.T) {
	a, b := newDoc(t), newDoc(t)
	assert.NotEqual(t, a.ActorID(), b.ActorID())
	assert.NotEqual(t, a.PeerID(), b.PeerID())
	assert.Equal(t, a.PeerID(), a.PeerID())
}
