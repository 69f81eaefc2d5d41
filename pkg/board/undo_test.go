package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/inkboard/pkg/shape"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestUndoRedoAdd(t *testing.T) {
	d := newDoc(t)
	u := NewUndoManager(d)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	require.NoError(t, d.AddShape(r))
	require.True(t, u.CanUndo())

	ok, err := u.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := d.GetShape(r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, zOrder(t, d))
	assert.True(t, u.CanRedo())

	ok, err = u.Redo()
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = d.GetShape(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, []string{r.ID}, zOrder(t, d))

	ok, err = u.Redo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoRemoveRestoresPlacement(t *testing.T) {
	d := newDoc(t)
	var ids []string
	for i := 0; i < 3; i++ {
		r := shape.NewRectangle(nil, shape.Pt(float64(i), 0), 1, 1)
		require.NoError(t, d.AddShape(r))
		ids = append(ids, r.ID)
	}
	u := NewUndoManager(d)
	require.NoError(t, d.RemoveShape(ids[1]))
	assert.Equal(t, []string{ids[0], ids[2]}, zOrder(t, d))

	_, err := u.Undo()
	require.NoError(t, err)
	assert.Equal(t, ids, zOrder(t, d))
}

func TestUndoUpdateAndZMove(t *testing.T) {
	d := newDoc(t)
	a := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	b := shape.NewRectangle(nil, shape.Pt(1, 1), 1, 1)
	require.NoError(t, d.AddShape(a))
	require.NoError(t, d.AddShape(b))
	u := NewUndoManager(d, WithMergeInterval(0))

	moved := a
	moved.Position = shape.Pt(50, 50)
	require.NoError(t, d.UpdateShape(moved))
	require.NoError(t, d.BringToFront(a.ID))
	assert.Equal(t, 2, u.UndoCount())

	_, err := u.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, zOrder(t, d))
	got, err := d.GetShape(a.ID)
	require.NoError(t, err)
	assert.Equal(t, moved, got)

	_, err = u.Undo()
	require.NoError(t, err)
	got, err = d.GetShape(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.False(t, u.CanUndo())
	assert.Equal(t, 2, u.RedoCount())
}

func TestUndoKeepsConcurrentRemoteEdit(t *testing.T) {
	local := newDoc(t)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 10, 10)
	require.NoError(t, local.AddShape(r))
	remote, err := local.Clone()
	require.NoError(t, err)

	u := NewUndoManager(local, WithMergeInterval(0))
	mine := r
	mine.Width = 20
	require.NoError(t, local.UpdateShape(mine))

	theirs := r
	theirs.Height = 99
	require.NoError(t, remote.UpdateShape(theirs))
	exchange(t, local, remote)

	merged, err := local.GetShape(r.ID)
	require.NoError(t, err)
	_, err = u.Undo()
	require.NoError(t, err)

	after, err := local.GetShape(r.ID)
	require.NoError(t, err)
	if merged.(shape.Rectangle).Height == 99 {
		// the remote update won the merge, so there is nothing of ours to retract
		assert.Equal(t, merged, after)
	} else {
		assert.Equal(t, r, after)
	}
}

func TestUndoKeepsConcurrentRemoteReorder(t *testing.T) {
	local := newDoc(t)
	x := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	y := shape.NewRectangle(nil, shape.Pt(1, 1), 1, 1)
	z := shape.NewRectangle(nil, shape.Pt(2, 2), 1, 1)
	require.NoError(t, local.AddShape(x))
	require.NoError(t, local.AddShape(y))
	require.NoError(t, local.AddShape(z))
	remote, err := local.Clone()
	require.NoError(t, err)

	u := NewUndoManager(local, WithMergeInterval(0))
	moved, err := local.BringForward(x.ID)
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, []string{y.ID, x.ID, z.ID}, zOrder(t, local))
	exchange(t, local, remote)

	require.NoError(t, remote.BringToFront(x.ID))
	exchange(t, local, remote)
	require.Equal(t, []string{y.ID, z.ID, x.ID}, zOrder(t, local))

	ok, err := u.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{y.ID, z.ID, x.ID}, zOrder(t, local), "the remote move to the front stays")
}

func TestUndoDoesNotResurrectRemotelyDeletedShape(t *testing.T) {
	local := newDoc(t)
	u := NewUndoManager(local)
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 10, 10)
	require.NoError(t, local.AddShape(r))

	remote, err := local.Clone()
	require.NoError(t, err)
	require.NoError(t, remote.RemoveShape(r.ID))
	exchange(t, local, remote)

	_, err = u.Undo()
	require.NoError(t, err)
	got, err := local.GetShape(r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, zOrder(t, local))
}

func TestImportsAreNotRecorded(t *testing.T) {
	local := newDoc(t)
	u := NewUndoManager(local)
	remote := newDoc(t)
	require.NoError(t, remote.AddShape(shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)))
	require.NoError(t, local.Import(remote.ExportSnapshot()))
	assert.False(t, u.CanUndo())
}

func TestCoalescingByInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	d := newDoc(t)
	u := NewUndoManager(d, WithClock(clock.now))

	txt := shape.NewText(nil, shape.Pt(0, 0), "h")
	require.NoError(t, d.AddShape(txt))
	for _, s := range []string{"he", "hel", "hell"} {
		clock.advance(100 * time.Millisecond)
		txt.Content = s
		require.NoError(t, d.UpdateShape(txt))
	}
	assert.Equal(t, 1, u.UndoCount())

	clock.advance(time.Second)
	txt.Content = "hello"
	require.NoError(t, d.UpdateShape(txt))
	assert.Equal(t, 2, u.UndoCount())

	u.RecordCheckpoint()
	txt.Content = "hello!"
	require.NoError(t, d.UpdateShape(txt))
	assert.Equal(t, 3, u.UndoCount())

	_, err := u.Undo()
	require.NoError(t, err)
	_, err = u.Undo()
	require.NoError(t, err)
	got, err := d.GetShape(txt.ID)
	require.NoError(t, err)
	assert.Equal(t, "hell", got.(shape.Text).Content)

	_, err = u.Undo()
	require.NoError(t, err)
	got, err = d.GetShape(txt.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExplicitGroupOverridesInterval(t *testing.T) {
	d := newDoc(t)
	u := NewUndoManager(d, WithMergeInterval(0))
	r := shape.NewRectangle(nil, shape.Pt(0, 0), 1, 1)
	e := shape.NewEllipse(nil, shape.Pt(0, 0), 1, 1)

	u.StartUndoGroup()
	require.NoError(t, d.AddShape(r))
	u.StartUndoGroup()
	require.NoError(t, d.AddShape(e))
	u.EndUndoGroup()
	require.NoError(t, d.SendToBack(e.ID))
	u.EndUndoGroup()
	assert.Equal(t, 1, u.UndoCount())

	_, err := u.Undo()
	require.NoError(t, err)
	assert.Equal(t, 0, d.ShapeCount())
	assert.Empty(t, zOrder(t, d))

	_, err = u.Redo()
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID, r.ID}, zOrder(t, d))
}

func TestNewEditClearsRedoAndStackIsBounded(t *testing.T) {
	d := newDoc(t)
	u := NewUndoManager(d, WithMergeInterval(0), WithMaxUndoSteps(2))
	for i := 0; i < 3; i++ {
		require.NoError(t, d.AddShape(shape.NewRectangle(nil, shape.Pt(float64(i), 0), 1, 1)))
	}
	assert.Equal(t, 2, u.UndoCount())

	_, err := u.Undo()
	require.NoError(t, err)
	assert.Equal(t, 1, u.RedoCount())
	require.NoError(t, d.SetName("fresh"))
	assert.Equal(t, 0, u.RedoCount())

	_, err = u.Undo()
	require.NoError(t, err)
	name, err := d.Name()
	require.NoError(t, err)
	assert.Equal(t, "", name)

	u.ClearUndoHistory()
	assert.False(t, u.CanUndo())
	assert.False(t, u.CanRedo())
	assert.Equal(t, 2, d.ShapeCount())
}
