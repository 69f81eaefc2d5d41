package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/inkboard/pkg/board"
	"github.com/astromechza/inkboard/pkg/shape"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAutoSaver(t *testing.T) (*AutoSaver, *MemoryStore, *clock) {
	t.Helper()
	c := &clock{t: time.Unix(10_000, 0)}
	store := NewMemoryStore()
	return NewAutoSaver(store, WithNow(c.now), WithInterval(time.Minute)), store, c
}

func sampleDoc(t *testing.T) (*board.Document, shape.Rectangle) {
	t.Helper()
	d, err := board.New()
	require.NoError(t, err)
	require.NoError(t, d.SetName("plan"))
	r := shape.NewRectangle(nil, shape.Pt(100, 200), 50, 30)
	require.NoError(t, d.AddShape(r))
	return d, r
}

func TestAutoSaveGating(t *testing.T) {
	ctx := context.Background()
	a, _, c := newAutoSaver(t)
	doc, _ := sampleDoc(t)

	assert.False(t, a.ShouldSave(), "clean documents are never due")
	a.MarkDirty()
	assert.True(t, a.ShouldSave(), "dirty and never saved")

	saved, err := a.MaybeSave(ctx, doc)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.False(t, a.IsDirty())
	assert.False(t, a.ShouldSave())

	a.MarkDirty()
	assert.False(t, a.ShouldSave(), "interval has not elapsed")
	saved, err = a.MaybeSave(ctx, doc)
	require.NoError(t, err)
	assert.False(t, saved)

	c.advance(time.Minute)
	assert.True(t, a.ShouldSave())
}

func TestSaveWritesLastDocumentAndHidesIt(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutoSaver(t)
	doc, r := sampleDoc(t)
	a.SetDocumentID("board-1")
	require.NoError(t, a.Save(ctx, doc))

	ok, err := store.Exists(ctx, LastDocumentKey)
	require.NoError(t, err)
	assert.True(t, ok)
	ids, err := a.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"board-1"}, ids)

	fresh := NewAutoSaver(store)
	restored, err := fresh.LoadLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, "board-1", fresh.DocumentID())
	assert.False(t, fresh.IsDirty())
	got, err := restored.GetShape(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	name, err := restored.Name()
	require.NoError(t, err)
	assert.Equal(t, "plan", name)
}

func TestLoadClearsDirtyAndSetsCurrent(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newAutoSaver(t)
	doc, _ := sampleDoc(t)
	require.NoError(t, a.Save(ctx, doc))
	id := a.DocumentID()
	require.NotEmpty(t, id)

	a.SetDocumentID("other")
	a.MarkDirty()
	loaded, err := a.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ShapeCount())
	assert.Equal(t, id, a.DocumentID())
	assert.False(t, a.IsDirty())

	_, err = a.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := a.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, a.Delete(ctx, id))
	assert.Empty(t, a.DocumentID())
}

func TestCorruptRecordIsASerializationError(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newAutoSaver(t)
	require.NoError(t, store.Save(ctx, "bad", []byte("not msgpack at all")))
	_, err := a.Load(ctx, "bad")
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestIntervalAccessors(t *testing.T) {
	a := NewAutoSaver(NewMemoryStore())
	assert.Equal(t, DefaultAutoSaveInterval, a.Interval())
	a.SetInterval(time.Second)
	assert.Equal(t, time.Second, a.Interval())
	assert.True(t, a.LastSave().IsZero())
}

// hookStore runs during every Save, after the data is written.
type hookStore struct {
	*MemoryStore
	during func()
}

func (s *hookStore) Save(ctx context.Context, id string, data []byte) error {
	if err := s.MemoryStore.Save(ctx, id, data); err != nil {
		return err
	}
	s.during()
	return nil
}

func TestEditDuringSaveStaysDirty(t *testing.T) {
	ctx := context.Background()
	store := &hookStore{MemoryStore: NewMemoryStore()}
	a := NewAutoSaver(store)
	doc, _ := sampleDoc(t)

	marked := false
	store.during = func() {
		if !marked {
			marked = true
			a.MarkDirty()
		}
	}
	a.MarkDirty()
	require.NoError(t, a.Save(ctx, doc))
	assert.True(t, a.IsDirty(), "the edit made while saving is still unsaved")

	require.NoError(t, a.Save(ctx, doc))
	assert.False(t, a.IsDirty())
}
