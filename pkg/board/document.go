// Package board is the replicated whiteboard document: a name, a map of shapes
// keyed by id and a z-order list, all held in one automerge document.
package board

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/inkboard/pkg/codec"
	"github.com/astromechza/inkboard/pkg/shape"
)

var (
	ErrShapeExists   = errors.New("shape already exists")
	ErrShapeNotFound = errors.New("shape not found")
	ErrInvalidShape  = errors.New("invalid shape")
)

// Document is safe for concurrent use; every operation runs under one lock so
// readers never observe a half-applied import.
type Document struct {
	mu  sync.Mutex
	doc *automerge.Doc

	// onLocal receives the before/after state of every local commit. It is
	// called after the lock is released.
	onLocal func(*edit)
}

// New creates an empty document with a fresh actor.
func New() (*Document, error) {
	raw, err := genesis()
	if err != nil {
		return nil, err
	}
	doc, err := automerge.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load genesis: %w", err)
	}
	if err := doc.SetActorID(newActorID()); err != nil {
		return nil, fmt.Errorf("failed to set actor: %w", err)
	}
	return &Document{doc: doc}, nil
}

// FromSnapshot creates a document holding the history in data.
func FromSnapshot(data []byte) (*Document, error) {
	d, err := New()
	if err != nil {
		return nil, err
	}
	if err := d.Import(data); err != nil {
		return nil, err
	}
	return d, nil
}

// Clone returns an independent copy under a new actor with no undo history.
func (d *Document) Clone() (*Document, error) {
	return FromSnapshot(d.ExportSnapshot())
}

func (d *Document) ActorID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.ActorID()
}

// PeerID is a numeric form of the actor id, used to tell peers apart in
// awareness messages.
func (d *Document) PeerID() uint64 {
	return peerIDFromActor(d.ActorID())
}

func (d *Document) shapesMap() (*automerge.Map, error) {
	v, err := d.doc.RootMap().Get(keyShapes)
	if err != nil {
		return nil, fmt.Errorf("failed to read shapes: %w", err)
	}
	if v.Kind() != automerge.KindMap {
		return nil, fmt.Errorf("shapes is a %v, not a map", v.Kind())
	}
	return v.Map(), nil
}

func (d *Document) zList() (*automerge.List, error) {
	v, err := d.doc.RootMap().Get(keyZOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to read z order: %w", err)
	}
	if v.Kind() != automerge.KindList {
		return nil, fmt.Errorf("z order is a %v, not a list", v.Kind())
	}
	return v.List(), nil
}

func (d *Document) nameText() (*automerge.Text, error) {
	v, err := d.doc.RootMap().Get(keyName)
	if err != nil {
		return nil, fmt.Errorf("failed to read name: %w", err)
	}
	if v.Kind() != automerge.KindText {
		return nil, fmt.Errorf("name is a %v, not text", v.Kind())
	}
	return v.Text(), nil
}

// zIDs reads the z-order list. Non-string entries read as "" so indexes still
// line up with the list.
func zIDs(z *automerge.List) ([]string, error) {
	values, err := z.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read z order values: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if v.Kind() == automerge.KindStr {
			ids = append(ids, v.Str())
		} else {
			ids = append(ids, "")
		}
	}
	return ids, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (d *Document) hasShape(id string) (bool, error) {
	shapes, err := d.shapesMap()
	if err != nil {
		return false, err
	}
	v, err := shapes.Get(id)
	if err != nil {
		return false, fmt.Errorf("failed to read shape %s: %w", id, err)
	}
	return v.Kind() != automerge.KindVoid, nil
}

func (d *Document) getShape(id string) (shape.Shape, error) {
	shapes, err := d.shapesMap()
	if err != nil {
		return nil, err
	}
	v, err := shapes.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read shape %s: %w", id, err)
	}
	if v.Kind() != automerge.KindMap {
		return nil, nil
	}
	s, ok := codec.Decode(v.Map())
	if !ok {
		return nil, nil
	}
	return s, nil
}

// writeShape replaces the entry at id with a fresh map holding s, or deletes
// the entry when s is nil.
func (d *Document) writeShape(id string, s shape.Shape) error {
	shapes, err := d.shapesMap()
	if err != nil {
		return err
	}
	if s == nil {
		if ok, err := d.hasShape(id); err != nil || !ok {
			return err
		}
		if err := shapes.Delete(id); err != nil {
			return fmt.Errorf("failed to delete shape %s: %w", id, err)
		}
		return nil
	}
	if err := shapes.Set(id, automerge.NewMap()); err != nil {
		return fmt.Errorf("failed to create shape %s: %w", id, err)
	}
	v, err := shapes.Get(id)
	if err != nil {
		return fmt.Errorf("failed to read back shape %s: %w", id, err)
	}
	if err := codec.Encode(s, v.Map()); err != nil {
		return fmt.Errorf("failed to encode shape %s: %w", id, err)
	}
	return nil
}

func (d *Document) commit(msg string) error {
	if _, err := d.doc.Commit(msg); err != nil {
		return fmt.Errorf("failed to commit %s: %w", msg, err)
	}
	return nil
}

// mutate runs fn under the lock for each id it touches, capturing the shape
// and z placement before and after, and commits with msg when fn reports a
// change. The captured edit is handed to the undo recorder.
func (d *Document) mutate(msg string, ids []string, fn func() (bool, error)) error {
	d.mu.Lock()
	e, err := d.mutateLocked(msg, ids, fn)
	onLocal := d.onLocal
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if e != nil && onLocal != nil {
		onLocal(e)
	}
	return nil
}

func (d *Document) mutateLocked(msg string, ids []string, fn func() (bool, error)) (*edit, error) {
	before, err := d.captureLocked(ids)
	if err != nil {
		return nil, err
	}
	changed, err := fn()
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	after, err := d.captureLocked(ids)
	if err != nil {
		return nil, err
	}
	if err := d.commit(msg); err != nil {
		return nil, err
	}
	return newEdit(before, after), nil
}

func (d *Document) captureLocked(ids []string) ([]entityState, error) {
	z, err := d.zList()
	if err != nil {
		return nil, err
	}
	order, err := zIDs(z)
	if err != nil {
		return nil, err
	}
	out := make([]entityState, 0, len(ids))
	for _, id := range ids {
		s, err := d.getShape(id)
		if err != nil {
			return nil, err
		}
		out = append(out, entityState{id: id, shape: s, z: placementOf(order, id)})
	}
	return out, nil
}

// checkShape rejects shapes that would fail half way through being written.
func checkShape(s shape.Shape) error {
	if s == nil || s.ShapeID() == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidShape)
	}
	if err := codec.Check(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return nil
}

// AddShape stores s and places it at the front of the z order.
func (d *Document) AddShape(s shape.Shape) error {
	if err := checkShape(s); err != nil {
		return err
	}
	id := s.ShapeID()
	return d.mutate("add_shape "+id, []string{id}, func() (bool, error) {
		exists, err := d.hasShape(id)
		if err != nil {
			return false, err
		}
		if exists {
			return false, fmt.Errorf("failed to add %s: %w", id, ErrShapeExists)
		}
		if err := d.writeShape(id, s); err != nil {
			return false, err
		}
		z, err := d.zList()
		if err != nil {
			return false, err
		}
		if err := z.Append(id); err != nil {
			return false, fmt.Errorf("failed to append %s to z order: %w", id, err)
		}
		return true, nil
	})
}

// RemoveShape deletes the shape and its first z-order entry. Removing an
// absent id is a no-op.
func (d *Document) RemoveShape(id string) error {
	return d.mutate("remove_shape "+id, []string{id}, func() (bool, error) {
		return d.removeLocked(id)
	})
}

func (d *Document) removeLocked(id string) (bool, error) {
	changed := false
	exists, err := d.hasShape(id)
	if err != nil {
		return false, err
	}
	if exists {
		if err := d.writeShape(id, nil); err != nil {
			return false, err
		}
		changed = true
	}
	z, err := d.zList()
	if err != nil {
		return false, err
	}
	ids, err := zIDs(z)
	if err != nil {
		return false, err
	}
	if i := indexOf(ids, id); i >= 0 {
		if err := z.Delete(i); err != nil {
			return false, fmt.Errorf("failed to remove %s from z order: %w", id, err)
		}
		changed = true
	}
	return changed, nil
}

// UpdateShape replaces every field of the shape with the same id. The old entry
// is discarded rather than patched.
func (d *Document) UpdateShape(s shape.Shape) error {
	if err := checkShape(s); err != nil {
		return err
	}
	id := s.ShapeID()
	return d.mutate("update_shape "+id, []string{id}, func() (bool, error) {
		exists, err := d.hasShape(id)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, fmt.Errorf("failed to update %s: %w", id, ErrShapeNotFound)
		}
		shapes, err := d.shapesMap()
		if err != nil {
			return false, err
		}
		if err := shapes.Delete(id); err != nil {
			return false, fmt.Errorf("failed to delete shape %s: %w", id, err)
		}
		if err := d.writeShape(id, s); err != nil {
			return false, err
		}
		return true, nil
	})
}

// GetShape returns the merged shape, or nil when it is absent or cannot be
// decoded.
func (d *Document) GetShape(id string) (shape.Shape, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getShape(id)
}

// FindShape looks for id at the top level and inside groups.
func (d *Document) FindShape(id string) (shape.Shape, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, err := d.getShape(id); err != nil || s != nil {
		return s, err
	}
	shapes, err := d.shapesMap()
	if err != nil {
		return nil, err
	}
	keys, err := shapes.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list shapes: %w", err)
	}
	sort.Strings(keys)
	for _, k := range keys {
		top, err := d.getShape(k)
		if err != nil {
			return nil, err
		}
		if top == nil {
			continue
		}
		if found, ok := shape.Find(top, id); ok {
			return found, nil
		}
	}
	return nil, nil
}

// ZOrder lists shape ids back to front.
func (d *Document) ZOrder() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	z, err := d.zList()
	if err != nil {
		return nil, err
	}
	return zIDs(z)
}

// ShapesOrdered returns decodable shapes back to front. Dangling, undecodable
// and repeated z-order entries are skipped.
func (d *Document) ShapesOrdered() ([]shape.Shape, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	z, err := d.zList()
	if err != nil {
		return nil, err
	}
	ids, err := zIDs(z)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	out := make([]shape.Shape, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		s, err := d.getShape(id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *Document) ShapeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	shapes, err := d.shapesMap()
	if err != nil {
		return 0
	}
	return shapes.Len()
}

// Clear removes every shape in one commit.
func (d *Document) Clear() error {
	ids, err := d.allIDs()
	if err != nil {
		return err
	}

	return d.mutate("clear", ids, func() (bool, error) {
		changed := false
		for _, id := range ids {
			c, err := d.removeLocked(id)
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
		return changed, nil
	})
}

// allIDs lists every id in the shapes map or the z order, sorted.
func (d *Document) allIDs() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	shapes, err := d.shapesMap()
	if err != nil {
		return nil, err
	}
	ids, err := shapes.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list shapes: %w", err)
	}
	z, err := d.zList()
	if err != nil {
		return nil, err
	}
	zs, err := zIDs(z)
	if err != nil {
		return nil, err
	}
	for _, id := range zs {
		if id != "" && indexOf(ids, id) < 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *Document) Name() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.nameText()
	if err != nil {
		return "", err
	}
	return t.Get()
}

func (d *Document) SetName(name string) error {
	d.mu.Lock()
	before, err := d.nameLocked()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if before == name {
		d.mu.Unlock()
		return nil
	}
	if err := d.setNameLocked(name); err != nil {
		d.mu.Unlock()
		return err
	}
	if err := d.commit("set_name"); err != nil {
		d.mu.Unlock()
		return err
	}
	onLocal := d.onLocal
	d.mu.Unlock()
	if onLocal != nil {
		onLocal(&edit{name: &nameEdit{before: before, after: name}})
	}
	return nil
}

func (d *Document) nameLocked() (string, error) {
	t, err := d.nameText()
	if err != nil {
		return "", err
	}
	s, err := t.Get()
	if err != nil {
		return "", fmt.Errorf("failed to read name: %w", err)
	}
	return s, nil
}

func (d *Document) setNameLocked(name string) error {
	t, err := d.nameText()
	if err != nil {
		return err
	}
	if err := t.Splice(0, t.Len(), name); err != nil {
		return fmt.Errorf("failed to set name: %w", err)
	}
	return nil
}

// ExportSnapshot returns the full history, loadable into any document.
func (d *Document) ExportSnapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Save()
}

// ExportUpdates returns the changes not covered by since. Hashes this
// document has never seen are ignored, so a peer that is ahead gets
// everything it might be missing.
func (d *Document) ExportUpdates(since Version) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	all, err := d.doc.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[c.Hash().String()] = true
	}
	var filtered []automerge.ChangeHash
	for _, h := range since {
		if known[h.String()] {
			filtered = append(filtered, h)
		}
	}
	changes, err := d.doc.Changes(filtered...)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes since %v: %w", Version(filtered).Strings(), err)
	}
	if len(changes) == 0 {
		return []byte{}, nil
	}
	return automerge.SaveChanges(changes), nil
}

// Import merges a snapshot or delta. The payload is checked against a fork
// first so a bad payload leaves the document untouched. Importing data that
// is already present changes nothing.
func (d *Document) Import(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fork, err := d.doc.Fork()
	if err != nil {
		return fmt.Errorf("failed to fork for import: %w", err)
	}
	if err := fork.LoadIncremental(data); err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	if err := d.doc.LoadIncremental(data); err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	return nil
}

// Version returns the current heads.
func (d *Document) Version() Version {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Version(d.doc.Heads())
}

// ChangeInfo describes one change in the document history.
type ChangeInfo struct {
	Hash         string
	Actor        string
	Seq          uint64
	Dependencies []string
	Message      string
	Time         time.Time
}

// History lists every change in causal order.
func (d *Document) History() ([]ChangeInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	changes, err := d.doc.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	out := make([]ChangeInfo, 0, len(changes))
	for _, c := range changes {
		out = append(out, ChangeInfo{
			Hash:         c.Hash().String(),
			Actor:        c.ActorID(),
			Seq:          c.ActorSeq(),
			Dependencies: Version(c.Dependencies()).Strings(),
			Message:      c.Message(),
			Time:         c.Timestamp(),
		})
	}
	return out, nil
}

// At returns a detached copy of the document as it was after the given change.
func (d *Document) At(hash string) (*Document, error) {
	h, err := automerge.NewChangeHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to parse change hash %q: %w", hash, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fork, err := d.doc.Fork(h)
	if err != nil {
		return nil, fmt.Errorf("failed to checkout %s: %w", hash, err)
	}
	return &Document{doc: fork}, nil
}
