package board

import (
	"fmt"
	"reflect"

	"github.com/astromechza/inkboard/pkg/shape"
)

type entityState struct {
	id    string
	shape shape.Shape
	z     placement
}

type shapeEdit struct {
	id            string
	before, after shape.Shape
	zBefore       placement
	zAfter        placement
}

type nameEdit struct {
	before, after string
}

// edit is one undoable unit: the state each touched entity had before and
// after the local operations it covers.
type edit struct {
	shapes []*shapeEdit
	name   *nameEdit
}

func newEdit(before, after []entityState) *edit {
	e := &edit{}
	for i := range before {
		b, a := before[i], after[i]
		if sameShape(b.shape, a.shape) && b.z == a.z {
			continue
		}
		e.shapes = append(e.shapes, &shapeEdit{
			id:      b.id,
			before:  b.shape,
			after:   a.shape,
			zBefore: b.z,
			zAfter:  a.z,
		})
	}
	if len(e.shapes) == 0 {
		return nil
	}
	return e
}

// merge folds a later edit into e, keeping the earliest before state and the
// latest after state of each entity.
func (e *edit) merge(later *edit) {
	for _, l := range later.shapes {
		found := false
		for _, s := range e.shapes {
			if s.id == l.id {
				s.after, s.zAfter = l.after, l.zAfter
				found = true
				break
			}
		}
		if !found {
			cp := *l
			e.shapes = append(e.shapes, &cp)
		}
	}
	if later.name != nil {
		if e.name == nil {
			n := *later.name
			e.name = &n
		} else {
			e.name.after = later.name.after
		}
	}
}

func sameShape(a, b shape.Shape) bool {
	return reflect.DeepEqual(a, b)
}

// revert moves every entity of e from its after state back to its before state
// (or forward again when redo is set), skipping any entity whose current value
// is no longer what e left there. It reports whether anything was written.
func (d *Document) revert(e *edit, redo bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	changed := false
	order := make([]*shapeEdit, len(e.shapes))
	copy(order, e.shapes)
	if !redo {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	for _, se := range order {
		from, to := se.after, se.before
		zFrom, zTo := se.zAfter, se.zBefore
		if redo {
			from, to = to, from
			zFrom, zTo = zTo, zFrom
		}

		current, err := d.getShape(se.id)
		if err != nil {
			return false, err
		}
		shapeChanged := !sameShape(from, to)
		shapeApplied := false
		if shapeChanged && sameShape(current, from) {
			if err := d.writeShape(se.id, to); err != nil {
				return false, err
			}
			shapeApplied = true
			changed = true
		}

		if zFrom == zTo || (shapeChanged && !shapeApplied) {
			continue
		}
		z, err := d.zList()
		if err != nil {
			return false, err
		}
		ids, err := zIDs(z)
		if err != nil {
			return false, err
		}
		if cur := placementOf(ids, se.id); cur.in != zFrom.in || cur.pred != zFrom.pred {
			continue
		}
		if err := place(z, se.id, zTo); err != nil {
			return false, err
		}
		changed = true
	}

	if e.name != nil {
		from, to := e.name.after, e.name.before
		if redo {
			from, to = to, from
		}
		current, err := d.nameLocked()
		if err != nil {
			return false, err
		}
		if current == from && from != to {
			if err := d.setNameLocked(to); err != nil {
				return false, err
			}
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	msg := "undo"
	if redo {
		msg = "redo"
	}
	if err := d.commit(msg); err != nil {
		return false, fmt.Errorf("failed to apply %s: %w", msg, err)
	}
	return true, nil
}
