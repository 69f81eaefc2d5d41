package board

import (
	"fmt"

	"github.com/automerge/automerge-go"
)

// placement is where an id sits in the z order. pred is the id directly
// behind it, empty when it is at the back.
type placement struct {
	in    bool
	pred  string
	index int
}

func placementOf(ids []string, id string) placement {
	i := indexOf(ids, id)
	if i < 0 {
		return placement{}
	}
	p := placement{in: true, index: i}
	if i > 0 {
		p.pred = ids[i-1]
	}
	return p
}

// place moves id to p, removing its first occurrence first. When the recorded
// predecessor is gone the old index is used, clamped to the list.
func place(z *automerge.List, id string, p placement) error {
	ids, err := zIDs(z)
	if err != nil {
		return err
	}
	if i := indexOf(ids, id); i >= 0 {
		if err := z.Delete(i); err != nil {
			return fmt.Errorf("failed to remove %s from z order: %w", id, err)
		}
		ids = append(ids[:i:i], ids[i+1:]...)
	}
	if !p.in {
		return nil
	}
	at := 0
	if p.pred != "" {
		if j := indexOf(ids, p.pred); j >= 0 {
			at = j + 1
		} else {
			at = min(p.index, len(ids))
		}
	}
	if err := z.Insert(at, id); err != nil {
		return fmt.Errorf("failed to insert %s into z order: %w", id, err)
	}
	return nil
}

// BringToFront moves id to the end of the z order. A shape that is missing from
// the z order but present in the map is appended.
func (d *Document) BringToFront(id string) error {
	return d.mutate("bring_to_front "+id, []string{id}, func() (bool, error) {
		return d.moveToEnd(id, true)
	})
}

// SendToBack moves id to the start of the z order.
func (d *Document) SendToBack(id string) error {
	return d.mutate("send_to_back "+id, []string{id}, func() (bool, error) {
		return d.moveToEnd(id, false)
	})
}

func (d *Document) moveToEnd(id string, front bool) (bool, error) {
	z, err := d.zList()
	if err != nil {
		return false, err
	}
	ids, err := zIDs(z)
	if err != nil {
		return false, err
	}
	i := indexOf(ids, id)
	if i < 0 {
		exists, err := d.hasShape(id)
		if err != nil || !exists {
			return false, err
		}
	}
	if front && i >= 0 && i == len(ids)-1 {
		return false, nil
	}
	if !front && i == 0 {
		return false, nil
	}
	if i >= 0 {
		if err := z.Delete(i); err != nil {
			return false, fmt.Errorf("failed to remove %s from z order: %w", id, err)
		}
	}
	if front {
		err = z.Append(id)
	} else {
		err = z.Insert(0, id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to reinsert %s into z order: %w", id, err)
	}
	return true, nil
}

// BringForward swaps id with the entry in front of it. It reports false when id
// is already at the front or not in the z order.
func (d *Document) BringForward(id string) (bool, error) {
	moved := false
	err := d.mutate("bring_forward "+id, []string{id}, func() (bool, error) {
		z, err := d.zList()
		if err != nil {
			return false, err
		}
		ids, err := zIDs(z)
		if err != nil {
			return false, err
		}
		i := indexOf(ids, id)
		if i < 0 || i == len(ids)-1 {
			return false, nil
		}
		moved = true
		return true, swapWindow(z, i, ids[i+1], id)
	})
	return moved, err
}

// SendBackward swaps id with the entry behind it.
func (d *Document) SendBackward(id string) (bool, error) {
	moved := false
	err := d.mutate("send_backward "+id, []string{id}, func() (bool, error) {
		z, err := d.zList()
		if err != nil {
			return false, err
		}
		ids, err := zIDs(z)
		if err != nil {
			return false, err
		}
		i := indexOf(ids, id)
		if i <= 0 {
			return false, nil
		}
		moved = true
		return true, swapWindow(z, i-1, id, ids[i-1])
	})
	return moved, err
}

// swapWindow replaces the two entries starting at i with first, second. Both
// are deleted and reinserted together so the pair keeps its order under
// concurrent edits around it.
func swapWindow(z *automerge.List, i int, first, second string) error {
	for n := 0; n < 2; n++ {
		if err := z.Delete(i); err != nil {
			return fmt.Errorf("failed to delete z order entry %d: %w", i, err)
		}
	}
	if err := z.Insert(i, first, second); err != nil {
		return fmt.Errorf("failed to reinsert z order window at %d: %w", i, err)
	}
	return nil
}
