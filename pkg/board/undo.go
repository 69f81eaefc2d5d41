package board

import (
	"sync"
	"time"
)

const (
	DefaultMaxUndoSteps  = 100
	DefaultMergeInterval = 300 * time.Millisecond
)

type UndoOption func(*UndoManager)

// WithMaxUndoSteps bounds the undo stack; the oldest units are dropped first.
func WithMaxUndoSteps(n int) UndoOption {
	return func(u *UndoManager) {
		if n < 1 {
			n = 1
		}
		u.maxSteps = n
	}
}

// WithMergeInterval sets how close together two local edits must be to land in
// the same undo unit. Zero disables coalescing.
func WithMergeInterval(d time.Duration) UndoOption {
	return func(u *UndoManager) {
		u.mergeInterval = d
	}
}

func WithClock(now func() time.Time) UndoOption {
	return func(u *UndoManager) {
		u.now = now
	}
}

// UndoManager records local edits to a Document and retracts them on request.
// Edits that arrive through Import are never recorded, and a retraction leaves
// alone anything a remote peer has changed since.
type UndoManager struct {
	mu  sync.Mutex
	doc *Document

	undo []*edit
	redo []*edit

	maxSteps      int
	mergeInterval time.Duration
	now           func() time.Time

	// open is true while the top of the undo stack may absorb the next edit.
	open       bool
	lastRecord time.Time
	groupDepth int
}

// NewUndoManager attaches a manager to doc. A document has at most one manager;
// attaching another replaces the first.
func NewUndoManager(doc *Document, opts ...UndoOption) *UndoManager {
	u := &UndoManager{
		doc:           doc,
		maxSteps:      DefaultMaxUndoSteps,
		mergeInterval: DefaultMergeInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	doc.mu.Lock()
	doc.onLocal = u.record
	doc.mu.Unlock()
	return u
}

func (u *UndoManager) record(e *edit) {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.now()
	u.redo = nil

	switch {
	case u.groupDepth > 0 && u.open:
		u.undo[len(u.undo)-1].merge(e)
	case u.groupDepth == 0 && u.open && now.Sub(u.lastRecord) < u.mergeInterval:
		u.undo[len(u.undo)-1].merge(e)
	default:
		u.undo = append(u.undo, e)
		if len(u.undo) > u.maxSteps {
			u.undo = u.undo[len(u.undo)-u.maxSteps:]
		}
	}
	u.open = true
	u.lastRecord = now
}

// Undo retracts the most recent unit and reports whether there was one.
func (u *UndoManager) Undo() (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.undo) == 0 {
		return false, nil
	}
	e := u.undo[len(u.undo)-1]
	if _, err := u.doc.revert(e, false); err != nil {
		return false, err
	}
	u.undo = u.undo[:len(u.undo)-1]
	u.redo = append(u.redo, e)
	u.open = false
	return true, nil
}

// Redo reapplies the most recently undone unit.
func (u *UndoManager) Redo() (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.redo) == 0 {
		return false, nil
	}
	e := u.redo[len(u.redo)-1]
	if _, err := u.doc.revert(e, true); err != nil {
		return false, err
	}
	u.redo = u.redo[:len(u.redo)-1]
	u.undo = append(u.undo, e)
	u.open = false
	return true, nil
}

func (u *UndoManager) CanUndo() bool {
	return u.UndoCount() > 0
}

func (u *UndoManager) CanRedo() bool {
	return u.RedoCount() > 0
}

func (u *UndoManager) UndoCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.undo)
}

func (u *UndoManager) RedoCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.redo)
}

// RecordCheckpoint makes the next edit start a new unit.
func (u *UndoManager) RecordCheckpoint() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.groupDepth == 0 {
		u.open = false
	}
}

// StartUndoGroup collects every edit until the matching EndUndoGroup into one
// unit, whatever the merge interval. Groups nest.
func (u *UndoManager) StartUndoGroup() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.groupDepth == 0 {
		u.open = false
	}
	u.groupDepth++
}

func (u *UndoManager) EndUndoGroup() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.groupDepth == 0 {
		return
	}
	u.groupDepth--
	if u.groupDepth == 0 {
		u.open = false
	}
}

// ClearUndoHistory drops both stacks without touching the document.
func (u *UndoManager) ClearUndoHistory() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = nil
	u.redo = nil
	u.open = false
}
