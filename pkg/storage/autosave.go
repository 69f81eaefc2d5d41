package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astromechza/inkboard/pkg/board"
)

const DefaultAutoSaveInterval = 30 * time.Second

type AutoSaveOption func(*AutoSaver)

func WithInterval(d time.Duration) AutoSaveOption {
	return func(a *AutoSaver) {
		a.interval = d
	}
}

func WithNow(now func() time.Time) AutoSaveOption {
	return func(a *AutoSaver) {
		a.now = now
	}
}

// AutoSaver tracks whether the current document has unsaved changes and
// writes it to a BlobStore when it is due. It has no timer of its own; the
// caller polls MaybeSave.
type AutoSaver struct {
	store BlobStore

	mu       sync.Mutex
	docID    string
	dirty    bool
	saved    bool
	lastSave time.Time
	interval time.Duration
	now      func() time.Time

	// gen counts MarkDirty calls so a save only clears what it wrote.
	gen uint64
}

func NewAutoSaver(store BlobStore, opts ...AutoSaveOption) *AutoSaver {
	a := &AutoSaver{
		store:    store,
		interval: DefaultAutoSaveInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AutoSaver) MarkDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = true
	a.gen++
}

func (a *AutoSaver) IsDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// ShouldSave is true when there are unsaved changes and either nothing has been
// saved yet or the interval has passed since the last save.
func (a *AutoSaver) ShouldSave() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shouldSaveLocked()
}

func (a *AutoSaver) shouldSaveLocked() bool {
	if !a.dirty {
		return false
	}
	return !a.saved || a.now().Sub(a.lastSave) >= a.interval
}

// MaybeSave saves doc only when ShouldSave allows it, and reports whether it did.
func (a *AutoSaver) MaybeSave(ctx context.Context, doc *board.Document) (bool, error) {
	if !a.ShouldSave() {
		return false, nil
	}
	if err := a.Save(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes doc under the current document id, allocating one if needed,
// and again under LastDocumentKey.
func (a *AutoSaver) Save(ctx context.Context, doc *board.Document) error {
	a.mu.Lock()
	if a.docID == "" {
		a.docID = uuid.NewString()
	}
	id := a.docID
	gen := a.gen
	a.mu.Unlock()

	name, err := doc.Name()
	if err != nil {
		return otherError(id, fmt.Errorf("failed to read document name: %w", err))
	}
	now := a.now()
	raw, err := EncodeRecord(Record{ID: id, Name: name, SavedAt: now, Snapshot: doc.ExportSnapshot()})
	if err != nil {
		return err
	}
	if err := a.store.Save(ctx, id, raw); err != nil {
		return err
	}
	if err := a.store.Save(ctx, LastDocumentKey, raw); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen == gen {
		a.dirty = false
	}
	a.saved = true
	a.lastSave = now
	return nil
}

// Load reads a document and makes it current. A loaded document counts as
// saved.
func (a *AutoSaver) Load(ctx context.Context, id string) (*board.Document, error) {
	doc, _, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a.setCurrent(id)
	return doc, nil
}

// LoadLast restores whatever was saved most recently.
func (a *AutoSaver) LoadLast(ctx context.Context) (*board.Document, error) {
	doc, rec, err := a.load(ctx, LastDocumentKey)
	if err != nil {
		return nil, err
	}
	a.setCurrent(rec.ID)
	return doc, nil
}

func (a *AutoSaver) load(ctx context.Context, id string) (*board.Document, Record, error) {
	raw, err := a.store.Load(ctx, id)
	if err != nil {
		return nil, Record{}, err
	}
	rec, err := DecodeRecord(id, raw)
	if err != nil {
		return nil, Record{}, err
	}
	doc, err := board.FromSnapshot(rec.Snapshot)
	if err != nil {
		return nil, Record{}, &Error{Kind: KindSerialization, ID: id, Err: err}
	}
	return doc, rec, nil
}

func (a *AutoSaver) setCurrent(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docID = id
	a.dirty = false
	a.saved = true
	a.lastSave = a.now()
}

// Delete removes a stored document. Deleting the current document forgets its
// id so the next save allocates a new one.
func (a *AutoSaver) Delete(ctx context.Context, id string) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.docID == id {
		a.docID = ""
		a.saved = false
	}
	return nil
}

// ListDocuments lists stored document ids, leaving out LastDocumentKey.
func (a *AutoSaver) ListDocuments(ctx context.Context) ([]string, error) {
	ids, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != LastDocumentKey {
			out = append(out, id)
		}
	}
	return out, nil
}

func (a *AutoSaver) Exists(ctx context.Context, id string) (bool, error) {
	return a.store.Exists(ctx, id)
}

func (a *AutoSaver) SetDocumentID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docID = id
}

func (a *AutoSaver) DocumentID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.docID
}

func (a *AutoSaver) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

func (a *AutoSaver) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// LastSave is the zero time until the first save or load.
func (a *AutoSaver) LastSave() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSave
}
