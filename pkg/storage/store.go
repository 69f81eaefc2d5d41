// Package storage persists document snapshots behind a small key-value blob
// interface, and decides when a document is due to be saved.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// LastDocumentKey holds a copy of the most recently saved document so it can
// be restored on the next launch. It never shows up in listings.
const LastDocumentKey = "__last_document__"

// BlobStore is a flat namespace of byte blobs keyed by document id. Every
// method may fail with an *Error.
type BlobStore interface {
	Save(ctx context.Context, id string, data []byte) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Store is a BlobStore that holds resources until closed.
type Store interface {
	BlobStore
	Close() error
}

type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindSerialization
	KindIO
	KindOther
)

var (
	ErrNotFound      = errors.New("not found")
	ErrSerialization = errors.New("serialization error")
	ErrIO            = errors.New("io error")
	ErrOther         = errors.New("storage error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindSerialization:
		return ErrSerialization
	case KindIO:
		return ErrIO
	}
	return ErrOther
}

func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

// Error carries the kind of failure and the id it concerns. errors.Is matches
// it against ErrNotFound, ErrSerialization, ErrIO and ErrOther.
type Error struct {
	Kind ErrorKind
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.ID, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.ID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func notFound(id string) error {
	return &Error{Kind: KindNotFound, ID: id}
}

func ioError(id string, err error) error {
	return &Error{Kind: KindIO, ID: id, Err: err}
}

func otherError(id string, err error) error {
	return &Error{Kind: KindOther, ID: id, Err: err}
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_\-][A-Za-z0-9_.\-]{0,199}$`)

// ValidateID rejects ids that cannot be used safely as file names or keys.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return otherError(id, fmt.Errorf("invalid document id %q", id))
	}
	return nil
}
