package storage

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is the envelope written to a BlobStore for one document.
type Record struct {
	ID       string    `msgpack:"id"`
	Name     string    `msgpack:"name"`
	SavedAt  time.Time `msgpack:"saved_at"`
	Snapshot []byte    `msgpack:"snapshot"`
}

func EncodeRecord(r Record) ([]byte, error) {
	out, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, &Error{Kind: KindSerialization, ID: r.ID, Err: fmt.Errorf("failed to encode record: %w", err)}
	}
	return out, nil
}

func DecodeRecord(id string, data []byte) (Record, error) {
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return Record{}, &Error{Kind: KindSerialization, ID: id, Err: fmt.Errorf("failed to decode record: %w", err)}
	}
	if len(r.Snapshot) == 0 {
		return Record{}, &Error{Kind: KindSerialization, ID: id, Err: fmt.Errorf("record has no snapshot")}
	}
	return r, nil
}
