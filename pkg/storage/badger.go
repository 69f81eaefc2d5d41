package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var badgerPrefix = []byte("doc/")

type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a badger database at path. An empty path keeps
// everything in memory.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, ioError(path, fmt.Errorf("failed to open badger: %w", err))
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(id string) []byte {
	return append(append([]byte(nil), badgerPrefix...), id...)
}

func (s *BadgerStore) Save(_ context.Context, id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(id), data)
	}); err != nil {
		return ioError(id, err)
	}
	return nil
}

func (s *BadgerStore) Load(_ context.Context, id string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(id)
	} else if err != nil {
		return nil, ioError(id, err)
	}
	return val, nil
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(id)
	} else if err != nil {
		return ioError(id, err)
	}
	return nil
}

func (s *BadgerStore) List(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(badgerPrefix); it.ValidForPrefix(badgerPrefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(badgerPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, ioError("", err)
	}
	return ids, nil
}

func (s *BadgerStore) Exists(_ context.Context, id string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	} else if err != nil {
		return false, ioError(id, err)
	}
	return true, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
