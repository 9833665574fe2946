package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
)

const entryPrefix = "entry:"

func keyEntry(id string) []byte {
	return []byte(entryPrefix + id)
}

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db *badgerdb.DB
}

// NewBadgerStore opens (or creates) the database directory at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}
	db, err := badgerdb.Open(badgerdb.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var e Entry
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyEntry(id))
		if err == badgerdb.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List iterates the entry prefix. Keys sort bytewise, so results come back
// ordered by id.
func (s *BadgerStore) List(ctx context.Context, kind string) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []*Entry{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if kind != "" && e.Kind != kind {
				continue
			}
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Put(ctx context.Context, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyEntry(e.ID), data); err != nil {
			return fmt.Errorf("failed to store catalog entry %s: %w", e.ID, err)
		}
		return nil
	})
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyEntry(id)); err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(keyEntry(id))
	})
}

func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("healthcheck failed: database closed")
	}
	return s.db.View(func(txn *badgerdb.Txn) error { return nil })
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
