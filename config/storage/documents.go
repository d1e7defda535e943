package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// maxTxnRetries bounds retries of a merge that lost a write conflict
const maxTxnRetries = 5

// DocumentStore is a JSON document store addressed by (collection, id),
// backed by badger.
type DocumentStore struct {
	db *badger.DB
}

// OpenDocumentStore opens (or creates) a badger database in dir.
// An empty dir opens an in-memory store.
func OpenDocumentStore(dir string) (*DocumentStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return &DocumentStore{db: db}, nil
}

// Close closes the underlying database
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

func documentKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

// Get returns the document and whether it exists
func (s *DocumentStore) Get(ctx context.Context, collection, id string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var doc []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(collection, id))
		if err != nil {
			return err
		}
		doc, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	return doc, true, nil
}

// Set replaces the document
func (s *DocumentStore) Set(ctx context.Context, collection, id string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !gjson.ValidBytes(doc) {
		return fmt.Errorf("document %s/%s is not valid JSON", collection, id)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(collection, id), doc)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

// SetMerge sets the given top-level fields on the document, creating it if
// needed. Fields not named are preserved; a nil value stores JSON null.
func (s *DocumentStore) SetMerge(ctx context.Context, collection, id string, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			key := documentKey(collection, id)
			doc := []byte("{}")

			item, err := txn.Get(key)
			switch {
			case err == nil:
				if doc, err = item.ValueCopy(nil); err != nil {
					return err
				}
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}

			for _, k := range keys {
				if doc, err = sjson.SetBytes(doc, escapeKey(k), fields[k]); err != nil {
					return fmt.Errorf("failed to merge field %q: %w", k, err)
				}
			}
			return txn.Set(key, doc)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to merge %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document; a missing document is not an error
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(documentKey(collection, id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns every document in collection in key order
func (s *DocumentStore) List(ctx context.Context, collection string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(collection + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			doc, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return docs, nil
}
