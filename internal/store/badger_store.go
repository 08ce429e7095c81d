package store

import (
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"checkoutfeed/internal/purchase"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Insert(id string, rec purchase.Record) (bool, error) {
	var applied bool
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(id))
		if err == nil {
			// duplicate ID, first write wins
			applied = false
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		bytes, e := encodeRecord(rec)
		if e != nil {
			return e
		}
		if e = txn.Set([]byte(id), bytes); e != nil {
			return e
		}
		applied = true
		return nil
	})
	return applied, err
}

func (b *BadgerStore) Get(id string) (purchase.Record, bool) {
	var rec purchase.Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get([]byte(id))
		if e != nil {
			return e
		}
		v, e := item.ValueCopy(nil)
		if e != nil {
			return e
		}
		var dErr error
		rec, dErr = decodeRecord(v)
		return dErr
	})
	if err != nil {
		return purchase.Record{}, false
	}
	return rec, true
}

func (b *BadgerStore) Range(fn func(id string, rec purchase.Record) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			if err := fn(string(k), rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll loads a full archive into Badger by replacing all keys.
func (b *BadgerStore) LoadAll(all map[string]purchase.Record) {
	_ = b.db.Update(func(txn *badger.Txn) error {
		// Collect keys first to avoid mutating while iterating.
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var keysToDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			keysToDelete = append(keysToDelete, k)
		}
		it.Close()
		for _, k := range keysToDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for k, rec := range all {
			bytes, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(k), bytes); err != nil {
				return err
			}
		}
		return nil
	})
}
