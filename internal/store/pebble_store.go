package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"checkoutfeed/internal/purchase"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		MemTableSize:             64 << 20,
		MaxConcurrentCompactions: func() int { return 2 },
		L0CompactionThreshold:    4,
		L0StopWritesThreshold:    8,
		WALBytesPerSync:          1 << 20,
		DisableWAL:               false, // keep WAL, inserts must survive restarts
		WALMinSyncInterval:       func() time.Duration { return 0 },
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func encodeRecord(rec purchase.Record) ([]byte, error) { return json.Marshal(rec) }
func decodeRecord(val []byte) (purchase.Record, error) {
	var rec purchase.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return purchase.Record{}, err
	}
	return rec, nil
}

func (p *PebbleStore) Insert(id string, rec purchase.Record) (bool, error) {
	k := []byte(id)
	_, closer, err := p.db.Get(k)
	if err == nil {
		// duplicate ID, first write wins
		_ = closer.Close()
		return false, nil
	}
	if err != pebble.ErrNotFound {
		return false, err
	}
	b, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}
	if err := p.db.Set(k, b, pebble.NoSync); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PebbleStore) Get(id string) (purchase.Record, bool) {
	v, closer, err := p.db.Get([]byte(id))
	if err != nil {
		return purchase.Record{}, false
	}
	defer closer.Close()
	rec, e := decodeRecord(v)
	if e != nil {
		return purchase.Record{}, false
	}
	return rec, true
}

func (p *PebbleStore) Range(fn func(id string, rec purchase.Record) error) error {
	it, _ := p.db.NewIter(nil)
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := append([]byte(nil), it.Key()...)
		v := append([]byte(nil), it.Value()...)
		rec, err := decodeRecord(v)
		if err != nil {
			return err
		}
		if err := fn(string(k), rec); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads a full archive into Pebble by replacing all keys.
func (p *PebbleStore) LoadAll(all map[string]purchase.Record) {
	var toDelete [][]byte
	it, _ := p.db.NewIter(nil)
	for it.First(); it.Valid(); it.Next() {
		k := append([]byte(nil), it.Key()...)
		toDelete = append(toDelete, k)
	}
	it.Close()
	if len(toDelete) > 0 {
		wb := p.db.NewBatch()
		for _, k := range toDelete {
			_ = wb.Delete(k, nil)
		}
		_ = wb.Commit(pebble.NoSync)
		_ = wb.Close()
	}
	if len(all) > 0 {
		wb := p.db.NewBatch()
		for k, rec := range all {
			b, err := encodeRecord(rec)
			if err != nil {
				continue
			}
			_ = wb.Set([]byte(k), b, nil)
		}
		_ = wb.Commit(pebble.NoSync)
		_ = wb.Close()
	}
}
