package store

import (
	"fmt"
	"sync"
	"testing"

	"checkoutfeed/internal/purchase"
)

func TestMemoryStore_ConcurrentInsertsDistinctIDs(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	workers := 4
	iters := 1000

	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				id := fmt.Sprintf("msg-%d-%d", w, i)
				applied, err := s.Insert(id, rec(id, "Widget", "ShopA"))
				if err != nil {
					t.Errorf("insert err: %v", err)
					return
				}
				if !applied {
					t.Errorf("distinct id %s should apply", id)
					return
				}
			}
		}()
	}
	wg.Wait()

	count := 0
	if err := s.Range(func(id string, r purchase.Record) error { count++; return nil }); err != nil {
		t.Fatalf("range err: %v", err)
	}
	if count != workers*iters {
		t.Fatalf("count=%d want=%d", count, workers*iters)
	}
}

func TestMemoryStore_ConcurrentDuplicateInsertAppliesOnce(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	appliedCount := make(chan bool, 64)

	for w := 0; w < 64; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := s.Insert("same-id", rec("same-id", "Widget", "ShopA"))
			if err != nil {
				t.Errorf("insert err: %v", err)
				return
			}
			if applied {
				appliedCount <- true
			}
		}()
	}
	wg.Wait()
	close(appliedCount)

	n := 0
	for range appliedCount {
		n++
	}
	if n != 1 {
		t.Fatalf("exactly one racing insert should apply, got %d", n)
	}
}
