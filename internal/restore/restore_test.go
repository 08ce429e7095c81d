package restore

import (
	"path/filepath"
	"testing"

	"checkoutfeed/internal/archive"
	"checkoutfeed/internal/feed"
	"checkoutfeed/internal/purchase"
	"checkoutfeed/internal/store"
)

func rec(id, product string) purchase.Record {
	return purchase.Record{
		ID:          id,
		PurchasedAt: 1694500000,
		Purchase: purchase.Purchase{
			Product:  product,
			Price:    100,
			Quantity: 1,
			Site:     "ShopA",
		},
	}
}

func TestRestoreFromArchive_LoadsDump(t *testing.T) {
	dir := t.TempDir()
	src := store.NewMemoryStore()
	_, _ = src.Insert("m1", rec("m1", "Widget"))
	_, _ = src.Insert("m2", rec("m2", "Gadget"))
	if err := archive.NewFilesystemArchiver(dir).WriteArchive("aid", src); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	dst := store.NewMemoryStore()
	r := NewRestorer(dst, nil, dir, "")
	if err := r.RestoreFromArchive("aid"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, ok := dst.Get("m1"); !ok || got.Product != "Widget" {
		t.Fatalf("m1 not restored: %+v ok=%v", got, ok)
	}
	if got, ok := dst.Get("m2"); !ok || got.Product != "Gadget" {
		t.Fatalf("m2 not restored: %+v ok=%v", got, ok)
	}
}

func TestRestoreFromArchive_MissingArchiveIsSkipped(t *testing.T) {
	dst := store.NewMemoryStore()
	r := NewRestorer(dst, nil, t.TempDir(), "")
	if err := r.RestoreFromArchive("no-such-archive"); err != nil {
		t.Fatalf("missing archive should not be an error: %v", err)
	}
}

func TestReplayFeed_AppliesAndSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	fw, err := feed.NewFileWriter(dir, "purchases.jsonl")
	if err != nil {
		t.Fatalf("feed writer: %v", err)
	}
	for _, r := range []purchase.Record{rec("m1", "Widget"), rec("m2", "Gadget"), rec("m1", "Widget")} {
		if err := fw.Append(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	st := store.NewMemoryStore()
	r := NewRestorer(st, nil, dir, "")
	res := r.ReplayFeed(filepath.Join(dir, "purchases.jsonl"), 0)
	if res.Error != nil {
		t.Fatalf("replay: %v", res.Error)
	}
	if res.Applied != 2 || res.Skipped != 1 {
		t.Fatalf("applied=%d skipped=%d, want 2/1", res.Applied, res.Skipped)
	}
	if res.LastAppliedOffset != 3 {
		t.Fatalf("last offset=%d want 3", res.LastAppliedOffset)
	}
}

func TestReplayFeed_StartsPastOffset(t *testing.T) {
	dir := t.TempDir()
	fw, err := feed.NewFileWriter(dir, "purchases.jsonl")
	if err != nil {
		t.Fatalf("feed writer: %v", err)
	}
	for _, r := range []purchase.Record{rec("m1", "Widget"), rec("m2", "Gadget")} {
		if err := fw.Append(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	st := store.NewMemoryStore()
	r := NewRestorer(st, nil, dir, "")
	res := r.ReplayFeed(filepath.Join(dir, "purchases.jsonl"), 1)
	if res.Error != nil {
		t.Fatalf("replay: %v", res.Error)
	}
	if res.Applied != 1 {
		t.Fatalf("applied=%d want 1", res.Applied)
	}
	if _, ok := st.Get("m1"); ok {
		t.Fatalf("m1 is before the offset and must not be replayed")
	}
	if _, ok := st.Get("m2"); !ok {
		t.Fatalf("m2 should be replayed")
	}
}

func TestRestoreAndReplay_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	// Archive covers m1; the feed then carries m1 (again) and m2.
	src := store.NewMemoryStore()
	_, _ = src.Insert("m1", rec("m1", "Widget"))
	if err := archive.NewFilesystemArchiver(dir).WriteArchive("aid", src); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	if err := archive.NewFilesystemManifest(dir).PublishLatest("aid", 0); err != nil {
		t.Fatalf("publish manifest: %v", err)
	}
	fw, err := feed.NewFileWriter(dir, "purchases.jsonl")
	if err != nil {
		t.Fatalf("feed writer: %v", err)
	}
	_ = fw.Append(rec("m1", "Widget"))
	_ = fw.Append(rec("m2", "Gadget"))

	dst := store.NewMemoryStore()
	r := NewRestorer(dst, NewFilesystemReader(dir), dir, filepath.Join(dir, "purchases.jsonl"))
	res, err := r.RestoreAndReplay()
	if err != nil {
		t.Fatalf("restore and replay: %v", err)
	}
	if res.Applied != 1 || res.Skipped != 1 {
		t.Fatalf("applied=%d skipped=%d, want 1/1", res.Applied, res.Skipped)
	}
	if _, ok := dst.Get("m1"); !ok {
		t.Fatalf("m1 missing after restore")
	}
	if _, ok := dst.Get("m2"); !ok {
		t.Fatalf("m2 missing after replay")
	}
}
