package archive

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go"

	"checkoutfeed/internal/purchase"
	"checkoutfeed/internal/store"
)

func TestWriteArchive_WritesPurchasesJSON(t *testing.T) {
	dir := t.TempDir()
	s := store.NewMemoryStore()
	_, _ = s.Insert("m1", purchase.Record{ID: "m1", PurchasedAt: 1, Purchase: purchase.Purchase{Product: "Widget", Site: "ShopA", Quantity: 1}})
	_, _ = s.Insert("m2", purchase.Record{ID: "m2", PurchasedAt: 2, Purchase: purchase.Purchase{Product: "Gadget", Site: "ShopA", Quantity: 1}})

	arch := NewFilesystemArchiver(dir)
	if err := arch.WriteArchive("aid", s); err != nil {
		t.Fatalf("WriteArchive error: %v", err)
	}

	path := filepath.Join(dir, "aid", "purchases.json")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("purchases.json missing: %v", err)
	}
	var m map[string]purchase.Record
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("unexpected keys: %v", m)
	}
	if m["m1"].Product != "Widget" {
		t.Fatalf("unexpected m1: %+v", m["m1"])
	}
}

func TestPublishAndReadLatest(t *testing.T) {
	dir := t.TempDir()
	m := NewFilesystemManifest(dir)
	if err := m.PublishLatest("aid-123", 42); err != nil {
		t.Fatalf("PublishLatest error: %v", err)
	}
	got, err := m.ReadLatest()
	if err != nil {
		t.Fatalf("ReadLatest error: %v", err)
	}
	if got.ArchiveID != "aid-123" || got.LastFeedOffset != 42 || got.CreatedAtEpochSecond == 0 {
		t.Fatalf("unexpected manifest: %+v", got)
	}
}

// fakeKafkaWriter implements kafkaMessageWriter for tests
type fakeKafkaWriter struct {
	msgs []kafka.Message
	fail bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("fail")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaManifest_PublishLatest_Success(t *testing.T) {
	fk := &fakeKafkaWriter{}
	km := NewKafkaManifestWith(fk, "webhookd-manifest-latest")
	if err := km.PublishLatest("aid-abc", 99); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fk.msgs) != 1 {
		t.Fatalf("want 1 msg, got %d", len(fk.msgs))
	}
	if string(fk.msgs[0].Key) != "webhookd-manifest-latest" {
		t.Fatalf("bad key: %s", string(fk.msgs[0].Key))
	}
	var m Manifest
	if err := json.Unmarshal(fk.msgs[0].Value, &m); err != nil {
		t.Fatalf("bad value: %v", err)
	}
	if m.ArchiveID != "aid-abc" || m.LastFeedOffset != 99 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestKafkaManifest_PublishLatest_Fail(t *testing.T) {
	fk := &fakeKafkaWriter{fail: true}
	km := NewKafkaManifestWith(fk, "webhookd-manifest-latest")
	if err := km.PublishLatest("aid-abc", 99); err == nil {
		t.Fatalf("expected error")
	}
}
