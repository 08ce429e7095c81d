package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"checkoutfeed/internal/archive"
	"checkoutfeed/internal/feed"
	"checkoutfeed/internal/metrics"
	"checkoutfeed/internal/parser"
	"checkoutfeed/internal/purchase"
	"checkoutfeed/internal/restore"
	"checkoutfeed/internal/store"
	"checkoutfeed/internal/webhook"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/joho/godotenv"
)

// Config holds CLI flags for webhookd.
type Config struct {
	GroupID         string
	ArchiveInterval int
	FeedOn          bool
	ArchiveDir      string
	DataDir         string
	StateBackend    string // memory|pebble|badger
	CrashMode       string // ""|before|mid|after
	HTTPAddr        string
	// Kafka sinks
	KafkaBootstrap string
	FeedSink       string // file|kafka|both
	ManifestSink   string // file|kafka|both
	FeedDir        string
	TopicFeed      string
	TopicArchives  string
	// Kafka input for raw webhook messages
	InputSource   string // sample|kafka
	TopicWebhooks string
	// Output EOS (parsed purchases)
	OutputTopic string
	OutputTxID  string
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("webhookd failed: %v", err)
	}
}

// envDefault lets .env / environment override flag defaults (brokers,
// credentials); explicit flags still win.
func envDefault(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readFlags() Config {
	_ = godotenv.Load()
	var cfg Config
	flag.StringVar(&cfg.GroupID, "group-id", envDefault("WEBHOOKD_GROUP_ID", "webhookd"), "consumer group id")
	flag.IntVar(&cfg.ArchiveInterval, "archive-interval", 60, "archive interval seconds")
	flag.BoolVar(&cfg.FeedOn, "feed", true, "enable purchase feed emission")
	flag.StringVar(&cfg.ArchiveDir, "archive-dir", "./archives", "archive directory")
	flag.StringVar(&cfg.DataDir, "data-dir", "./data/webhookd", "embedded store data directory")
	flag.StringVar(&cfg.StateBackend, "state-backend", "pebble", "state backend: memory|pebble|badger")
	flag.StringVar(&cfg.CrashMode, "crash", "", "simulate crash: before|mid|after")
	flag.StringVar(&cfg.HTTPAddr, "http", ":8080", "http listen for /metrics and /healthz")
	flag.StringVar(&cfg.KafkaBootstrap, "kafka-bootstrap", envDefault("KAFKA_BOOTSTRAP", ""), "kafka bootstrap servers, e.g. localhost:9092")
	flag.StringVar(&cfg.FeedSink, "feed-sink", "file", "feed sink: file|kafka|both")
	flag.StringVar(&cfg.ManifestSink, "manifest-sink", "file", "manifest sink: file|kafka|both")
	flag.StringVar(&cfg.FeedDir, "feed-dir", "./feed", "feed directory for file sink")
	flag.StringVar(&cfg.TopicFeed, "topic-feed", "cf.purchases.feed", "kafka topic for the purchase feed")
	flag.StringVar(&cfg.TopicArchives, "topic-archives", "cf.purchase-archives", "kafka topic for archive manifests (compacted)")
	flag.StringVar(&cfg.InputSource, "input-source", "sample", "webhook message source: sample|kafka")
	flag.StringVar(&cfg.TopicWebhooks, "topic-webhooks", "cf.webhooks.raw", "kafka topic for raw webhook messages")
	flag.StringVar(&cfg.OutputTopic, "output-topic", "cf.purchases.output", "kafka topic for parsed purchases")
	flag.StringVar(&cfg.OutputTxID, "output-tx-id", "", "transactional id for parsed purchases (enable EOS when set)")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	log.Printf("starting webhookd backend=%s archive-interval=%ds feed=%v", cfg.StateBackend, cfg.ArchiveInterval, cfg.FeedOn)

	// Init purchase store
	var st store.Store
	switch cfg.StateBackend {
	case "badger":
		bs, err := store.NewBadgerStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("init badger: %w", err)
		}
		defer bs.Close()
		st = bs
	case "pebble":
		ps, err := store.NewPebbleStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("init pebble: %w", err)
		}
		defer ps.Close()
		st = ps
	default:
		st = store.NewMemoryStore()
	}

	// Init archiver and manifest publisher (filesystem by default)
	arch := archive.NewFilesystemArchiver(cfg.ArchiveDir)
	maniFS := archive.NewFilesystemManifest(cfg.ArchiveDir)
	var mani archive.Publisher = maniFS
	var maniReader restore.Reader = restore.NewFilesystemReader(cfg.ArchiveDir)
	if cfg.ManifestSink == "kafka" || cfg.ManifestSink == "both" {
		if cfg.KafkaBootstrap != "" {
			maniK := archive.NewKafkaManifest(cfg.KafkaBootstrap, cfg.TopicArchives, "webhookd-manifest-latest")
			if cfg.ManifestSink == "kafka" {
				mani = maniK
			} else {
				mani = archive.MultiPublisher(maniFS, maniK)
			}
		}
	}

	// Init feed writer (file by default; kafka optional)
	var fw feed.Writer
	if cfg.FeedOn {
		if cfg.FeedSink == "file" || cfg.FeedSink == "both" || cfg.FeedSink == "" {
			w, err := feed.NewFileWriter(cfg.FeedDir, "purchases.jsonl")
			if err != nil {
				return fmt.Errorf("init feed file: %w", err)
			}
			fw = w
		}
		if (cfg.FeedSink == "kafka" || cfg.FeedSink == "both") && cfg.KafkaBootstrap != "" {
			kw := feed.NewKafkaWriter(cfg.KafkaBootstrap, cfg.TopicFeed)
			if fw == nil {
				fw = kw
			} else {
				fw = feed.NewMultiWriter(fw, kw)
			}
		}
	}

	// Prometheus metrics registry
	mreg := metrics.NewRegistry()
	go func() {
		http.Handle("/metrics", mreg.Handler())
		http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		})
		_ = http.ListenAndServe(cfg.HTTPAddr, nil)
	}()

	var feedOffset int64
	lastArchive := time.Now()

	if cfg.InputSource == "kafka" && cfg.KafkaBootstrap != "" {
		// Consume raw webhook messages from Kafka
		c, err := ck.NewConsumer(&ck.ConfigMap{
			"bootstrap.servers":  cfg.KafkaBootstrap,
			"group.id":           cfg.GroupID,
			"enable.auto.commit": false,
			"isolation.level":    "read_committed",
			"auto.offset.reset":  "earliest",
		})
		if err != nil {
			return fmt.Errorf("consumer: %w", err)
		}
		defer c.Close()
		if err := c.SubscribeTopics([]string{cfg.TopicWebhooks}, nil); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		// If EOS output is enabled, create transactional producer
		var p *ck.Producer
		if cfg.OutputTxID != "" {
			prod, err := ck.NewProducer(&ck.ConfigMap{
				"bootstrap.servers":  cfg.KafkaBootstrap,
				"enable.idempotence": true,
				"acks":               "all",
				"transactional.id":   cfg.OutputTxID,
			})
			if err != nil {
				return fmt.Errorf("producer: %w", err)
			}
			if err := prod.InitTransactions(context.TODO()); err != nil {
				return fmt.Errorf("init tx: %w", err)
			}
			p = prod
			defer p.Close()
		}
		for {
			msg, err := c.ReadMessage(5 * time.Second)
			if err != nil {
				// no message within timeout; use the idle gap for archiving
				maybeArchive(cfg, st, arch, mani, mreg, &lastArchive, feedOffset)
				continue
			}
			var wm webhook.Message
			if err := json.Unmarshal(msg.Value, &wm); err != nil {
				// bad input; skip
				continue
			}
			recs := parseRecords(wm, mreg)
			applied, err := sinkRecords(recs, st, fw, mreg, &feedOffset)
			if err != nil {
				return err
			}
			if len(applied) > 0 && p != nil {
				// Begin a transaction only when there is something to produce
				if err := p.BeginTransaction(); err != nil {
					return fmt.Errorf("begin tx: %w", err)
				}
				if cfg.CrashMode == "before" {
					log.Fatalf("crash before SendOffsetsToTransaction")
				}
				aborted := false
				for _, rec := range applied {
					b, _ := json.Marshal(&rec)
					if err := p.Produce(&ck.Message{TopicPartition: ck.TopicPartition{Topic: &cfg.OutputTopic, Partition: ck.PartitionAny}, Key: []byte(rec.ID), Value: b}, nil); err != nil {
						_ = p.AbortTransaction(context.TODO())
						mreg.TxAborted.Inc()
						aborted = true
						break
					}
				}
				if aborted {
					continue
				}
				t0 := time.Now()
				offsets, _ := c.Commit()
				meta, _ := c.GetConsumerGroupMetadata()
				if err := p.SendOffsetsToTransaction(context.Background(), offsets, meta); err != nil {
					_ = p.AbortTransaction(context.TODO())
					mreg.TxAborted.Inc()
					continue
				}
				if cfg.CrashMode == "mid" {
					log.Fatalf("crash mid (after SendOffsetsToTransaction, before CommitTransaction)")
				}
				if err := p.CommitTransaction(context.TODO()); err != nil {
					_ = p.AbortTransaction(context.TODO())
					mreg.TxAborted.Inc()
					continue
				}
				if cfg.CrashMode == "after" {
					log.Fatalf("crash after CommitTransaction")
				}
				mreg.TxProduced.Add(float64(len(applied)))
				mreg.TxLatencySec.Observe(time.Since(t0).Seconds())
			} else if p == nil {
				_, _ = c.Commit()
			}
			maybeArchive(cfg, st, arch, mani, mreg, &lastArchive, feedOffset)
		}
	}

	// Sample mode: run built-in notifications through the pipeline
	for _, wm := range sampleMessages() {
		recs := parseRecords(wm, mreg)
		if _, err := sinkRecords(recs, st, fw, mreg, &feedOffset); err != nil {
			return err
		}
	}

	id := time.Now().UTC().Format(time.RFC3339)
	if err := arch.WriteArchive(id, st); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := mani.PublishLatest(id, feedOffset); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}
	log.Printf("archive and manifest published: %s", id)

	// Verify the archive round-trips
	log.Printf("testing restore and replay...")
	restorer := restore.NewRestorer(store.NewMemoryStore(), maniReader, cfg.ArchiveDir, cfg.FeedDir+"/purchases.jsonl")
	result, err := restorer.RestoreAndReplay()
	if err != nil {
		log.Printf("restore failed: %v", err)
	} else {
		log.Printf("restore completed: applied=%d skipped=%d", result.Applied, result.Skipped)
	}

	log.Printf("webhookd sample run completed. Exiting.")
	return nil
}

// parseRecords classifies and parses one webhook message into sink records.
func parseRecords(wm webhook.Message, mreg *metrics.Registry) []purchase.Record {
	mreg.MessagesSeen.Inc()
	embed, text := wm.Flatten()
	if !parser.IsSuccessfulCheckout(embed, text) {
		mreg.Ignored.Inc()
		return nil
	}
	t0 := time.Now()
	purchases := parser.ParseWebhookMessage(embed, text)
	mreg.ParseLatencySec.Observe(time.Since(t0).Seconds())
	if len(purchases) == 0 {
		// recognized checkout but no item had both product and site
		mreg.EmptyParses.Inc()
		return nil
	}
	ts := wm.TS
	if ts == 0 {
		ts = time.Now().UTC().Unix()
	}
	recs := make([]purchase.Record, 0, len(purchases))
	for i, p := range purchases {
		recs = append(recs, purchase.Record{
			ID:          purchase.ItemID(wm.ID, i, len(purchases)),
			PurchasedAt: ts,
			Purchase:    p,
		})
	}
	return recs
}

// sinkRecords inserts records into the store (duplicates are skipped, not
// errors) and appends newly applied ones to the feed.
func sinkRecords(recs []purchase.Record, st store.Store, fw feed.Writer, mreg *metrics.Registry, feedOffset *int64) ([]purchase.Record, error) {
	var applied []purchase.Record
	for _, rec := range recs {
		ok, err := st.Insert(rec.ID, rec)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", rec.ID, err)
		}
		if !ok {
			mreg.Duplicates.Inc()
			continue
		}
		mreg.PurchasesParsed.Inc()
		log.Printf("purchase stored id=%s %s", rec.ID, parser.DebugInfo(rec.Purchase))
		if fw != nil {
			if err := fw.Append(rec); err != nil {
				return nil, fmt.Errorf("append feed: %w", err)
			}
			*feedOffset++
			mreg.FeedAppended.Inc()
		}
		applied = append(applied, rec)
	}
	return applied, nil
}

func maybeArchive(cfg Config, st store.Store, arch archive.Archiver, mani archive.Publisher, mreg *metrics.Registry, lastArchive *time.Time, feedOffset int64) {
	if cfg.ArchiveInterval <= 0 || time.Since(*lastArchive) < time.Duration(cfg.ArchiveInterval)*time.Second {
		mreg.LastArchiveAgeSec.Set(time.Since(*lastArchive).Seconds())
		return
	}
	id := time.Now().UTC().Format(time.RFC3339)
	if err := arch.WriteArchive(id, st); err != nil {
		log.Printf("write archive: %v", err)
		return
	}
	if err := mani.PublishLatest(id, feedOffset); err != nil {
		log.Printf("publish manifest: %v", err)
		return
	}
	*lastArchive = time.Now()
	mreg.LastArchiveAgeSec.Set(0)
	log.Printf("archive and manifest published: %s", id)
}

// sampleMessages covers the notification formats seen in the wild: embed
// fields, "Name\nValue" text, "Name: Value" text, numbered multi-item, plus a
// non-checkout message that must be ignored.
func sampleMessages() []webhook.Message {
	return []webhook.Message{
		{
			ID: "sample-1",
			Embeds: []webhook.Embed{{
				Title: "Successful Checkout!",
				Fields: []webhook.EmbedField{
					{Name: "Site", Value: "NikeStore"},
					{Name: "Product", Value: "Air Max 90"},
					{Name: "Price", Value: "$120.00"},
					{Name: "Qty", Value: "1"},
					{Name: "SKU", Value: "||CD0881-100||"},
				},
			}},
			TS: 1694500000,
		},
		{
			ID:      "sample-2",
			Content: "Successful checkout\nSite\nShopA\nProduct\nWidget Pro\nPrice\n$49.99\nQty\nx2",
			TS:      1694500010,
		},
		{
			ID:      "sample-3",
			Content: "checkout success\nSite: ShopB\nProduct: Gadget Mini\nPrice: 19.99 USD\nOrder ID: ORD-1042",
			TS:      1694500020,
		},
		{
			ID: "sample-4",
			Embeds: []webhook.Embed{{
				Title: "Successful Checkout",
				Fields: []webhook.EmbedField{
					{Name: "Product (1)", Value: "Widget"},
					{Name: "Price (1)", Value: "$10"},
					{Name: "Product (2)", Value: "Gadget"},
					{Name: "Price (2)", Value: "$20"},
					{Name: "Site", Value: "ShopC"},
					{Name: "Order Number", Value: "ORD-2001"},
				},
			}},
			TS: 1694500030,
		},
		{
			ID:      "sample-5",
			Content: "payment declined on ShopA",
			TS:      1694500040,
		},
	}
}
