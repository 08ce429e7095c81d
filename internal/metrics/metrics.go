package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg               *prometheus.Registry
	MessagesSeen      prometheus.Counter
	Ignored           prometheus.Counter
	EmptyParses       prometheus.Counter
	PurchasesParsed   prometheus.Counter
	Duplicates        prometheus.Counter
	FeedAppended      prometheus.Counter
	ParseLatencySec   prometheus.Histogram
	LastArchiveAgeSec prometheus.Gauge

	// recovery metrics
	ReplayApplied prometheus.Counter
	ReplaySkipped prometheus.Counter
	TTRSec        prometheus.Gauge
	FeedLag       prometheus.Gauge

	// transactional output metrics
	TxProduced   prometheus.Counter
	TxAborted    prometheus.Counter
	TxLatencySec prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	seen := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_messages_seen_total"})
	ignored := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_messages_ignored_total"})
	emptyParses := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_checkout_empty_parses_total"})
	parsed := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_purchases_parsed_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_purchases_duplicate_total"})
	feedAppended := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_feed_appended_total"})
	parseLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "webhookd_parse_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lastArchiveAge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "webhookd_last_archive_age_seconds"})

	replayApplied := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_replay_applied_total"})
	replaySkipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_replay_skipped_total"})
	ttr := prometheus.NewGauge(prometheus.GaugeOpts{Name: "webhookd_recovery_ttr_seconds"})
	feedLag := prometheus.NewGauge(prometheus.GaugeOpts{Name: "webhookd_feed_lag"})

	txProduced := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_tx_produced_total"})
	txAborted := prometheus.NewCounter(prometheus.CounterOpts{Name: "webhookd_tx_aborted_total"})
	txLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "webhookd_tx_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(seen, ignored, emptyParses, parsed, duplicates, feedAppended, parseLatency,
		lastArchiveAge, replayApplied, replaySkipped, ttr, feedLag, txProduced, txAborted, txLatency)
	return &Registry{
		reg:               r,
		MessagesSeen:      seen,
		Ignored:           ignored,
		EmptyParses:       emptyParses,
		PurchasesParsed:   parsed,
		Duplicates:        duplicates,
		FeedAppended:      feedAppended,
		ParseLatencySec:   parseLatency,
		LastArchiveAgeSec: lastArchiveAge,
		ReplayApplied:     replayApplied,
		ReplaySkipped:     replaySkipped,
		TTRSec:            ttr,
		FeedLag:           feedLag,
		TxProduced:        txProduced,
		TxAborted:         txAborted,
		TxLatencySec:      txLatency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
