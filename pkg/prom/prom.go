package prom

import (
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemLedger  = "ledger"
	SystemImport  = "import"
	SystemReplica = "replica"
)

const (
	MetricTransactionsPosted     = "transactions_posted_total"
	MetricTransactionAmount      = "transaction_amount"
	MetricTransactionsRejected   = "transactions_rejected_total"
	MetricImportRows             = "rows_total"
	MetricOutboxPublished        = "outbox_published_total"
	MetricOutboxPending          = "outbox_pending"
	MetricSinkWriteDuration      = "sink_write_duration_seconds"
	MetricSinkWriteFailures      = "sink_write_failures_total"
	MetricEventsDeadLettered     = "events_dead_lettered_total"
	MetricEventsDuplicateSkipped = "events_duplicate_skipped_total"
)

var lock = &sync.Mutex{}
var namespace = "none"
var registerer prometheus.Registerer = prometheus.DefaultRegisterer

var MetricSystemEnabled = false

var counterVecs = make(map[string]*prometheus.CounterVec)
var gaugeVecs = make(map[string]*prometheus.GaugeVec)
var histogramVecs = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers every metric on the default registry.
func Create(host string, env string, nameSpace string) error {
	return CreateWithRegisterer(prometheus.DefaultRegisterer, host, env, nameSpace)
}

func CreateWithRegisterer(reg prometheus.Registerer, host, env, nameSpace string) error {
	lock.Lock()
	registerer = reg
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	counterVecs = make(map[string]*prometheus.CounterVec)
	gaugeVecs = make(map[string]*prometheus.GaugeVec)
	histogramVecs = make(map[string]*prometheus.HistogramVec)
	lock.Unlock()

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemLedger, MetricTransactionsPosted, "posted transactions by method", []string{"method"}))
	hasError(createHistogramVec(SystemLedger, MetricTransactionAmount, "posted transaction amounts", []string{"currency"},
		[]float64{10, 50, 100, 500, 1000, 5000, 10000, 50000}))
	hasError(createCounterVec(SystemLedger, MetricTransactionsRejected, "rejected transaction posts by reason", []string{"reason"}))
	hasError(createCounterVec(SystemImport, MetricImportRows, "imported spreadsheet rows by result", []string{"result"}))
	hasError(createCounterVec(SystemReplica, MetricOutboxPublished, "outbox events pushed to the stream", []string{"collection", "source"}))
	hasError(createGaugeVec(SystemReplica, MetricOutboxPending, "outbox events waiting for the relay", []string{}))
	hasError(createHistogramVec(SystemReplica, MetricSinkWriteDuration, "document store write latency", []string{"sink", "collection"}, prometheus.DefBuckets))
	hasError(createCounterVec(SystemReplica, MetricSinkWriteFailures, "document store write failures", []string{"sink", "collection"}))
	hasError(createCounterVec(SystemReplica, MetricEventsDeadLettered, "events moved to the dead letter stream", []string{}))
	hasError(createCounterVec(SystemReplica, MetricEventsDuplicateSkipped, "events skipped by the idempotency check", []string{}))

	if err == nil {
		MetricSystemEnabled = true
	}
	return err
}

func ListenAndServer(addr string, url string) {
	if url == "" {
		url = "/metrics"
	}
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Router.GET(url, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Error("[metrics-server] http listen error", "error", err)
	}
}

func createCounterVec(subsystem, name, help string, labels []string) error {
	lock.Lock()
	defer lock.Unlock()
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
	}, labels)
	counterVecs[subsystem+name] = v
	return register(v)
}

func createHistogramVec(subsystem, name, help string, labels []string, buckets []float64) error {
	lock.Lock()
	defer lock.Unlock()
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
		Buckets:     buckets,
	}, labels)
	histogramVecs[subsystem+name] = v
	return register(v)
}

func createGaugeVec(subsystem, name, help string, labels []string) error {
	lock.Lock()
	defer lock.Unlock()
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: defaultLabels,
	}, labels)
	gaugeVecs[subsystem+name] = v
	return register(v)
}

func register(c prometheus.Collector) error {
	if err := registerer.Register(c); err != nil {
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := counterVecs[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := gaugeVecs[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge vec not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := histogramVecs[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func AddTransactionPosted(method, currency string, amount float64) {
	AddCounterVec(SystemLedger, MetricTransactionsPosted, 1, method)
	AddHistogramVec(SystemLedger, MetricTransactionAmount, amount, currency)
}

func AddTransactionRejected(reason string) {
	AddCounterVec(SystemLedger, MetricTransactionsRejected, 1, reason)
}

func AddImportRows(succeeded, failed int) {
	AddCounterVec(SystemImport, MetricImportRows, float64(succeeded), "success")
	AddCounterVec(SystemImport, MetricImportRows, float64(failed), "failure")
}

func AddOutboxPublished(collection, source string) {
	AddCounterVec(SystemReplica, MetricOutboxPublished, 1, collection, source)
}

func SetOutboxPending(n int64) {
	SetGaugeVec(SystemReplica, MetricOutboxPending, float64(n))
}

func AddSinkWrite(sink, collection string, seconds float64, failed bool) {
	AddHistogramVec(SystemReplica, MetricSinkWriteDuration, seconds, sink, collection)
	if failed {
		AddCounterVec(SystemReplica, MetricSinkWriteFailures, 1, sink, collection)
	}
}

func AddDeadLettered() {
	AddCounterVec(SystemReplica, MetricEventsDeadLettered, 1)
}

func AddDuplicateSkipped() {
	AddCounterVec(SystemReplica, MetricEventsDuplicateSkipped, 1)
}
