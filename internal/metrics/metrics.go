package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec   // service, outcome
	UpstreamDuration *prometheus.HistogramVec // service

	BoardsBuilt      *prometheus.CounterVec // source
	BoardDuration    prometheus.Histogram
	InconsistentData prometheus.Counter
	WalkingFailures  prometheus.Counter

	TravelCache *prometheus.CounterVec // result: hit|miss

	PredictionFetches *prometheus.CounterVec // result: fetched|cached|shared

	StaleBoards prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec // method, status
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walktimes_upstream_requests_total",
			Help: "Upstream request attempts by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "walktimes_upstream_request_duration_seconds",
			Help:    "Duration of upstream request attempts.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"service"}),
		BoardsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walktimes_boards_built_total",
			Help: "Departure boards built by prediction source.",
		}, []string{"source"}),
		BoardDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "walktimes_board_duration_seconds",
			Help:    "Time to build one departure board.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		InconsistentData: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walktimes_inconsistent_payloads_total",
			Help: "Prediction payloads rejected for referencing records they do not include.",
		}),
		WalkingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walktimes_walking_estimate_failures_total",
			Help: "Boards returned without walking estimates because the matrix request failed.",
		}),
		TravelCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walktimes_travel_cache_total",
			Help: "Walking estimate cache lookups by result.",
		}, []string{"result"}),
		PredictionFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walktimes_prediction_fetches_total",
			Help: "Prediction lookups by how they were served.",
		}, []string{"result"}),
		StaleBoards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walktimes_stale_boards_discarded_total",
			Help: "Boards discarded because a newer location arrived while they were built.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walktimes_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walktimes_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walktimes_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "walktimes_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "walktimes_http_requests_total",
			Help: "HTTP requests served by method and status code.",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		c.UpstreamRequests, c.UpstreamDuration,
		c.BoardsBuilt, c.BoardDuration, c.InconsistentData, c.WalkingFailures,
		c.TravelCache, c.PredictionFetches, c.StaleBoards,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.HTTPRequests,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) ObserveUpstream(service, outcome string, d time.Duration) {
	c.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(service).Observe(d.Seconds())
}

func (c *Collector) ObserveTravelCache(hit bool) {
	if hit {
		c.TravelCache.WithLabelValues("hit").Inc()
	} else {
		c.TravelCache.WithLabelValues("miss").Inc()
	}
}

func (c *Collector) ObservePredictionFetch(result string) {
	c.PredictionFetches.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveBoard(source string, d time.Duration) {
	c.BoardsBuilt.WithLabelValues(source).Inc()
	c.BoardDuration.Observe(d.Seconds())
}

func (c *Collector) InconsistentDataInc() { c.InconsistentData.Inc() }
func (c *Collector) WalkingFailureInc()   { c.WalkingFailures.Inc() }
func (c *Collector) StaleBoardInc()       { c.StaleBoards.Inc() }

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) ObserveHTTP(method string, status int) {
	c.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
