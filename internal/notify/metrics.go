package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_notify_events_total",
		Help: "Pool events accepted for delivery.",
	}, []string{"event"})
	metricSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_notify_sent_total",
		Help: "Envelopes delivered, by sink.",
	}, []string{"sink"})
	metricFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_notify_failed_total",
		Help: "Failed delivery attempts, by sink.",
	}, []string{"sink"})
	metricRetried = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_notify_retry_total",
		Help: "Delivery attempts scheduled for retry, by sink.",
	}, []string{"sink"})
	metricDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_notify_dropped_total",
		Help: "Envelopes given up on, by sink and reason.",
	}, []string{"sink", "reason"})
	metricQueueLen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pool_notify_queue_len",
		Help: "Jobs waiting in the dispatch queue.",
	})
	metricSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pool_stream_subscribers",
		Help: "Open event stream subscriptions.",
	})
	metricStreamDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pool_stream_dropped_total",
		Help: "Envelopes skipped for subscribers that were not keeping up.",
	})
)
