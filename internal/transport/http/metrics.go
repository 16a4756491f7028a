package httptransport

import (
	"net/http"
	"strconv"

	"prediction-pool/internal/pool"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	metricOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pool_operations_total",
		Help: "Pool operations by name and outcome class.",
	}, []string{"op", "result"})
	metricSSEActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pool_sse_connections_active",
		Help: "Open event stream connections.",
	})
)

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metricHTTPRequests.WithLabelValues(routePattern(r), r.Method, strconv.Itoa(status)).Inc()
	})
}

func observeOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = pool.Classify(err).String()
	}
	metricOps.WithLabelValues(op, result).Inc()
}
