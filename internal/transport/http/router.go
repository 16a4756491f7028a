package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	apppublic "prediction-pool/internal/app/public"
	"prediction-pool/internal/ledger"
	"prediction-pool/internal/notify"
	"prediction-pool/internal/pool"
	"prediction-pool/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type RouterDeps struct {
	Pools       *pool.Service
	Public      *apppublic.Service
	Funds       ledger.Funds
	Events      *notify.Buffer
	Keys        *KeyDirectory
	Health      HealthFunc
	AdminAPIKey string
}

func NewRouter(deps RouterDeps) *chi.Mux {
	poolHandlers := NewPoolHandlers(deps.Pools)
	publicHandlers := NewPublicHandlers(deps.Public)
	adminHandlers := NewAdminHandlers(deps.Funds, deps.Health)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(MetricsMiddleware)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.Handle("/metrics", promhttp.Handler())
	if deps.Events != nil {
		// outside the request logger so the upgrade can hijack the raw connection
		r.Get("/api/ws", ws.Handler(deps.Events))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/pools", publicHandlers.Pools())
		r.Get("/pools/{pool_id}", publicHandlers.Pool())
		r.Get("/pools/{pool_id}/entries", publicHandlers.Entries())
		r.Get("/pools/{pool_id}/entries/{user}", publicHandlers.Entry())
		r.Get("/pools/{pool_id}/entries/{user}/quote", publicHandlers.Quote())
		if deps.Events != nil {
			r.Get("/events", EventsSSEHandler(deps.Events))
		}

		r.Group(func(r chi.Router) {
			r.Use(PrincipalAuthMiddleware(deps.Keys))
			r.Post("/pools", poolHandlers.Create())
			r.Post("/pools/{pool_id}/entries", poolHandlers.Enter())
			r.Post("/pools/{pool_id}/lock", poolHandlers.Lock())
			r.Post("/pools/{pool_id}/resolve", poolHandlers.Resolve())
			r.Post("/pools/{pool_id}/claim", poolHandlers.Claim())
			r.Get("/me/balance", adminHandlers.Balance())
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(deps.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/topup", adminHandlers.Topup())
			r.Get("/ledger", adminHandlers.Ledger())
		})
	})

	log.Debug().Int("api_keys", deps.Keys.Len()).Msg("router configured")
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
