package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apppublic "prediction-pool/internal/app/public"
	rediscache "prediction-pool/internal/cache/redis"
	"prediction-pool/internal/config"
	"prediction-pool/internal/ledger"
	"prediction-pool/internal/logging"
	"prediction-pool/internal/notify"
	"prediction-pool/internal/pool"
	"prediction-pool/internal/store"
	"prediction-pool/internal/store/memstore"
	httptransport "prediction-pool/internal/transport/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

type backend struct {
	pools  pool.Store
	funds  ledger.Funds
	health httptransport.HealthFunc
	close  func()
}

func openBackend(ctx context.Context, cfg config.ServerConfig) (backend, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		st := memstore.New(nil)
		log.Warn().Msg("using in-memory store; state is lost on restart")
		return backend{pools: st, funds: memstore.Funds{Book: st.Book()}, close: func() {}}, nil
	}
	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		return backend{}, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return backend{}, err
	}
	return backend{pools: st, funds: st, health: st.Ping, close: st.Close}, nil
}

func run(ctx context.Context, cfg config.AppConfig) error {
	be, err := openBackend(ctx, cfg.Server)
	if err != nil {
		return err
	}
	defer be.close()

	sinks := []notify.Sink{notify.LogSink{}}
	if len(cfg.Notify.KafkaBrokers) > 0 {
		ks := notify.NewKafkaSink(notify.NewKafkaWriter(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic))
		defer ks.Close()
		sinks = append(sinks, ks)
	}

	for _, u := range cfg.Notify.WebhookURLs {
		sinks = append(sinks, notify.NewWebhookSink(notify.WebhookConfig{
			URL:     u,
			Secret:  cfg.Notify.WebhookSecret,
			Timeout: cfg.Notify.WebhookTimeout,
		}))
	}

	var (
		cache  apppublic.PoolCache
		leader pool.LeaderLock
	)
	if cfg.Redis.Enabled() {
		rc, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		pc := rediscache.NewPoolCache(rc, cfg.Redis.PoolCacheTTL)
		cache = pc
		leader = rediscache.NewLockManager(rc)
		sinks = append(sinks, rediscache.Invalidator{Cache: pc})
		if cfg.Notify.RedisChannel != "" {
			sinks = append(sinks, rediscache.NewPublisher(rc, cfg.Notify.RedisChannel))
		}
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		Workers:        cfg.Notify.Workers,
		RetryMax:       cfg.Notify.RetryMax,
		RetryBase:      cfg.Notify.RetryBase,
		DispatchBuffer: cfg.Notify.DispatchBuffer,
	}, notify.NewBuffer(cfg.Notify.ReplayBuffer), sinks...)

	svc := pool.NewService(be.pools, dispatcher)
	janitor := pool.NewJanitor(svc, pool.Principal(cfg.Server.OperatorPrincipal), cfg.Server.LockSweepInterval)
	janitor.Leader = leader
	janitor.LockTTL = cfg.Redis.SweepLockTTL

	keys := httptransport.NewKeyDirectory(cfg.Server.APIKeys)
	if keys.Len() == 0 {
		log.Warn().Msg("no API_KEYS configured; mutating routes will reject every request")
	}
	r := httptransport.NewRouter(httptransport.RouterDeps{
		Pools:       svc,
		Public:      apppublic.NewService(svc, cache),
		Funds:       be.funds,
		Events:      dispatcher.Buffer(),
		Keys:        keys,
		Health:      be.health,
		AdminAPIKey: cfg.Server.AdminAPIKey,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("store", cfg.Server.StoreDriver).
			Int("sinks", len(sinks)).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
