package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	echopprof "github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cardmass/api"
	"cardmass/bus"
	"cardmass/config"
	"cardmass/placement"
	"cardmass/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.ApplyLogging()

	store, err := storage.New(cfg.StorageConnectionString, cfg.CardsTable, cfg.BoardsTable, cfg.BoardCleanupQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	auth, err := newAuth(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	broker := bus.NewBroker()
	var (
		rc       *redis.Client
		notifier placement.Notifier = broker
		deduper  api.Deduper
	)
	if cfg.Redis != nil {
		rc = redis.NewClient(cfg.Redis)
		notifier = bus.NewPublisher(rc, cfg.UpdatesChannel)
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	} else {
		log.Warn("REDIS_CONNECTION_STRING not set; running without cache, deduplication or cross-instance updates")
	}
	cache := storage.NewCache(store, rc, cfg.CacheTTL)

	var opts []placement.Option
	if cfg.ValidateBoardRefs {
		opts = append(opts, placement.WithBoardValidation(cache))
	}
	cards := placement.NewService(cache, notifier, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(middleware.Decompress())
	if cfg.Debug {
		echopprof.Register(e)
	}

	logger := log.StandardLogger()
	api.Register(e, api.Deps{
		Cards:    cards,
		Boards:   cache,
		Areas:    cache,
		Auth:     auth,
		Deduper:  deduper,
		Notifier: notifier,
		Broker:   broker,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if rc != nil {
		g.Go(func() error {
			bus.Subscribe(ctx, rc, cfg.UpdatesChannel, func(n bus.Notification) {
				if n.Kind == bus.KindCards {
					cache.Invalidate(ctx, n.OrgID)
				}
				broker.Notify(n)
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func newAuth(cfg config.Config) (*api.Auth, error) {
	if cfg.AuthTestMode {
		log.Warn("AUTH0_TEST_MODE enabled; accepting HS256 test tokens")
		return api.NewTestAuth([]byte(cfg.AuthTestSecret)), nil
	}
	if cfg.Auth0Audience == "" || cfg.Auth0Domain == "" {
		return nil, errors.New("missing Auth0 config")
	}
	jwks, err := keyfunc.Get(fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain), keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			log.WithError(err).Error("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, cfg.Auth0Audience, "https://"+cfg.Auth0Domain+"/", cfg.JWKSCacheTTL), nil
}
