package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/billingkit/modules/billing"
	"github.com/dmitrymomot/billingkit/pkg/config"
	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/paypal"
	"github.com/dmitrymomot/billingkit/pkg/pg"
	"github.com/dmitrymomot/billingkit/pkg/redis"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

type appConfig struct {
	// SecretKey is the hex-encoded 32-byte application key used to encrypt
	// subscription metadata at rest.
	SecretKey string `env:"BILLING_SECRET_KEY,required"`

	SweepInterval time.Duration `env:"BILLING_SWEEP_INTERVAL" envDefault:"1h"`

	// EmailDevDir, when set, writes outbound emails to disk instead of
	// sending them through Postmark.
	EmailDevDir string `env:"EMAIL_DEV_DIR"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg   appConfig
		pgCfg    pg.Config
		redisCfg redis.Config
		ppCfg    paypal.Config
		subCfg   subscription.Config
		mailCfg  email.Config
		httpCfg  httpserver.Config
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&ppCfg),
		config.Load(&subCfg),
		config.Load(&mailCfg),
		config.Load(&httpCfg),
	); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(
		logger.WithLevel(parseLogLevel(appCfg.LogLevel)),
		logger.WithFormat(logger.Format(appCfg.LogFormat)),
		logger.WithService("billingkit"),
	)
	logger.SetAsDefault(log)

	secretKey, err := hex.DecodeString(appCfg.SecretKey)
	if err != nil {
		return fmt.Errorf("decode BILLING_SECRET_KEY: %w", err)
	}
	cipher, err := subscription.NewMetadataCipher(secretKey)
	if err != nil {
		return fmt.Errorf("init metadata cipher: %w", err)
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, billing.Migrations(), log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	provider, err := paypal.New(ppCfg, paypal.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init payment provider: %w", err)
	}

	var sender email.EmailSender
	if appCfg.EmailDevDir != "" {
		sender = email.NewDevSender(appCfg.EmailDevDir)
		log.Warn("using development email sender", slog.String("dir", appCfg.EmailDevDir))
	} else {
		sender, err = email.NewPostmarkClient(mailCfg)
		if err != nil {
			return fmt.Errorf("init email sender: %w", err)
		}
	}

	store := billing.NewStore(pool)
	svc := subscription.NewService(
		subCfg,
		provider,
		paypal.NewEndpointVerifier(provider, log),
		store,
		billing.NewDedupStore(redisClient),
		cipher,
		subscription.WithLogger(log),
		subscription.WithActivationNotifier(
			billing.NewActivationNotifier(sender, billing.MetadataEmailLookup(store, cipher)),
		),
	)

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/billing", billing.Router(svc, log))

	return serve(ctx,
		httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)),
		billing.NewSweeper(svc, appCfg.SweepInterval, log),
		r,
	)
}

// serve supervises the HTTP server and the stale-approval sweeper. The signal
// context is shared by both, so a termination signal (or parent cancellation)
// stops the sweeper and drains the server together.
func serve(ctx context.Context, srv *httpserver.Server, sweeper *billing.Sweeper, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, handler) })

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return err
	}
	return nil
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
