package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/health"

	grpcRouter "github.com/dtroode/gophfeed/internal/api/grpc/router"
	grpcServer "github.com/dtroode/gophfeed/internal/api/grpc/server"
	httpRouter "github.com/dtroode/gophfeed/internal/api/http/router"
	"github.com/dtroode/gophfeed/internal/api/http/handler"
	"github.com/dtroode/gophfeed/internal/api/http/middleware"
	httpServer "github.com/dtroode/gophfeed/internal/api/http/server"
	"github.com/dtroode/gophfeed/internal/api/rest"
	"github.com/dtroode/gophfeed/internal/config"
	"github.com/dtroode/gophfeed/internal/guard"
	"github.com/dtroode/gophfeed/internal/identity"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/metrics"
	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/repository/memory"
	"github.com/dtroode/gophfeed/internal/repository/postgres"
	redisstore "github.com/dtroode/gophfeed/internal/repository/redis"
	"github.com/dtroode/gophfeed/internal/server"
	"github.com/dtroode/gophfeed/internal/service"
	storage "github.com/dtroode/gophfeed/internal/storage/minio"
	"github.com/dtroode/gophfeed/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	store, closeStore, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize session store", "error", err, "store", cfg.Session.Store)
	}
	defer closeStore()

	deps := service.Deps{
		Provider: newIdentityProvider(cfg, logger),
		API: rest.NewClient(rest.Config{
			BaseURL:   cfg.Backend.BaseURL,
			APIPrefix: cfg.Backend.APIPrefix,
			Timeout:   cfg.Backend.Timeout,
			RateLimit: cfg.Backend.RateLimit,
			RateBurst: cfg.Backend.RateBurst,
		}, logger),
		Recorder: collector,
		Content: service.ContentConfig{
			PageSize:           cfg.Feed.PageSize,
			HydrateConcurrency: cfg.Feed.HydrateConcurrency,
		},
		RefreshSkew: cfg.Identity.RefreshSkew,
	}

	if cfg.Storage.Enabled {
		uploader, err := newUploader(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err)
		}
		deps.Uploader = uploader
	} else {
		logger.Warn("object storage disabled, uploads will be rejected")
	}

	registry := service.NewRegistry(deps, store, cfg.Session.TTL, logger)
	defer registry.Close()
	go registry.Run(ctx, sweepInterval)

	routerCfg := httpRouter.Config{
		Registry: registry,
		Policy:   guard.DefaultPolicy(),
		Cookie: middleware.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.HTTP.EnableHTTPS,
			MaxAge: cfg.Session.TTL,
		},
		Gatherer: reg,
		Recorder: collector,
	}
	if cfg.Google.Enabled() {
		routerCfg.Google = newGoogleFlow(cfg)
	} else {
		logger.Info("Google sign-in disabled")
	}

	httpSrv := httpServer.NewHTTPServer(httpRouter.New(routerCfg, logger).Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	healthSrv := health.NewServer()
	grpcSrv := grpcServer.NewGRPCServer(grpcRouter.New(healthSrv, logger).Register(), healthSrv, fmt.Sprintf(":%s", cfg.GRPC.Port))

	// the ops server stays on plain TCP; it is not meant to leave the cluster network
	httpSL := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	grpcSL := server.NewPlainListener()

	var wg sync.WaitGroup
	start := func(s model.Server, sl model.SecurityLayer) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}()
	}
	start(httpSrv, httpSL)
	start(grpcSrv, grpcSL)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range []model.Server{httpSrv, grpcSrv} {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func newIdentityProvider(cfg *config.Config, logger *logger.Logger) model.IdentityProvider {
	if cfg.Identity.Mode == config.IdentityModeToolkit {
		return identity.NewToolkit(identity.ToolkitConfig{
			APIKey:     cfg.Identity.APIKey,
			BaseURL:    cfg.Identity.BaseURL,
			TokenURL:   cfg.Identity.TokenURL,
			HTTPClient: &http.Client{Timeout: cfg.Backend.Timeout},
		}, logger)
	}

	logger.Warn("using the local identity provider, accounts are kept in memory")
	return identity.NewLocal(token.NewJWT(cfg.Identity.LocalSecret), logger)
}

func newGoogleFlow(cfg *config.Config) *identity.GoogleFlow {
	return identity.NewGoogleFlow(identity.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
}

var _ handler.OAuthFlow = (*identity.GoogleFlow)(nil)

func newUploader(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*storage.Client, error) {
	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return storage.NewClient(ctx, minioClient, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, logger)
}

// newSnapshotStore opens the configured session store. The returned func
// releases its connections.
func newSnapshotStore(ctx context.Context, cfg *config.Config) (model.SnapshotStore, func(), error) {
	switch cfg.Session.Store {
	case config.SessionStorePostgres:
		conn, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := conn.Ping(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		return postgres.NewSnapshotRepository(conn.DB()), func() { _ = conn.Close() }, nil

	case config.SessionStoreRedis:
		rdb, err := redisstore.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewSnapshotStore(rdb, cfg.Session.TTL), func() { _ = rdb.Close() }, nil

	default:
		return memory.NewSnapshotStore(), func() {}, nil
	}
}
