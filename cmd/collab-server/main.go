package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"

	"github.com/weiawesome/wes-collab/internal/auth"
	"github.com/weiawesome/wes-collab/internal/cache"
	"github.com/weiawesome/wes-collab/internal/config"
	"github.com/weiawesome/wes-collab/internal/domain"
	"github.com/weiawesome/wes-collab/internal/events"
	collabgrpc "github.com/weiawesome/wes-collab/internal/grpc"
	"github.com/weiawesome/wes-collab/internal/handler"
	"github.com/weiawesome/wes-collab/internal/hub"
	"github.com/weiawesome/wes-collab/internal/idgen"
	"github.com/weiawesome/wes-collab/internal/membership"
	"github.com/weiawesome/wes-collab/internal/metrics"
	"github.com/weiawesome/wes-collab/internal/repository"
	"github.com/weiawesome/wes-collab/internal/service"
	pkgconfig "github.com/weiawesome/wes-collab/pkg/config"
	"github.com/weiawesome/wes-collab/pkg/database"
	pkglog "github.com/weiawesome/wes-collab/pkg/log"
	"github.com/weiawesome/wes-collab/pkg/middleware"
	"github.com/weiawesome/wes-collab/pkg/pubsub"
	"github.com/weiawesome/wes-collab/pkg/storage"
)

func main() {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "collab-server"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting collab-server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	var membershipCache cache.MembershipCache = cache.NopMembershipCache{}
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisMembershipCache(cfg.Redis, cfg.Membership.CachePrefix)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, membership cache disabled")
		} else {
			membershipCache = rc
			logger.Info().Str("address", cfg.Redis.Address).Msg("membership cache enabled")
		}
	}
	defer membershipCache.Close()

	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}
	emitter := events.NewEmitter(publisher)
	defer emitter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create attachment storage")
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}

	ids, err := idgen.NewSnowflake(cfg.IDGen.MachineID, cfg.IDGen.Epoch)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}

	m := metrics.New()
	h := hub.NewHub(m)
	go h.Run(ctx)

	oracle := membership.NewOracle(repository.NewGormProjectRepository(db), membershipCache, cfg.Membership.CacheTTL)
	chatSvc := service.NewChatService(
		h,
		oracle,
		repository.NewGormRoomRepository(db),
		repository.NewGormMessageRepository(db),
		ids,
		emitter,
	)

	// Socket gateway
	router := mux.NewRouter()
	handler.NewWSHandler(h, chatSvc, auth.NewJWTVerifier(tokens), cfg.WebSocket, m).RegisterRoutes(router)
	router.Handle("/metrics", m.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	wsAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	wsServer := &http.Server{
		Addr:        wsAddr,
		Handler:     pkglog.HTTPMiddleware(logger)(router),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// REST API
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), pkglog.GinMiddleware(logger))
	handler.NewHTTPHandler(chatSvc, store, cfg.Attachments, middleware.NewAuthMiddleware(tokens)).RegisterRoutes(engine)

	apiAddr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	apiServer := &http.Server{
		Addr:         apiAddr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := collabgrpc.NewServer(logger)
	if err := grpcServer.Start(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)); err != nil {
		logger.Fatal().Err(err).Msg("failed to start grpc server")
	}

	go func() {
		logger.Info().Str("addr", wsAddr).Msg("socket gateway listening")
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("socket server error")
		}
	}()
	go func() {
		logger.Info().Str("addr", apiAddr).Msg("rest api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("api server error")
		}
	}()

	grpcServer.SetServing(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down collab-server")
	grpcServer.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server forced to shutdown")
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("socket server forced to shutdown")
	}
	h.CloseAll()
	grpcServer.Stop()
	cancel()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("collab-server stopped")
}
