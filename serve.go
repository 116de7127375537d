package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"campusparking/authprovider"
	"campusparking/config"
	"campusparking/database"
	"campusparking/handlers"
	"campusparking/logger"
	"campusparking/models"
	"campusparking/realtime"
	"campusparking/routes"
	"campusparking/services"
)

const (
	shutdownTimeout   = 10 * time.Second
	feedRetryInterval = 5 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "啟動 HTTP API 與即時推播",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(ctx, db, cfg.FeedChannel); err != nil {
		return err
	}

	broker, redisClient, err := newBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = broker.Close() }()

	var source realtime.Source = broker
	var publisher realtime.Publisher = broker
	if cfg.FeedSource == "postgres" {
		if cfg.DBDriver != "postgres" {
			return fmt.Errorf("FEED_SOURCE=postgres requires DB_DRIVER=postgres, got %q", cfg.DBDriver)
		}
		// 資料庫 trigger 負責發出事件，service 不再重複發布
		source = realtime.NewPostgresListener(cfg.DatabaseURL, cfg.FeedChannel)
		publisher = nil
	}

	local := authprovider.NewLocal(db, cfg.JWTSecret, cfg.JWTExpiration)
	provider, err := authprovider.New(authprovider.Options{
		Kind:        cfg.AuthProvider,
		SupabaseURL: cfg.SupabaseURL,
		AnonKey:     cfg.SupabaseAnonKey,
		Local:       local,
	})
	if err != nil {
		return err
	}

	lots := services.NewParkingService(db, cfg.LotsSource, publisher)
	hub := realtime.NewHub()
	live := realtime.NewLiveList(lots, source, hub, models.ParkingLot{}.TableName())

	h := &handlers.Handler{
		Auth:     services.NewAuthService(provider, cfg.AdminEmails),
		Lots:     lots,
		Requests: services.NewStatusRequestService(db, lots),
		Live:     live,
		Hub:      hub,
		MapOptions: services.MapOptions{
			Concept3DMapID: cfg.MapConcept3DID,
			CampusQuery:    cfg.MapCampusQuery,
		},
	}
	router, err := routes.SetupRouter(routes.Options{Config: cfg, Logger: log, Redis: redisClient}, h)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return runLiveList(gctx, live)
	})
	g.Go(func() error {
		return runResync(gctx, cfg.LiveResyncSchedule, live)
	})
	g.Go(func() error {
		log.Info("Starting server", "addr", srv.Addr, "auth_provider", cfg.AuthProvider, "feed_source", cfg.FeedSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newBroker 有 REDIS_URL 時使用 Redis，否則使用行程內的 broker
func newBroker(ctx context.Context, cfg *config.Config) (realtime.Broker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		return realtime.NewMemoryBroker(), nil, nil
	}
	rb, err := realtime.NewRedisBroker(ctx, cfg.RedisURL, cfg.FeedChannel)
	if err != nil {
		return nil, nil, err
	}
	logger.FromContext(ctx).Info("Using Redis change feed", "channel", cfg.FeedChannel)
	return rb, rb.Client(), nil
}

// runLiveList 訂閱中斷時等待後重新訂閱，直到 ctx 結束
func runLiveList(ctx context.Context, live *realtime.LiveList) error {
	log := logger.FromContext(ctx)
	for {
		err := live.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("Change feed stopped, resubscribing", "error", err, "retry_in", feedRetryInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(feedRetryInterval):
		}
	}
}

// runResync 依排程整份重新讀取，補上遺漏的事件
func runResync(ctx context.Context, schedule string, live *realtime.LiveList) error {
	if schedule == "" {
		return nil
	}
	log := logger.FromContext(ctx)
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := live.Refresh(ctx); err != nil {
			log.Error("Scheduled snapshot refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid LIVE_RESYNC_SCHEDULE %q: %w", schedule, err)
	}
	c.Start()
	log.Info("Snapshot resync scheduled", "schedule", schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
