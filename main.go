package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "lab_booking/docs"
	"lab_booking/internal/auth"
	"lab_booking/internal/booking"
	"lab_booking/internal/config"
	"lab_booking/internal/handlers"
	"lab_booking/internal/logging"
	"lab_booking/internal/metrics"
	"lab_booking/internal/middleware"
	"lab_booking/internal/notify"
	"lab_booking/internal/storage"
	"lab_booking/internal/tasks"
	"lab_booking/internal/ws"
)

// @Title						Lab booking and waitlist API
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().Interface("config", cfg.Redacted()).Msg("starting lab booking service")

	if len(cfg.Auth.AccessSecret) == 0 || len(cfg.Auth.RefreshSecret) == 0 {
		log.Fatal().Msg("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}

	db, err := storage.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rdb, err := storage.InitRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Notifications outlive the signal context: requests still in flight
	// during srv.Shutdown emit intents that must reach the sinks.
	notifyCtx, stopNotify := context.WithCancel(context.Background())
	defer stopNotify()

	hub := ws.NewHub()
	go hub.Run(notifyCtx)

	var sinks []notify.Sink
	if rdb != nil {
		defer rdb.Close()
		sinks = append(sinks, notify.NewRedisSink(rdb))
		go func() {
			if err := ws.RelayFromRedis(notifyCtx, rdb, hub); err != nil {
				log.Error().Err(err).Msg("websocket relay stopped")
			}
		}()
	} else {
		sinks = append(sinks, hub)
	}
	if cfg.Notify.RabbitMQURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.Notify.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq sink setup failed")
		}
		defer amqpSink.Close()
		sinks = append(sinks, amqpSink)
	}
	if cfg.Notify.KafkaBroker != "" {
		kafkaSink := notify.NewKafkaSink(cfg.Notify.KafkaBroker, cfg.Notify.KafkaTopic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	outbox := notify.NewOutbox(cfg.Notify.Buffer, sinks,
		notify.WithTimeout(cfg.Notify.Timeout),
		notify.WithRetries(cfg.Notify.Retries),
	)
	outboxDone := make(chan struct{})
	go func() {
		outbox.Run(notifyCtx)
		close(outboxDone)
	}()

	store := storage.NewBookingStore(db)
	engine := booking.NewEngine(store, outbox, booking.WithQueueCeiling(cfg.QueueCeiling))

	scheduler, err := tasks.NewPlanner(engine, store).InitScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("cron scheduler setup failed")
	}

	limiter := middleware.NewLimiterStore(cfg.RateLimitRPS, cfg.RateLimitBurst, 15*time.Minute)
	limiter.StartJanitor(ctx, 2*time.Minute)

	tokens := auth.NewTokens(cfg.Auth)
	h := handlers.New(db, store, engine, tokens, rdb)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	h.Routes(r, auth.Middleware(tokens), middleware.RateLimit(limiter), hub)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	<-scheduler.Stop().Done()
	stopNotify()
	<-outboxDone
	log.Info().Msg("stopped")
}
