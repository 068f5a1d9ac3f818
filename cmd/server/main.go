package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/config"
	"github.com/Nixie-Tech-LLC/almanac/internal/db"
	"github.com/Nixie-Tech-LLC/almanac/internal/events"
	"github.com/Nixie-Tech-LLC/almanac/internal/jobs"
	"github.com/Nixie-Tech-LLC/almanac/internal/metrics"
	"github.com/Nixie-Tech-LLC/almanac/internal/notify"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
	"github.com/Nixie-Tech-LLC/almanac/internal/publishing"
	"github.com/Nixie-Tech-LLC/almanac/internal/redis"
)

const calendarName = "Almanac"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	SetupLogging(cfg)

	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	defer db.DB.Close()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	store := db.NewStore(db.DB)

	registry := plugins.NewDefaultRegistry()
	if cfg.PluginsFile != "" {
		if err := registry.LoadFile(cfg.PluginsFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.PluginsFile).Msg("failed to load plugins")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.MQTTBrokerURL != "" {
		client, err := notify.NewMQTTClient(cfg.MQTTBrokerURL, cfg.MQTTClientID)
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt")
		}
		defer client.Disconnect(250)
		notifier = notify.NewMQTTNotifier(client, "almanac")
	}

	manager := publishing.NewManager(store,
		publishing.WithNotifier(notifier),
		publishing.WithMetrics(collector),
	)

	calendarOpts := []events.CalendarOption{events.WithCalendarMetrics(collector)}
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		defer rdb.Close()
		calendarOpts = append(calendarOpts, events.WithCache(redis.NewCalendarCache(rdb, cfg.CalendarCacheTTL)))
	}
	calendar := events.NewCalendar(store, registry, calendarOpts...)
	exporter := jobs.NewICSExporter(calendar, InitStorage(cfg), calendarName)

	var scheduler *jobs.Scheduler
	if cfg.ICSExportCron != "" {
		scheduler, err = jobs.NewScheduler(cfg.ICSExportCron, exporter, jobs.DefaultExportDays, cfg.DefaultTimezone)
		if err != nil {
			log.Fatal().Err(err).Msg("ICS_EXPORT_CRON")
		}
		scheduler.Start()
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, cfg, Services{
		Store:    store,
		Registry: registry,
		Manager:  manager,
		Calendar: calendar,
		Exporter: exporter,
		Metrics:  collector,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
