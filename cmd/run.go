package cmd

import (
	"context"
	"fmt"
	"time"

	"valwatch/application"
	"valwatch/config"
	"valwatch/database"
	"valwatch/domain/services"
	"valwatch/infrastructure"
	"valwatch/infrastructure/observability"
	"valwatch/repository"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and formatter to the standard logger
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting valwatch...")

	// Metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.FanoutMetrics{
		observability.NewPrometheusMetrics(registry),
		observability.GetMetrics(),
	}

	// Database
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	guildSettings := repository.NewCachedGuildSettings(repository.NewGuildSettingsRepository(db), cfg.GuildSettingsCacheTTL)
	store := repository.NewAccountStore(db, guildSettings)

	// Match source
	henrik := infrastructure.NewHenrikClient(cfg.MatchSourceBaseURL, cfg.MatchSourceAPIKey, cfg.MatchSourceRateLimit)

	// Alert sinks
	var sinks infrastructure.FanoutAlertSink

	var discord *discordgo.Session
	if cfg.DiscordToken != "" {
		discord, err = discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return fmt.Errorf("failed to create Discord session: %w", err)
		}
		if err := discord.Open(); err != nil {
			return fmt.Errorf("failed to open Discord session: %w", err)
		}
		defer func() {
			if err := discord.Close(); err != nil {
				log.WithError(err).Error("Error closing Discord session")
			}
		}()
		sinks = append(sinks, infrastructure.NewDiscordAlertSink(discord, guildSettings))
		log.Info("Discord alert sink enabled")
	}

	var natsClient *infrastructure.NATSClient
	if cfg.NATSEnabled {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return err
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()
		if err := natsClient.EnsureAlertStream(); err != nil {
			return fmt.Errorf("failed to ensure alert stream: %w", err)
		}
		sinks = append(sinks, infrastructure.NewNATSAlertPublisher(natsClient))
		log.Info("NATS alert publisher enabled")
	}

	if len(sinks) == 0 {
		return fmt.Errorf("no alert sink configured: set DISCORD_TOKEN or NATS_ENABLED")
	}

	// Watch cycle
	worker := application.NewWatchCycleWorker(store, henrik, sinks, metrics, application.WatchCycleConfig{
		TickInterval:    cfg.TickInterval,
		AccountDelay:    cfg.AccountDelay,
		FetchTimeout:    cfg.FetchTimeout,
		DefaultCooldown: cfg.DefaultCooldown,
		StreakThreshold: cfg.StreakThreshold,
	})
	stopWorker := worker.Start(ctx)

	// Admin server
	tracking := services.NewTrackingService(store, henrik)
	admin := infrastructure.NewAdminServer(cfg.AdminAddr, tracking, registry, db, worker)
	adminErr := make(chan error, 1)
	go func() {
		adminErr <- admin.Start()
	}()

	log.Info("valwatch is running")
	select {
	case <-ctx.Done():
	case err := <-adminErr:
		if err != nil {
			log.WithError(err).Error("Admin server stopped")
		}
	}

	log.Info("Shutting down valwatch...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error stopping admin server")
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	// Let an in-flight tick finish before the store and sinks close
	for worker.IsRunning() {
		select {
		case <-shutdownCtx.Done():
			log.Warn("Shutdown timeout exceeded with a tick still running")
			return nil
		case <-time.After(100 * time.Millisecond):
		}
	}

	log.Info("Shutdown completed")
	return nil
}
