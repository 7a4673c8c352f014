package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/alarm"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/database"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/httpapi"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/ingest"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/logging"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/mqtt"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/services"
	"github.com/vishmithSuranjaya/InfantGuardian/internal/store"
	"github.com/vishmithSuranjaya/InfantGuardian/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Infant Guardian monitoring service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Shared monitoring store ===
	monitoringStore := store.New(store.WithMaxPending(cfg.SubscriberQueueSize))
	ingestor := ingest.NewIngestor(monitoringStore, logger.Named("ingest"))

	// === Optional history recording ===
	var history *services.HistoryService
	var historyReader httpapi.HistoryReader
	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(ctx, database.Options{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		}, logger.Named("clickhouse"))
		if err != nil {
			logger.Fatal("Failed to initialize ClickHouse", zap.Error(err))
		}
		defer db.Close()

		history = services.NewHistoryService(monitoringStore, db, logger.Named("history"))
		historyReader = db
		go history.Start(ctx)
	}

	// === MQTT ===
	logger.Info("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, logger.Named("mqtt"))
	if err != nil {
		logger.Fatal("Failed to initialize MQTT client", zap.Error(err))
	}
	defer mqttClient.Close()

	notificationChan := make(chan *models.Notification, cfg.MessageChannelSize)
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{
			NotificationTopic: cfg.MQTTTopicNotifications,
			EnqueueTimeout:    cfg.EnqueueTimeout,
		},
		notificationChan,
		logger.Named("publisher"),
	)
	if history != nil {
		publisher.OnPublishFailure(func(n models.Notification, err error) {
			history.RecordPublishFailure(ctx, n, err)
		})
	}
	go publisher.Start(ctx)

	// === Presentation layer and alarm routing ===
	hub := httpapi.NewHub(monitoringStore, httpapi.HubConfig{
		AckTimeout:     cfg.AlarmAckTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger.Named("stream"))
	router := alarm.NewRouter(hub, hub, publisher, alarm.RouterConfig{
		ChannelID:           cfg.NotificationChannelID,
		AlarmOnlyWhenActive: cfg.AlarmOnlyWhenActive,
	}, logger.Named("alarm"))

	// recorder stays a nil interface when history is off
	var recorder services.RouteRecorder
	if history != nil {
		recorder = history
	}
	monitor := services.NewMonitorService(ingestor, router, recorder, services.MonitorServiceConfig{
		MessageChannelSize: cfg.MessageChannelSize,
		EnqueueTimeout:     cfg.EnqueueTimeout,
	}, logger.Named("monitor"))
	go monitor.Start(ctx)

	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{
			MessagesTopic:  cfg.MQTTTopicMessages,
			EnqueueTimeout: cfg.EnqueueTimeout,
		},
		monitor.MessageChan,
		logger.Named("subscriber"),
	)
	if err := subscriber.SubscribeAll(); err != nil {
		logger.Fatal("Failed to subscribe to MQTT topics", zap.Error(err))
	}
	mqttClient.AddOnConnect(subscriber.Resubscribe)

	// === HTTP ===
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(&httpapi.Handlers{
			Snapshots: monitoringStore,
			History:   historyReader,
			Messages:  monitor,
			Hub:       hub,
			Logger:    logger.Named("http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("Infant Guardian monitoring service is running",
		zap.String("messages_topic", cfg.MQTTTopicMessages),
		zap.String("notifications_topic", cfg.MQTTTopicNotifications),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("history", cfg.ClickHouseEnabled))

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	logger.Info("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}

	logger.Info("Shutdown complete. Goodbye!")
}
