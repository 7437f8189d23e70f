package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/treerootboy/airflow-notification-plugin/internal/api"
	"github.com/treerootboy/airflow-notification-plugin/internal/config"
	"github.com/treerootboy/airflow-notification-plugin/internal/db"
	"github.com/treerootboy/airflow-notification-plugin/internal/dispatch"
	"github.com/treerootboy/airflow-notification-plugin/internal/handlers"
	"github.com/treerootboy/airflow-notification-plugin/internal/kafka"
	"github.com/treerootboy/airflow-notification-plugin/internal/logging"
	"github.com/treerootboy/airflow-notification-plugin/internal/migration"
	"github.com/treerootboy/airflow-notification-plugin/internal/utils"
	"github.com/treerootboy/airflow-notification-plugin/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Apply schema migrations
	if err := migration.Run(cfg.DB.DSN); err != nil {
		logger.Errorf("Migration failed: %v", err)
		log.Fatalf("Migration failed: %v", err)
	}

	// Connect to database
	var dbConn *db.DB
	err = utils.Retry(logger, 5, 2*time.Second, func() error {
		var err error
		dbConn, err = db.New(cfg.DB.DSN)
		return err
	})
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Initialize dispatch service
	registry := handlers.NewRegistry(cfg)
	hub := ws.NewHub(logger)
	svc := dispatch.New(dbConn, logger, cfg, registry, hub)
	var wg sync.WaitGroup
	svc.Start(&wg)

	// Initialize Kafka consumer
	consumer := kafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID, svc)
	logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	consumer.Start(&wg)

	// Start API server
	router := api.NewRouter(dbConn, logger, cfg, hub)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutting down...")
	consumer.Close()
	svc.Stop()
	wg.Wait()
	logger.Info("Service stopped")
}
