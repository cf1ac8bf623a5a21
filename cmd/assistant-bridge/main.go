package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/homevirt/assistant-bridge/internal/commandbus"
	"github.com/homevirt/assistant-bridge/internal/csrf"
	"github.com/homevirt/assistant-bridge/internal/intent"
	"github.com/homevirt/assistant-bridge/internal/logging"
	"github.com/homevirt/assistant-bridge/internal/oauth"
	"github.com/homevirt/assistant-bridge/internal/statecache"
	"github.com/homevirt/assistant-bridge/internal/store"
)

// Version is set by the build process
var Version = "dev"

func main() {
	// Load configuration from environment
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "stdout", Version)

	// Create Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)

	// Verify Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}

	// Open the account database
	db, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	// Select the command bus backend
	var bus commandbus.Bus
	var busClose func()
	switch cfg.BusBackend {
	case "mqtt":
		mqttBus, err := commandbus.NewMQTTBus(commandbus.MQTTConfig{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			QoS:       cfg.MQTTQoS,
		})
		if err != nil {
			log.Fatalf("Error connecting to MQTT broker: %v", err)
		}
		bus = mqttBus
		busClose = mqttBus.Close
	default:
		bus = commandbus.NewRedisBus(redisClient)
	}

	cache := statecache.NewRedisCache(redisClient)

	// Initialize CSRF protection for the authorization form
	csrfStore := csrf.NewRedisStore(redisClient)
	csrfManager := csrf.NewManager(csrfStore, []byte(cfg.CSRFSecret), cfg.CSRFTokenExpiry)

	auth := oauth.NewService(db, cfg.ClientID, cfg.RedirectURI)
	dispatcher := intent.NewDispatcher(db, auth, cache, bus, logger, intent.Config{
		Namespace: cfg.Namespace,
		Hosted:    cfg.Hosted,
	})

	// Create and configure server
	srv, err := newServer(cfg, db, auth, dispatcher, cache, bus, csrfManager, logger)
	if err != nil {
		log.Fatalf("Error creating server: %v", err)
	}

	// Create HTTP server with proper timeout configurations
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start server
	go func() {
		logger.Info("server listening", "port", cfg.Port, "bus", cfg.BusBackend)
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)

	case <-shutdown:
		logger.Info("starting shutdown")

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Shutdown server
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutting down server", "error", err)
			if err := httpServer.Close(); err != nil {
				logger.Error("closing server", "error", err)
			}
		}

		if busClose != nil {
			busClose()
		}

		// Close Redis connection
		if err := redisClient.Close(); err != nil {
			logger.Error("closing redis connection", "error", err)
		}
	}
}
