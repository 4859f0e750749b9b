package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/audit"
	"github.com/univfleet/vehicle-tracking/internal/auth"
	"github.com/univfleet/vehicle-tracking/internal/config"
	"github.com/univfleet/vehicle-tracking/internal/db"
	"github.com/univfleet/vehicle-tracking/internal/fleet"
	"github.com/univfleet/vehicle-tracking/internal/handlers"
	"github.com/univfleet/vehicle-tracking/internal/middleware"
	"github.com/univfleet/vehicle-tracking/internal/models"
	"github.com/univfleet/vehicle-tracking/internal/notify"
	"github.com/univfleet/vehicle-tracking/internal/tracking"
)

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
}

// seedUsers creates the bootstrap admin and two drivers on an empty user
// store so a fresh deployment is immediately usable.
func seedUsers(ctx context.Context, store db.Store, authService *auth.Service) error {
	count, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeds := []struct {
		username string
		password string
		role     models.Role
		first    string
		last     string
		license  string
	}{
		{"admin", "admin123", models.RoleAdmin, "System", "Administrator", ""},
		{"driver1", "driver123", models.RoleDriver, "John", "Driver", "DL-12345"},
		{"driver2", "driver123", models.RoleDriver, "Sarah", "Driver", "DL-67890"},
	}
	for _, seed := range seeds {
		hash, err := authService.HashPassword(seed.password)
		if err != nil {
			return err
		}
		user, err := store.CreateUser(ctx, &models.User{
			Username:      seed.username,
			PasswordHash:  hash,
			Role:          seed.role,
			FirstName:     seed.first,
			LastName:      seed.last,
			LicenseNumber: seed.license,
		})
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"username": user.Username, "role": user.Role, "user_id": user.ID}).
			Info("Seeded user")
	}
	return nil
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect store backend")
	}
	defer store.Close(context.Background())
	log.WithField("backend", cfg.StoreBackend).Info("Store connected")

	authService := auth.NewService(cfg.JWTSecret)
	if err := seedUsers(ctx, store, authService); err != nil {
		log.WithError(err).Fatal("Failed to seed users")
	}

	var mirror notify.Mirror
	if cfg.MQTTBroker != "" {
		mqttMirror, err := notify.NewMQTTMirror(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.WithError(err).Warn("MQTT mirror unavailable, continuing without it")
		} else {
			defer mqttMirror.Close()
			mirror = mqttMirror
			log.WithField("broker", cfg.MQTTBroker).Info("MQTT mirror connected")
		}
	}

	history := notify.NewHistory(cfg.NotifyHistorySize)
	hub := notify.NewHub(history, mirror)
	defer hub.Close()
	dispatcher := notify.NewDispatcher(hub)

	fleetService := fleet.NewService(store, hub)
	pipeline := tracking.NewPipeline(store, hub, fleetService.Locks())

	auditor := audit.New(store, cfg.AuditInterval)
	go auditor.Run(ctx)

	authMW := middleware.NewAuthMiddleware(authService)
	rateMW := middleware.NewRateLimitMiddleware()

	api := handlers.Router(
		authMW,
		handlers.NewVehicleHandler(fleetService),
		handlers.NewTrackingHandler(pipeline, fleetService),
		handlers.NewNotificationHandler(dispatcher, history),
		handlers.NewWSHandler(hub),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health(func() error { return store.Ping(context.Background()) }))
	mux.Handle("/", rateMW.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)(api))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Shutdown error")
	}
}
