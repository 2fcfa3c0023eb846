package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clarkhacks/PersonalGram/internal/auth"
	"github.com/clarkhacks/PersonalGram/internal/config"
	"github.com/clarkhacks/PersonalGram/internal/handlers"
	"github.com/clarkhacks/PersonalGram/internal/index"
	"github.com/clarkhacks/PersonalGram/internal/storage"
	"github.com/clarkhacks/PersonalGram/internal/tracing"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log.Println("Starting PersonalGram service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Service: %s, Port: %s", cfg.ServiceName, cfg.ServicePort)

	// Initialize OpenTelemetry tracing
	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// Initialize MinIO client (blob store)
	log.Println("Connecting to MinIO...")
	minioClient, err := storage.NewMinioClient(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.MinIOBucketName,
		cfg.MinIOUseSSL,
	)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO client: %v", err)
	}
	log.Println("MinIO client initialized")

	// Initialize Redis client (metadata store)
	log.Println("Connecting to Redis...")
	redisClient, err := storage.NewRedisClient(cfg.GetRedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis client initialized")

	// Initialize core components
	photoIndex := index.New(redisClient, minioClient)
	authManager := auth.NewManager(redisClient)

	// Initialize handlers
	readHandler := handlers.NewReadHandler(photoIndex, minioClient)
	writeHandler := handlers.NewWriteHandler(photoIndex, minioClient, cfg.GetMaxUploadBytes())
	authHandler := handlers.NewAuthHandler(authManager)

	// Setup HTTP router
	router := mux.NewRouter()

	// Health check endpoint (no tracing needed)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Public read endpoints
	router.Handle("/api/photos",
		otelhttp.NewHandler(http.HandlerFunc(readHandler.ListPhotos), "GET /api/photos")).Methods("GET")
	router.Handle("/api/photos/{id}",
		otelhttp.NewHandler(http.HandlerFunc(readHandler.GetPhoto), "GET /api/photos/{id}")).Methods("GET")
	router.Handle("/api/photos/{id}/original",
		otelhttp.NewHandler(http.HandlerFunc(readHandler.ServeOriginal), "GET /api/photos/{id}/original")).Methods("GET")
	router.Handle("/api/photos/{id}/thumbnail",
		otelhttp.NewHandler(http.HandlerFunc(readHandler.ServeThumbnail), "GET /api/photos/{id}/thumbnail")).Methods("GET")

	// Admin mutation endpoints (session required)
	router.Handle("/api/photos",
		otelhttp.NewHandler(authHandler.RequireSession(http.HandlerFunc(writeHandler.UploadPhoto)), "POST /api/photos")).Methods("POST")
	router.Handle("/api/photos/{id}",
		otelhttp.NewHandler(authHandler.RequireSession(http.HandlerFunc(writeHandler.DeletePhoto)), "DELETE /api/photos/{id}")).Methods("DELETE")

	// Auth endpoints
	router.Handle("/api/auth/setup",
		otelhttp.NewHandler(http.HandlerFunc(authHandler.Setup), "POST /api/auth/setup")).Methods("POST")
	router.Handle("/api/auth/login",
		otelhttp.NewHandler(http.HandlerFunc(authHandler.Login), "POST /api/auth/login")).Methods("POST")
	router.Handle("/api/auth/logout",
		otelhttp.NewHandler(http.HandlerFunc(authHandler.Logout), "POST /api/auth/logout")).Methods("POST")

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %s", cfg.ServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
