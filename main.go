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

	"merx/auth"
	"merx/catalog"
	"merx/config"
	"merx/db"
	"merx/mailer"
	"merx/middleware"
	"merx/orders"
	"merx/ratelim"
	"merx/rdx"
	"merx/routes"
	"merx/uploads"
	"merx/users"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	mongo, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("mongodb: %v", err)
	}
	if err := mongo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongodb indexes: %v", err)
	}

	var revoker *rdx.Revocations
	if cfg.RedisAddr != "" {
		revoker = rdx.New(cfg.RedisAddr, cfg.RedisPassword)
		if err := revoker.Ping(ctx); err != nil {
			log.Fatalf("redis: %v", err)
		}
	} else {
		log.Println("REDIS_ADDR not set; token revocation disabled")
	}

	var images uploads.ImageStore
	if cfg.CloudinaryURL != "" {
		cld, err := uploads.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("cloudinary: %v", err)
		}
		images = cld
	} else {
		log.Println("CLOUDINARY_URL not set; product image upload disabled")
	}

	mail := mailer.New(cfg)
	mw := middleware.NewAuth(cfg.JWTSecret, middleware.MongoUsers(mongo.Users), revokerOrNil(revoker))
	rateLimiter := ratelim.NewRateLimiter()

	authService := auth.NewService(cfg, mongo, mail, revoker)
	userService := users.NewService(mongo)
	catalogService := catalog.NewService(mongo, images)
	orderService := orders.NewService(mongo,
		orders.StatusPolicy{Strict: cfg.StrictStatusFlow}, cfg.JWTSecret)

	router := httprouter.New()
	router.GET("/health", Index)
	routes.AddAuthRoutes(router, authService, mw, rateLimiter)
	routes.AddCatalogRoutes(router, catalogService, mw)
	routes.AddUserRoutes(router, userService, mw)
	routes.AddOrderRoutes(router, orderService, mw, rateLimiter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Graceful shutdown failed: %v", err)
	}
	if revoker != nil {
		_ = revoker.Close()
	}
	if err := mongo.Close(shutdownCtx); err != nil {
		log.Printf("MongoDB disconnect: %v", err)
	}

	log.Println("Server stopped cleanly")
}

// revokerOrNil keeps the middleware's interface value nil when no Redis is
// configured (a typed nil would defeat the nil check).
func revokerOrNil(r *rdx.Revocations) middleware.TokenRevoker {
	if r == nil {
		return nil
	}
	return r
}
