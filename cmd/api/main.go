package main

import (
    "net/http"
    "os"
    "time"

    "github.com/gorilla/mux"
    "github.com/joho/godotenv"
    "github.com/rs/cors"

    "github.com/WinAndronuX/mikrotik-integration/internal/auditlog"
    "github.com/WinAndronuX/mikrotik-integration/internal/broadcast"
    "github.com/WinAndronuX/mikrotik-integration/internal/handlers"
    "github.com/WinAndronuX/mikrotik-integration/internal/middleware"
    "github.com/WinAndronuX/mikrotik-integration/internal/payments"
    "github.com/WinAndronuX/mikrotik-integration/internal/provision"
    "github.com/WinAndronuX/mikrotik-integration/internal/routeros"
    "github.com/WinAndronuX/mikrotik-integration/internal/scheduler"
    "github.com/WinAndronuX/mikrotik-integration/internal/store"
    "github.com/WinAndronuX/mikrotik-integration/internal/subscription"
    "github.com/WinAndronuX/mikrotik-integration/pkg/database"
    "github.com/WinAndronuX/mikrotik-integration/pkg/logger"
    "github.com/WinAndronuX/mikrotik-integration/pkg/redis"
)

func main() {
    // Load environment variables
    godotenv.Load()

    // Initialize logger
    log := logger.New()
    log.Info("Starting MikroTik Billing API v1.0.0...")

    // Connect to database
    db, err := database.Connect()
    if err != nil {
        log.Fatal("Failed to connect to database", "error", err)
    }
    defer db.Close()
    log.Info("Database connected successfully")

    // Run migrations
    if err := db.RunMigrations("./migrations"); err != nil {
        log.Fatal("Failed to run migrations", "error", err)
    }
    log.Info("Migrations completed")

    // Connect to Redis (events + caching + rate limiting)
    redisClient, err := redis.Connect()
    if err != nil {
        log.Fatal("Failed to connect to Redis", "error", err)
    }
    defer redisClient.Close()
    log.Info("Redis connected successfully")

    // Stores
    subStore := store.NewSubscriptionStore(db)
    catalog := store.NewCatalogStore(db)

    // Provisioning engine with audit trail
    audit := auditlog.New(db, log)
    engine := provision.NewEngine(routeros.Dial, catalog, audit, log)

    // Lifecycle service
    notifier := broadcast.New(redisClient)
    gateway := payments.NewHTTPGateway()
    subs := subscription.NewService(subStore, engine, notifier, gateway, log)

    // Periodic reconciliation jobs
    jobs := scheduler.NewJobs(subStore, catalog, engine, subs, notifier, audit, routeros.Dial, log)
    cronRunner := scheduler.Start(jobs)
    defer cronRunner.Stop()
    log.Info("Reconciliation jobs scheduled")

    // Initialize handlers
    h := handlers.New(db, log, redisClient, subs, engine, audit, jobs, catalog)

    // Create router
    r := mux.NewRouter()

    rateLimiter := middleware.NewRateLimiter(redisClient, 100, time.Minute)
    r.Use(rateLimiter.Middleware)

    // ============== PUBLIC ROUTES (No Auth) ==============
    r.HandleFunc("/api/health", h.HealthCheck).Methods("GET")
    r.HandleFunc("/api/auth/login", h.Login).Methods("POST")
    r.HandleFunc("/api/plans", h.GetPlans).Methods("GET")
    r.HandleFunc("/api/plans/{id}", h.GetPlan).Methods("GET")

    // Billing callback (payment collaborator)
    r.HandleFunc("/api/payments/settled", h.PaymentSettled).Methods("POST")

    // ============== PROTECTED ROUTES (JWT Auth) ==============
    api := r.PathPrefix("/api").Subrouter()
    api.Use(middleware.AuthMiddleware)

    // Auth
    api.HandleFunc("/auth/refresh", h.RefreshToken).Methods("POST")

    // Dashboard
    api.HandleFunc("/dashboard/stats", h.GetDashboardStats).Methods("GET")

    // Customers
    api.HandleFunc("/customers", h.GetCustomers).Methods("GET")
    api.HandleFunc("/customers", h.CreateCustomer).Methods("POST")

    // Subscriptions
    api.HandleFunc("/subscriptions", h.GetSubscriptions).Methods("GET")
    api.HandleFunc("/subscriptions", h.CreateSubscription).Methods("POST")
    api.HandleFunc("/subscriptions/{id}", h.GetSubscription).Methods("GET")
    api.HandleFunc("/subscriptions/{id}/activate", h.ActivateSubscription).Methods("POST")
    api.HandleFunc("/subscriptions/{id}/suspend", h.SuspendSubscription).Methods("POST")
    api.HandleFunc("/subscriptions/{id}/reactivate", h.ReactivateSubscription).Methods("POST")
    api.HandleFunc("/subscriptions/{id}/cancel", h.CancelSubscription).Methods("POST")
    api.HandleFunc("/subscriptions/{id}/extend", h.ExtendSubscription).Methods("POST")
    api.HandleFunc("/subscriptions/{id}/router-status", h.GetRouterStatus).Methods("GET")
    api.HandleFunc("/subscriptions/{id}/request-payment", h.RequestPayment).Methods("POST")

    // Routers
    api.HandleFunc("/routers", h.GetRouters).Methods("GET")
    api.HandleFunc("/routers", h.CreateRouter).Methods("POST")
    api.HandleFunc("/routers/{id}", h.GetRouter).Methods("GET")
    api.HandleFunc("/routers/{id}", h.UpdateRouter).Methods("PUT")
    api.HandleFunc("/routers/{id}", h.DeleteRouter).Methods("DELETE")
    api.HandleFunc("/routers/{id}/test", h.TestRouterConnection).Methods("POST")

    // Connection types
    api.HandleFunc("/connection-types", h.GetConnectionTypes).Methods("GET")
    api.HandleFunc("/connection-types", h.CreateConnectionType).Methods("POST")
    api.HandleFunc("/connection-types/{id}", h.UpdateConnectionType).Methods("PUT")
    api.HandleFunc("/connection-types/{id}", h.DeleteConnectionType).Methods("DELETE")

    // Plans
    api.HandleFunc("/plans", h.CreatePlan).Methods("POST")
    api.HandleFunc("/plans/{id}", h.UpdatePlan).Methods("PUT")
    api.HandleFunc("/plans/{id}", h.DeletePlan).Methods("DELETE")

    // API logs
    api.HandleFunc("/logs", h.GetAPILogs).Methods("GET")
    api.HandleFunc("/logs/stats", h.GetAPILogStats).Methods("GET")
    api.HandleFunc("/logs/cleanup", h.PurgeAPILogs).Methods("DELETE")

    // Settings
    api.HandleFunc("/settings", h.GetSettings).Methods("GET")
    api.HandleFunc("/settings/{key}", h.GetSetting).Methods("GET")
    api.HandleFunc("/settings/{key}", h.UpdateSetting).Methods("PUT")

    // Manual sync triggers
    api.HandleFunc("/sync/usage", h.TriggerUsageSync).Methods("POST")
    api.HandleFunc("/sync/expiry", h.TriggerExpirySweep).Methods("POST")
    api.HandleFunc("/sync/router-status", h.TriggerRouterStatusSync).Methods("POST")
    api.HandleFunc("/sync/routers", h.TriggerRouterSync).Methods("POST")

    // CORS configuration
    c := cors.New(cors.Options{
        AllowedOrigins:   []string{"*"},
        AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
        AllowedHeaders:   []string{"Authorization", "Content-Type"},
        AllowCredentials: true,
    })

    // Get port from environment
    port := os.Getenv("PORT")
    if port == "" {
        port = "8080"
    }

    // Create server
    srv := &http.Server{
        Handler:      c.Handler(r),
        Addr:         ":" + port,
        WriteTimeout: 15 * time.Second,
        ReadTimeout:  15 * time.Second,
        IdleTimeout:  60 * time.Second,
    }

    log.Info("Server starting", "port", port)

    if err := srv.ListenAndServe(); err != nil {
        log.Fatal("Server failed", "error", err)
    }
}
