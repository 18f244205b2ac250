package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"novelhub/internal/auth"
	"novelhub/internal/entity"
	"novelhub/internal/events"
	"novelhub/internal/ingest"
	"novelhub/internal/invalidate"
	"novelhub/internal/job"
	"novelhub/pkg/database"
	"novelhub/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Event feed: TCP first (so you notice binding errors early) plus WS
	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))
	tcpSrv := events.NewServer(srvCfg.EventAddr, hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"db":        cfg.Path,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Ingestion engine
	entities := entity.NewRepo(db)
	notifier := invalidate.NewNotifier(entities, hub, nil)
	resolver := ingest.NewResolver(entities)
	reconciler := ingest.NewReconciler(entities)
	coordinator := ingest.NewCoordinator(resolver, reconciler, notifier)

	// Crawler-facing API (pre-shared key)
	keys := auth.NewKeyService(db)
	crawler := router.Group("/crawler/v1")
	crawler.Use(auth.APIKeyMiddleware(keys))

	ingestHandler := ingest.NewHandler(coordinator, entities, reconciler, hub)
	ingestHandler.RegisterRoutes(crawler)

	jobRepo := job.NewRepo(db)
	jobHandler := job.NewHandler(jobRepo, hub)
	jobHandler.RegisterRoutes(crawler)

	// Admin API (JWT)
	adminCfg := utils.LoadAdminConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(adminCfg.JWTSecret),
		Issuer:   adminCfg.JWTIssuer,
		Duration: adminCfg.JWTDuration,
	}
	authHandler := auth.NewHandler(adminCfg, tokenSvc, keys)
	authHandler.RegisterRoutes(router.Group("/auth"))

	admin := router.Group("/admin")
	admin.Use(auth.AdminMiddleware(tokenSvc))
	authHandler.RegisterAdminRoutes(admin)
	jobHandler.RegisterAdminRoutes(admin)

	httpSrv := &http.Server{
		Addr:    srvCfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", srvCfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
