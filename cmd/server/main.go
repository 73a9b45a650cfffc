// Package main runs the dashboard HTTP server with live list sessions and graceful shutdown.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/config"
	"github.com/merchant-ops/backend/internal/alerts"
	"github.com/merchant-ops/backend/internal/auth"
	"github.com/merchant-ops/backend/internal/events"
	"github.com/merchant-ops/backend/internal/exports"
	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/live"
	"github.com/merchant-ops/backend/internal/middleware"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/organizations"
	"github.com/merchant-ops/backend/internal/overview"
	"github.com/merchant-ops/backend/internal/session"
	"github.com/merchant-ops/backend/internal/stores"
	"github.com/merchant-ops/backend/pkg/database"
	"github.com/merchant-ops/backend/pkg/logger"
	"github.com/merchant-ops/backend/pkg/querycache"
	"github.com/merchant-ops/backend/pkg/queue"
	"github.com/merchant-ops/backend/pkg/redis"
	"github.com/merchant-ops/backend/pkg/response"
	"github.com/merchant-ops/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, zl); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, zl)
	if err != nil {
		zl.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var exportService *exports.Service
	if cfg.AWS.Region != "" && cfg.AWS.ExportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, zl)
		if err != nil {
			zl.Warn("s3 disabled, exports unavailable", zap.Error(err))
		} else {
			exportService = exports.NewService(s3Client, zl)
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	cache := querycache.New(rdb.Client, zl)
	pubsub := live.NewRedisPubSub(rdb.Client, zl)
	hub := live.NewHub(zl, pubsub, pubsub)
	invalidator := listing.NewCacheInvalidator(cache, hub, zl)
	jobQueue := queue.NewQueue(rdb.Client, zl)
	activeOrgs := session.NewActiveOrgStore(rdb.Client)

	listOpts := listing.Options{Limit: cfg.Lists.MaxRows, StaleAfter: cfg.Lists.StaleWindow()}

	// Organizations and team
	orgRepo := organizations.NewRepository(pool)
	teamHook := organizations.NewTeamHook(orgRepo, cache, listOpts, zl)
	orgHook := organizations.NewOrgHook(orgRepo, cache, listOpts, zl)
	orgService := organizations.NewService(orgRepo, invalidator, zl)
	orgHandler := organizations.NewHandler(teamHook, orgHook, orgService, zl)
	sessionHandler := session.NewHandler(activeOrgs, orgRepo, zl)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHook := events.NewHook(eventRepo, cache, listOpts, zl)
	eventHandler := events.NewHandler(eventHook, eventRepo, exportService, zl)

	// Alerts
	alertRepo := alerts.NewRepository(pool)
	alertHook := alerts.NewHook(alertRepo, cache, listOpts, zl)
	alertHandler := alerts.NewHandler(alertHook, exportService, zl)

	// Stores (integrations)
	storeRepo := stores.NewRepository(pool)
	storeHook := stores.NewHook(storeRepo, cache, listOpts, zl)
	storeService := stores.NewService(storeRepo, invalidator, jobQueue, zl)
	storeHandler := stores.NewHandler(storeHook, storeService, zl)

	overviewHandler := overview.NewHandler(overview.NewService(storeHook, alertHook), zl)

	views := []live.View{
		live.NewView[models.Event, events.Filter](listing.CollectionEvents, eventHook, events.Schema, events.FilterFromState),
		live.NewView[models.Alert, alerts.Filter](listing.CollectionAlerts, alertHook, alerts.Schema, alerts.FilterFromState),
		live.NewView[models.Store, stores.Filter](listing.CollectionStores, storeHook, stores.Schema, stores.FilterFromState),
		live.NewView[models.Member, organizations.TeamFilter]("team", teamHook, organizations.TeamSchema, organizations.TeamFilterFromState),
	}
	validateToken := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID()
	}
	liveServer := live.NewServer(hub, views, validateToken, orgRepo, activeOrgs, live.Config{
		Refetch:  cfg.Lists.RefetchInterval(),
		Debounce: cfg.Lists.SearchDebounce(),
	}, cfg.Server.CORSAllowedOrigins, zl)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(zl))

	// Health
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"postgres": "ok", "redis": "ok"}
		healthy := true
		if err := pool.Ping(c.Request.Context()); err != nil {
			status["postgres"] = "unavailable"
			healthy = false
		}
		if !rdb.Healthy(c.Request.Context()) {
			status["redis"] = "unavailable"
			healthy = false
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "data": status})
			return
		}
		response.OK(c, status)
	})

	// Live lists (token in query; browsers cannot set headers on WebSocket upgrades)
	router.GET("/ws/lists", liveServer.ServeWs)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Organization switcher
		api.GET("/me/active-organization", sessionHandler.Get)
		api.PUT("/me/active-organization", sessionHandler.Set)
		api.GET("/organizations", orgHandler.ListMine)
		api.PATCH("/organizations/:id", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), orgHandler.Rename)

		// Team
		api.GET("/organizations/:id/members", middleware.RequireOrgRole(orgRepo), orgHandler.ListMembers)
		api.POST("/organizations/:id/members", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), orgHandler.AddMember)
		api.PATCH("/organizations/:id/members/:userId", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), orgHandler.ChangeRole)
		api.DELETE("/organizations/:id/members/:userId", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), orgHandler.RemoveMember)

		// Store credentials and health checks
		api.GET("/organizations/:id/stores/:storeId/credentials", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), storeHandler.GetCredentials)
		api.PUT("/organizations/:id/stores/:storeId/credentials", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), storeHandler.SaveCredentials)
		api.POST("/organizations/:id/stores/:storeId/health-check", middleware.RequireOrgRole(orgRepo, models.MemberRoleAdmin), storeHandler.HealthCheck)

		// Organization-scoped lists (org_id query param, else the active organization)
		scoped := api.Group("")
		scoped.Use(middleware.OrgScope(orgRepo, activeOrgs))
		{
			scoped.GET("/events", eventHandler.List)
			scoped.GET("/events/:id", eventHandler.Get)
			scoped.POST("/events/export", eventHandler.Export)
			scoped.GET("/alerts", alertHandler.List)
			scoped.POST("/alerts/export", alertHandler.Export)
			scoped.GET("/stores", storeHandler.List)
			scoped.GET("/overview", overviewHandler.Get)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}
