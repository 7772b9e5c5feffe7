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

	"github.com/gin-gonic/gin"

	"github.com/creatorly/publisher/internal/adapt"
	"github.com/creatorly/publisher/internal/config"
	"github.com/creatorly/publisher/internal/connector"
	"github.com/creatorly/publisher/internal/connector/platforms"
	"github.com/creatorly/publisher/internal/dispatch"
	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"github.com/creatorly/publisher/internal/queue"
	"github.com/creatorly/publisher/internal/storage/postgres"
	"github.com/creatorly/publisher/middleware"
)

func main() {
	log.Println("Starting publisher...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := postgres.ConnectDB(ctx, nil)
	if err != nil {
		log.Fatal("Connection failed: ", err)
	}
	if err := postgres.MigrateModels(db,
		&models.Content{}, &models.PublishedPost{}, &models.ConnectorCredential{},
	); err != nil {
		log.Fatal("Migration failed: ", err)
	}

	contents := postgres.NewContentRepository(db)
	posts := postgres.NewPostRepository(db)
	creds := postgres.NewCredentialRepository(db)

	registry := connector.NewRegistry()
	registry.Register("instagram", func() connector.Social {
		return platforms.NewInstagram(platforms.Options{BaseURL: cfg.InstagramBaseURL})
	})
	registry.Register("tiktok", func() connector.Social {
		return platforms.NewTikTok(platforms.Options{BaseURL: cfg.TikTokBaseURL})
	})
	registry.Register("twitter", func() connector.Social {
		return platforms.NewTwitter(platforms.Options{BaseURL: cfg.TwitterBaseURL})
	})

	q := queue.New(
		queue.WithMaxConcurrent(cfg.MaxJobs),
		queue.WithTickInterval(cfg.TickInterval),
		queue.WithBackoffBase(cfg.BackoffBase),
	)
	q.RegisterHandler(queue.TypePostContent, dispatch.NewPostContentHandler(registry, posts))
	q.RegisterHandler(queue.TypeFetchMetrics, dispatch.NewFetchMetricsHandler(registry, nil))
	q.Start(ctx)
	defer q.Stop()

	service := publishing.NewService(contents, posts, creds, adapt.Ruleset{}, q, registry,
		publishing.WithBatchPause(cfg.BatchPause))

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.ErrorHandler())
	publishing.NewHandler(service, q).RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		log.Printf("API listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Server shutdown: ", err)
	}

	log.Println("Shutdown complete.")
}
