package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"oddsley/internal/config"
	"oddsley/internal/database"
	"oddsley/internal/handlers"
	"oddsley/internal/jobs"
	"oddsley/internal/oddsapi"
	"oddsley/internal/services"
	"oddsley/internal/tasks"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize the odds API client and services
	client := oddsapi.NewClient(cfg.OddsAPI.BaseURL, cfg.OddsAPI.APIKey, logger)
	sportService := services.NewSportService(db, logger)
	eventService := services.NewEventService(db, logger)
	oddsService := services.NewOddsService(db, logger)
	resultService := services.NewResultService(db, logger)

	// Register tasks
	registry := tasks.NewRegistry(logger)
	taskSet := tasks.NewTasks(client, sportService, eventService, oddsService, resultService,
		cfg.Results.SourceTimezone)
	taskSet.RegisterAll(registry)

	// Schedule recurring ingestion jobs
	scheduler := jobs.NewScheduler(registry, logger)
	scheduler.Add("update_sports", tasks.Params{"all": "true"}, cfg.Jobs.SportsInterval)
	if cfg.Jobs.Sport != "" {
		scheduler.Add("update_events", tasks.Params{"sport": cfg.Jobs.Sport}, cfg.Jobs.EventsInterval)
		scheduler.Add("get_odds_snapshot", tasks.Params{
			"sport":   cfg.Jobs.Sport,
			"regions": cfg.Jobs.Regions,
		}, cfg.Jobs.OddsInterval)
	}
	scheduler.Start()
	log.Println("Ingestion scheduler started")

	// Initialize handlers
	sportHandler := handlers.NewSportHandler(db, sportService)
	teamHandler := handlers.NewTeamHandler(db)
	eventHandler := handlers.NewEventHandler(db, eventService, oddsService)
	oddsHandler := handlers.NewOddsHandler(db, oddsService)
	resultHandler := handlers.NewResultHandler(resultService)
	taskHandler := handlers.NewTaskHandler(registry)

	// Set up Gin router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes
	api := router.Group("/api")
	{
		api.GET("/sports", sportHandler.GetSports)
		api.POST("/sports", sportHandler.CreateSport)
		api.GET("/sports/:key", sportHandler.GetSportByKey)

		api.GET("/teams", teamHandler.GetTeams)

		api.GET("/events", eventHandler.GetEvents)
		api.GET("/events/:id", eventHandler.GetEventByID)
		api.GET("/events/:id/odds", eventHandler.GetEventOdds)

		api.GET("/odds", oddsHandler.GetSnapshots)
		api.GET("/odds/:id", oddsHandler.GetSnapshotByID)
		api.DELETE("/odds/:id", oddsHandler.DeleteSnapshot)

		api.GET("/results", resultHandler.GetResults)

		api.GET("/tasks", taskHandler.ListTasks)
		api.POST("/tasks/:name/run", taskHandler.RunTask)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
