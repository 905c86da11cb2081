package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bubblecast/internal/automation"
	"bubblecast/internal/models"
	"bubblecast/internal/notify"
	"bubblecast/internal/storage"
	"bubblecast/internal/workflow"
)

type Server struct {
	port         int
	db           *models.DB
	drive        *storage.DriveService
	orchestrator *workflow.Orchestrator
	engine       *automation.Engine
	queue        *notify.EmailQueue
	logger       *logrus.Logger
}

func (s *Server) GetDB() *models.DB {
	return s.db
}

func (s *Server) GetOrchestrator() *workflow.Orchestrator {
	return s.orchestrator
}

func (s *Server) GetEngine() *automation.Engine {
	return s.engine
}

func (s *Server) GetDrive() *storage.DriveService {
	return s.drive
}

func (s *Server) GetLogger() *logrus.Logger {
	return s.logger
}

func NewServer() *http.Server {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	db, err := models.NewDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if os.Getenv("SKIP_MIGRATIONS") != "true" {
		if err := models.NewMigrateAdapter(db.DB).RunMigrations(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:3000"
	}

	drive, err := storage.NewDriveService()
	if err != nil {
		logger.WithError(err).Warn("storage not configured, folder provisioning disabled")
		drive = nil
	}

	engine := automation.NewEngine(db, appURL, logger)
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		engine.RegisterExecutor(models.ActionSlackNotification, automation.NewSlackExecutor(token, logger))
	} else {
		logger.Warn("SLACK_BOT_TOKEN not set, slack actions will fail until configured")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	queue := notify.NewEmailQueue(redisClient, notify.EmailQueueConfig{}, logger)

	mailer, err := notify.NewSMTPMailer(logger)
	if err != nil {
		logger.WithError(err).Warn("SMTP not configured, queued emails will not be delivered")
	} else {
		queue.Start(context.Background(), mailer)
	}

	var orchestratorDrive workflow.Drive
	if drive != nil {
		orchestratorDrive = drive
	}
	orchestrator := workflow.NewOrchestrator(db, orchestratorDrive, queue, engine, logger, appURL)

	NewServer := &Server{
		port:         port,
		db:           db,
		drive:        drive,
		orchestrator: orchestrator,
		engine:       engine,
		queue:        queue,
		logger:       logger,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
