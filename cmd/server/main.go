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

	"tutoria-backend/internal/changefeed"
	"tutoria-backend/internal/config"
	"tutoria-backend/internal/database"
	"tutoria-backend/internal/handlers"
	"tutoria-backend/internal/middleware"
	"tutoria-backend/internal/repository"
	"tutoria-backend/internal/router"
	"tutoria-backend/internal/services"
	"tutoria-backend/internal/timer"
	"tutoria-backend/internal/websocket"
	"tutoria-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Tutoria Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL, cfg.ArchivalWorkers)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	feed := changefeed.NewPublisher(redisClients.Queue)
	userRepo := repository.NewUserRepo(pool)
	schoolRepo := repository.NewSchoolRepo(pool)
	classRepo := repository.NewClassRepo(pool)
	subjectRepo := repository.NewSubjectRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool, feed)
	timerRepo := repository.NewTimerRecordRepo(pool, feed)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)

	// ──── Step 5: Start Timer Service ────
	notifier := websocket.NewNotifier(redisClients.Queue)
	timerSvc := timer.NewService(timerRepo, sessionRepo, notifier, time.Duration(cfg.TimerWriteTimeoutSec)*time.Second)

	feedCtx, cancelFeed := context.WithCancel(context.Background())
	subscriber := changefeed.NewSubscriber(redisClients.PubSub, changefeed.TableSessions, changefeed.TableTimerRecords)
	go subscriber.Run(feedCtx,
		func(ev changefeed.Event) { timerSvc.HandleFeedEvent(feedCtx, ev) },
		func() {
			if err := timerSvc.Reconcile(feedCtx); err != nil {
				log.Printf("Timer reconcile failed: %v", err)
			}
		},
	)
	go timerSvc.Run()
	log.Println("✓ Timer service started")

	// ──── Step 6: Start Archival Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, timerRepo, cfg.ArchivalWorkers)
	workerPool.Start()
	log.Printf("✓ Archival worker pool started (%d goroutines)", cfg.ArchivalWorkers)

	reminderScheduler := services.NewReminderScheduler(
		sessionRepo, emailService,
		time.Duration(cfg.ReminderLeadMinutes)*time.Minute,
		time.Duration(cfg.ReminderPollMinutes)*time.Minute,
	)
	reminderScheduler.Start()
	log.Println("✓ Reminder scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	schoolHandler := handlers.NewSchoolHandler(schoolRepo, classRepo, subjectRepo)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, timerRepo, timerSvc, redisClients.Queue)
	dashboardHandler := handlers.NewDashboardHandler(pool)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		schoolHandler,
		sessionHandler,
		dashboardHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		timerSvc.Stop()
		cancelFeed()
		workerPool.Stop()
		reminderScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Tutoria Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
