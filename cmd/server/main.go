package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/streetwatch/patrol-log/internal/config"
	"github.com/streetwatch/patrol-log/internal/database"
	"github.com/streetwatch/patrol-log/internal/handler"
	"github.com/streetwatch/patrol-log/internal/queue"
	"github.com/streetwatch/patrol-log/internal/realtime"
	"github.com/streetwatch/patrol-log/internal/repository"
	"github.com/streetwatch/patrol-log/internal/router"
	"github.com/streetwatch/patrol-log/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	patrols := repository.NewPatrolRepo(db)

	svc := service.NewPatrolService(patrols, queue.NewPublisher())

	// The change feed: mutations publish to RabbitMQ, the consumer fans
	// them out to that owner's websocket subscribers.
	hub := realtime.NewHub()
	go queue.StartPatrolConsumer(func(ev queue.PatrolChangedEvent) {
		hub.Notify(ev.OwnerID, ev)
	})

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPatrols(e, handler.NewPatrolHandler(svc, hub), handler.NewReportHandler(svc), cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
