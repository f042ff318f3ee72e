package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/salasapp/reserva-salas/internal/config"
	"github.com/salasapp/reserva-salas/internal/database"
	"github.com/salasapp/reserva-salas/internal/handler"
	"github.com/salasapp/reserva-salas/internal/queue"
	"github.com/salasapp/reserva-salas/internal/repository"
	"github.com/salasapp/reserva-salas/internal/router"
	"github.com/salasapp/reserva-salas/internal/service"
)

func main() {
	// .env is a local-dev convenience; in prod the variables come from
	// the environment and the file is simply absent.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	reservations := repository.NewReservationRepo(db)

	svc := service.NewReservationService(reservations)
	authH := handler.NewAuthHandler(cfg, users, tokens)
	resH := handler.NewReservationHandler(svc, queue.PublishReservationEvent)

	// The audit consumer runs in-process; it reconnects on broker loss
	// and never brings the API down with it.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, "X-Api-Key"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE},
	}))

	router.Register(e, cfg, authH, resH, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
