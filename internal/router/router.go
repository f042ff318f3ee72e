// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/salasapp/reserva-salas/internal/config"
	"github.com/salasapp/reserva-salas/internal/handler"
	"github.com/salasapp/reserva-salas/internal/middleware"
)

// Register mounts every route of the API.
//
//	GET  /healthz                              liveness probe
//	POST /v1/auth/google                       bridge-only identity resolution
//	POST /v1/auth/refresh                      rotate a refresh token
//	POST /v1/auth/logout                       revoke one or all sessions
//	GET  /v1/me                                authenticated profile
//	GET  /v1/reservations                      list own reservations
//	POST /v1/reservations                      book a room
//	PATCH  /v1/reservations/:id                partial update
//	DELETE /v1/reservations/:id                cancel
//	GET  /v1/rooms/:room/availability?date=    free slots for a day
//
// The rate limiter covers everything; the response cache covers only the
// availability lookup, the one read-heavy endpoint whose answer may be a
// few seconds stale.
func Register(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, r *handler.ReservationHandler, rdb *redis.Client) {
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	e.GET("/healthz", handler.Health)

	auth := e.Group("/v1/auth")
	auth.POST("/google", a.GoogleLogin, middleware.RequireAPIKey(cfg.BridgeKeyHash))
	auth.POST("/refresh", a.Refresh)
	// Logout validates its own credentials (refresh token or bearer) so
	// clients with an expired access token can still end their session.
	auth.POST("/logout", a.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.GET("/me", a.Me)
	v1.GET("/reservations", r.List)
	v1.POST("/reservations", r.Create)
	v1.PATCH("/reservations/:id", r.Update)
	v1.DELETE("/reservations/:id", r.Delete)
	v1.GET("/rooms/:room/availability", r.Availability,
		middleware.NewResponseCache(config.LoadCacheConfig(), rdb))
}
