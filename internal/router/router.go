// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/streetwatch/patrol-log/internal/config"
	"github.com/streetwatch/patrol-log/internal/handler"
	"github.com/streetwatch/patrol-log/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints. Register, login, refresh and
// logout live under /v1/auth and need no session; the identity endpoints
// require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("VOLUNTEER", "COORDINATOR"))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout-all", a.LogoutAll)
}

// RegisterPatrols registers the patrol session and reporting endpoints.
// Everything here requires a valid access token; both roles may record,
// ownership is enforced per row in the service layer. The read-heavy
// history and report routes additionally go through the Redis response
// cache, and the whole group is rate limited.
func RegisterPatrols(e *echo.Echo, p *handler.PatrolHandler, r *handler.ReportHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("VOLUNTEER", "COORDINATOR"))
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cached := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	g.POST("/patrols", p.Start)
	g.GET("/patrols", p.List, cached)
	g.GET("/patrols/active", p.Active)
	g.GET("/patrols/watch", p.Watch)
	g.GET("/patrols/:id", p.Get)
	g.PUT("/patrols/:id", p.UpdateDetails)
	g.PATCH("/patrols/:id/statistics", p.IncrementStatistic)
	g.POST("/patrols/:id/contacts", p.AddContact)
	g.PUT("/patrols/:id/notes", p.SaveNotes)
	g.POST("/patrols/:id/close", p.Close)

	g.GET("/reports", r.Summary, cached)
	g.GET("/reports/export", r.Export, cached)
}
