package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jn-uniformes/taller-api/internal/middleware"
	"github.com/jn-uniformes/taller-api/internal/service"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Repositions   *RepositionHandler
	Transfers     *TransferHandler
	Timers        *TimerHandler
	Notifications *NotificationHandler
	Documents     *DocumentHandler
}

// RegisterRoutes mounts the API surface under the given group. Everything
// except login and signed downloads sits behind the JWT middleware.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, authService *service.AuthService) {
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/documents/download", h.Documents.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	authed.GET("/auth/me", h.Auth.Me)

	authed.POST("/repositions", h.Repositions.Create)
	authed.GET("/repositions", h.Repositions.List)
	authed.GET("/repositions/:id", h.Repositions.Get)
	authed.PUT("/repositions/:id", h.Repositions.Edit)
	authed.DELETE("/repositions/:id", middleware.RequireTerminalAuthority(), h.Repositions.Delete)
	authed.POST("/repositions/:id/approval", middleware.RequireApprovers(), h.Repositions.Approve)
	authed.POST("/repositions/:id/complete", h.Repositions.Complete)
	authed.POST("/repositions/:id/cancel", middleware.RequireTerminalAuthority(), h.Repositions.Cancel)
	authed.GET("/repositions/:id/tracking", h.Repositions.Tracking)
	authed.GET("/repositions/:id/tracking/export", h.Repositions.Export)
	authed.GET("/repositions/:id/history", h.Repositions.History)

	authed.POST("/repositions/:id/transfers", h.Transfers.Request)
	authed.GET("/repositions/:id/transfers", h.Transfers.List)
	authed.GET("/repositions/:id/transfers/cooldown", h.Transfers.Cooldown)
	authed.POST("/transfers/:id/process", h.Transfers.Process)

	authed.POST("/repositions/:id/timer/start", h.Timers.Start)
	authed.POST("/repositions/:id/timer/stop", h.Timers.Stop)
	authed.POST("/repositions/:id/timer/manual", h.Timers.SetManual)
	authed.GET("/repositions/:id/timer", h.Timers.Get)
	authed.GET("/repositions/:id/timers", h.Timers.List)

	authed.POST("/repositions/:id/documents", h.Documents.Upload)
	authed.GET("/repositions/:id/documents", h.Documents.List)
	authed.GET("/documents/:id/link", h.Documents.SignedLink)

	authed.GET("/notifications", h.Notifications.List)
	authed.GET("/notifications/unread-count", h.Notifications.UnreadCount)
	authed.POST("/notifications/:id/read", h.Notifications.MarkRead)
	authed.POST("/notifications/read-all", h.Notifications.MarkAllRead)
}
