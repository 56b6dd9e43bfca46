package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/server/endpoint"
	"github.com/kbukum/scribe/server/middleware"
)

// Register mounts every route on r.
func Register(r gin.IRouter, h *Handlers, service string, health endpoint.HealthChecker) {
	r.GET("/health", endpoint.Health(service, health))
	r.GET("/version", endpoint.Version())
	r.POST("/authorization", h.Register)

	authed := r.Group("/")
	authed.Use(middleware.Auth(h.accounts, h.fail))
	authed.POST("/task", h.Submit)
	authed.GET("/status", h.List)
	authed.GET("/status/recognitions", h.Status)
	authed.GET("/status/:task_id", h.Status)
	authed.GET("/download", h.Download)
}
