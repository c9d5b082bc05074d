package server

import (
	"database/sql"
	"net/http"

	"github.com/chattwins/chattwins/internal/accounts"
	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/config"
	"github.com/chattwins/chattwins/internal/friendships"
	"github.com/chattwins/chattwins/internal/hub"
	"github.com/chattwins/chattwins/internal/mailer"
	"github.com/chattwins/chattwins/internal/messages"
	"github.com/chattwins/chattwins/internal/profiles"
	"github.com/chattwins/chattwins/internal/reports"
	"github.com/chattwins/chattwins/internal/status"
	"github.com/chattwins/chattwins/internal/uploads"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New assembles the gin engine with every feature mounted under /api.
func New(cfg config.Config, db *sql.DB, h *hub.Hub, bucket uploads.Bucket, m *mailer.Mailer) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Disk-backed objects are served straight off the filesystem; minio
	// objects are reachable through the store's own public URL.
	if d, ok := bucket.(*uploads.Disk); ok {
		r.Static("/files", d.Root())
	}

	api := r.Group("/api")
	accounts.RegisterPublic(api, db, cfg, m)

	authed := api.Group("/")
	authed.Use(auth.JWTMiddleware(cfg.JWTSecret))
	accounts.RegisterAuthed(authed, db, cfg)
	profiles.Register(authed, db)
	messages.Register(authed, db, h)
	friendships.Register(authed, db, h)
	status.Register(authed, db, h)
	reports.Register(authed, db)
	uploads.Register(authed, bucket)

	hub.RegisterWS(api, h, cfg.JWTSecret)

	return r
}
