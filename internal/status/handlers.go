package status

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/chattwins/chattwins/internal/hub"
	"github.com/chattwins/chattwins/internal/metrics"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
)

type Service struct {
	DB  *sql.DB
	Hub *hub.Hub
}

// Record mirrors a user_status row. IsOnline is a pointer because older rows
// may predate the column; readers treat nil as "no explicit signal" and fall
// back to the recency window alone.
type Record struct {
	UserID     string `json:"user_id"`
	IsOnline   *bool  `json:"is_online"`
	LastSeenAt string `json:"last_seen_at"`
}

type heartbeatReq struct {
	IsOnline *bool `json:"is_online" binding:"required"`
}

type lookupReq struct {
	IDs []string `json:"ids" binding:"required"`
}

func Register(rg *gin.RouterGroup, db *sql.DB, h *hub.Hub) {
	s := Service{DB: db, Hub: h}
	rg.PUT("/status/heartbeat", s.heartbeat)
	rg.POST("/status/lookup", s.lookup)
}

func (s Service) heartbeat(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req heartbeatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	rec := Record{
		UserID:     uid,
		IsOnline:   req.IsOnline,
		LastSeenAt: utils.FormatTime(time.Now()),
	}
	_, err := s.DB.Exec(`INSERT INTO user_status (user_id, is_online, last_seen_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET is_online=excluded.is_online, last_seen_at=excluded.last_seen_at`,
		rec.UserID, *req.IsOnline, rec.LastSeenAt)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "heartbeat failed")
		return
	}
	metrics.HeartbeatsWritten.Inc()

	s.Hub.Broadcast("user_status", hub.EventUpdate, rec, nil)
	httpx.OK(c, rec)
}

func (s Service) lookup(c *gin.Context) {
	var req lookupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		httpx.OK(c, gin.H{"statuses": []Record{}})
		return
	}

	placeholders := make([]string, len(req.IDs))
	args := make([]any, len(req.IDs))
	for i, id := range req.IDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := s.DB.Query(`SELECT user_id, is_online, last_seen_at FROM user_status WHERE user_id IN (`+
		strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Record{}
	for rows.Next() {
		var rec Record
		var online sql.NullBool
		if err := rows.Scan(&rec.UserID, &online, &rec.LastSeenAt); err != nil {
			continue
		}
		if online.Valid {
			rec.IsOnline = &online.Bool
		}
		list = append(list, rec)
	}
	httpx.OK(c, gin.H{"statuses": list})
}
