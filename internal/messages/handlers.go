package messages

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/chattwins/chattwins/internal/hub"
	"github.com/chattwins/chattwins/internal/metrics"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// recentWindow bounds the either-direction scan used for unread badges. A
// partner whose latest message is older than the newest 500 drops out of the
// badge count; that bound keeps the query cheap.
const recentWindow = 500

type Service struct {
	DB  *sql.DB
	Hub *hub.Hub
}

type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	CreatedAt  string `json:"created_at"`
}

type sendReq struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
}

func Register(rg *gin.RouterGroup, db *sql.DB, h *hub.Hub) {
	s := Service{DB: db, Hub: h}
	rg.POST("/messages", s.send)
	rg.GET("/messages/with/:partnerId", s.conversation)
	rg.GET("/messages/recent", s.recent)
}

func (s Service) send(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		httpx.Err(c, http.StatusBadRequest, "message needs text or an image")
		return
	}
	if req.ReceiverID == uid {
		httpx.Err(c, http.StatusBadRequest, "cannot message yourself")
		return
	}

	var n int
	_ = s.DB.QueryRow(`SELECT COUNT(1) FROM profiles WHERE id=$1`, req.ReceiverID).Scan(&n)
	if n == 0 {
		httpx.Err(c, http.StatusNotFound, "receiver not found")
		return
	}

	msg := Message{
		ID:         uuid.NewString(),
		SenderID:   uid,
		ReceiverID: req.ReceiverID,
		Content:    content,
		ImageURL:   req.ImageURL,
		CreatedAt:  utils.FormatTime(time.Now()),
	}

	_, err := s.DB.Exec(`INSERT INTO messages (id, sender_id, receiver_id, content, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.ImageURL, msg.CreatedAt)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "insert failed")
		return
	}
	metrics.MessagesInserted.Inc()

	s.Hub.Broadcast("messages", hub.EventInsert, msg, nil)

	httpx.Created(c, msg)
}

func (s Service) conversation(c *gin.Context) {
	uid := auth.MustUserID(c)
	partner := c.Param("partnerId")

	rows, err := s.DB.Query(`
		SELECT id, sender_id, receiver_id, COALESCE(content,''), COALESCE(image_url,''), created_at
		FROM messages
		WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$3 AND receiver_id=$4)
		ORDER BY created_at ASC`, uid, partner, partner, uid)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ImageURL, &m.CreatedAt); err != nil {
			continue
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	httpx.OK(c, gin.H{"messages": list})
}

func (s Service) recent(c *gin.Context) {
	uid := auth.MustUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(recentWindow)))
	if limit <= 0 || limit > recentWindow {
		limit = recentWindow
	}

	rows, err := s.DB.Query(`
		SELECT id, sender_id, receiver_id, COALESCE(content,''), COALESCE(image_url,''), created_at
		FROM messages
		WHERE sender_id=$1 OR receiver_id=$2
		ORDER BY created_at DESC LIMIT $3`, uid, uid, limit)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ImageURL, &m.CreatedAt); err != nil {
			continue
		}
		list = append(list, m)
	}
	httpx.OK(c, gin.H{"messages": list})
}
