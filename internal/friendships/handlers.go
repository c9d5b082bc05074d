package friendships

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/chattwins/chattwins/internal/hub"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

type Service struct {
	DB  *sql.DB
	Hub *hub.Hub
}

type Friendship struct {
	ID          string `json:"id"`
	RequesterID string `json:"requester_id"`
	FriendID    string `json:"friend_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type createReq struct {
	FriendID string `json:"friend_id" binding:"required"`
}

func Register(rg *gin.RouterGroup, db *sql.DB, h *hub.Hub) {
	s := Service{DB: db, Hub: h}
	rg.GET("/friendships", s.listMine)
	rg.GET("/friendships/pending", s.listPending)
	rg.POST("/friendships", s.create)
	rg.POST("/friendships/:requesterId/accept", s.accept)
	rg.DELETE("/friendships/:otherId", s.remove)
}

const selectCols = `SELECT id, requester_id, friend_id, status, created_at FROM friendships`

func (s Service) pair(a, b string) (Friendship, error) {
	row := s.DB.QueryRow(selectCols+` WHERE (requester_id=$1 AND friend_id=$2) OR (requester_id=$3 AND friend_id=$4)`,
		a, b, b, a)
	var f Friendship
	err := row.Scan(&f.ID, &f.RequesterID, &f.FriendID, &f.Status, &f.CreatedAt)
	return f, err
}

func (s Service) listMine(c *gin.Context) {
	uid := auth.MustUserID(c)
	rows, err := s.DB.Query(selectCols+` WHERE requester_id=$1 OR friend_id=$2 ORDER BY created_at`, uid, uid)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Friendship{}
	for rows.Next() {
		var f Friendship
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.FriendID, &f.Status, &f.CreatedAt); err != nil {
			continue
		}
		list = append(list, f)
	}
	httpx.OK(c, gin.H{"friendships": list})
}

func (s Service) listPending(c *gin.Context) {
	uid := auth.MustUserID(c)
	rows, err := s.DB.Query(selectCols+` WHERE friend_id=$1 AND status=$2 ORDER BY created_at`, uid, StatusPending)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Friendship{}
	for rows.Next() {
		var f Friendship
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.FriendID, &f.Status, &f.CreatedAt); err != nil {
			continue
		}
		list = append(list, f)
	}
	httpx.OK(c, gin.H{"friendships": list})
}

func (s Service) create(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.FriendID == uid {
		httpx.Err(c, http.StatusBadRequest, "cannot friend yourself")
		return
	}

	if _, err := s.pair(uid, req.FriendID); err == nil {
		httpx.Err(c, http.StatusConflict, "friendship already exists")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}

	f := Friendship{
		ID:          uuid.NewString(),
		RequesterID: uid,
		FriendID:    req.FriendID,
		Status:      StatusPending,
		CreatedAt:   utils.FormatTime(time.Now()),
	}
	_, err := s.DB.Exec(`INSERT INTO friendships (id, requester_id, friend_id, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.RequesterID, f.FriendID, f.Status, f.CreatedAt)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "insert failed")
		return
	}

	s.Hub.Broadcast("friendships", hub.EventInsert, f, nil)
	httpx.Created(c, f)
}

// accept flips a pending request addressed to the caller. Only the recipient
// can accept, and accepted is the terminal status.
func (s Service) accept(c *gin.Context) {
	uid := auth.MustUserID(c)
	requester := c.Param("requesterId")

	old, err := s.pair(requester, uid)
	if err != nil || old.RequesterID != requester || old.FriendID != uid || old.Status != StatusPending {
		httpx.Err(c, http.StatusNotFound, "no pending request")
		return
	}

	_, err = s.DB.Exec(`UPDATE friendships SET status=$1 WHERE requester_id=$2 AND friend_id=$3`,
		StatusAccepted, requester, uid)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "update failed")
		return
	}

	updated := old
	updated.Status = StatusAccepted
	s.Hub.Broadcast("friendships", hub.EventUpdate, updated, old)
	httpx.OK(c, updated)
}

// remove deletes the pair row in either direction: decline an incoming
// request, cancel an outgoing one, or unfriend.
func (s Service) remove(c *gin.Context) {
	uid := auth.MustUserID(c)
	other := c.Param("otherId")

	old, err := s.pair(uid, other)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Err(c, http.StatusNotFound, "no friendship")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "db error")
		}
		return
	}

	_, err = s.DB.Exec(`DELETE FROM friendships WHERE id=$1`, old.ID)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "delete failed")
		return
	}

	s.Hub.Broadcast("friendships", hub.EventDelete, nil, old)
	httpx.OK(c, gin.H{"ok": true})
}
