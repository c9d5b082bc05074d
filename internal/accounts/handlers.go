package accounts

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/config"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/chattwins/chattwins/internal/mailer"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	DB        *sql.DB
	JWTSecret string
	JWTTTLMin int
	Mailer    *mailer.Mailer
}

type signupReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func RegisterPublic(rg *gin.RouterGroup, db *sql.DB, cfg config.Config, m *mailer.Mailer) {
	s := Service{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		JWTTTLMin: cfg.JWTTTLMin,
		Mailer:    m,
	}

	rg.POST("/auth/signup", s.signup)
	rg.POST("/auth/login", s.login)
}

func RegisterAuthed(rg *gin.RouterGroup, db *sql.DB, cfg config.Config) {
	s := Service{DB: db, JWTSecret: cfg.JWTSecret, JWTTTLMin: cfg.JWTTTLMin}

	rg.POST("/auth/logout", s.logout)
	rg.GET("/auth/session", s.session)
}

func (s Service) signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	var count int
	_ = s.DB.QueryRow(`SELECT COUNT(1) FROM accounts WHERE email=$1`, req.Email).Scan(&count)
	if count > 0 {
		httpx.Err(c, http.StatusConflict, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "hash failed")
		return
	}

	uid := uuid.NewString()
	now := utils.FormatTime(time.Now())

	tx, err := s.DB.Begin()
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db transaction failed")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		uid, req.Email, hash, now); err != nil {
		httpx.Err(c, http.StatusBadRequest, "create account failed")
		return
	}
	// Profile row exists from signup so messages and friendships can
	// reference it before the user fills anything in.
	if _, err := tx.Exec(`INSERT INTO profiles (id, created_at) VALUES ($1, $2)`, uid, now); err != nil {
		httpx.Err(c, http.StatusBadRequest, "create profile failed")
		return
	}
	if err := tx.Commit(); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "commit failed")
		return
	}

	if err := s.Mailer.SendWelcome(req.Email); err != nil {
		slog.Warn("welcome email failed", "email", req.Email, "err", err)
	}

	tok, err := auth.NewToken(s.JWTSecret, uid, req.Email, s.JWTTTLMin)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "token generation failed")
		return
	}

	httpx.Created(c, gin.H{"token": tok, "user_id": uid})
}

func (s Service) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	row := s.DB.QueryRow(`SELECT id, password_hash FROM accounts WHERE email=$1`, req.Email)

	var id, hash string
	if err := row.Scan(&id, &hash); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	tok, err := auth.NewToken(s.JWTSecret, id, req.Email, s.JWTTTLMin)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "token generation failed")
		return
	}
	httpx.OK(c, gin.H{"token": tok, "user_id": id})
}

// Tokens are stateless, so logout only exists to give the client a clean
// signal that the session is over; presence teardown rides on a separate
// user_status write.
func (s Service) logout(c *gin.Context) {
	httpx.OK(c, gin.H{"ok": true})
}

func (s Service) session(c *gin.Context) {
	uid := auth.MustUserID(c)
	if uid == "" {
		httpx.Err(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	httpx.OK(c, gin.H{"user_id": uid, "email": auth.SessionEmail(c)})
}
