package profiles

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Service struct {
	DB *sql.DB
}

type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Age       int    `json:"age"`
	Country   string `json:"country"`
	Gender    string `json:"gender"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
	CreatedAt string `json:"created_at"`
}

type updateReq struct {
	Username  string `json:"username" binding:"required"`
	FullName  string `json:"full_name"`
	Age       int    `json:"age" binding:"omitempty,min=18,max=100"`
	Country   string `json:"country"`
	Gender    string `json:"gender" binding:"omitempty,oneof=male female other"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

type lookupReq struct {
	IDs []string `json:"ids" binding:"required"`
}

func Register(rg *gin.RouterGroup, db *sql.DB) {
	s := Service{DB: db}
	rg.GET("/profiles", s.list)
	rg.GET("/profiles/:id", s.getByID)
	rg.GET("/profiles/by-username/:username", s.getByUsername)
	rg.POST("/profiles/lookup", s.lookup)
	rg.PUT("/profiles/me", s.updateMine)
}

const selectCols = `SELECT id, COALESCE(username,''), COALESCE(full_name,''), COALESCE(age,0),
	COALESCE(country,''), COALESCE(gender,''), COALESCE(bio,''), COALESCE(avatar_url,''), created_at
	FROM profiles`

func scanProfile(row interface{ Scan(...any) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.Age, &p.Country, &p.Gender, &p.Bio, &p.AvatarURL, &p.CreatedAt)
	return p, err
}

func (s Service) list(c *gin.Context) {
	rows, err := s.DB.Query(selectCols + ` ORDER BY created_at`)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			continue
		}
		list = append(list, p)
	}
	httpx.OK(c, gin.H{"profiles": list})
}

func (s Service) getByID(c *gin.Context) {
	p, err := scanProfile(s.DB.QueryRow(selectCols+` WHERE id=$1`, c.Param("id")))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Err(c, http.StatusNotFound, "profile not found")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "db error")
		}
		return
	}
	httpx.OK(c, p)
}

func (s Service) getByUsername(c *gin.Context) {
	p, err := scanProfile(s.DB.QueryRow(selectCols+` WHERE username=$1`, c.Param("username")))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Err(c, http.StatusNotFound, "profile not found")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "db error")
		}
		return
	}
	httpx.OK(c, p)
}

func (s Service) lookup(c *gin.Context) {
	var req lookupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		httpx.OK(c, gin.H{"profiles": []Profile{}})
		return
	}

	placeholders := make([]string, len(req.IDs))
	args := make([]any, len(req.IDs))
	for i, id := range req.IDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := selectCols + ` WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	list := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			continue
		}
		list = append(list, p)
	}
	httpx.OK(c, gin.H{"profiles": list})
}

func (s Service) updateMine(c *gin.Context) {
	uid := auth.MustUserID(c)

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	// Username must stay unique across other profiles.
	var taken int
	_ = s.DB.QueryRow(`SELECT COUNT(1) FROM profiles WHERE username=$1 AND id<>$2`, req.Username, uid).Scan(&taken)
	if taken > 0 {
		httpx.Err(c, http.StatusConflict, "username already taken")
		return
	}

	_, err := s.DB.Exec(`UPDATE profiles SET username=$1, full_name=$2, age=$3, country=$4, gender=$5, bio=$6, avatar_url=$7 WHERE id=$8`,
		req.Username, req.FullName, req.Age, req.Country, req.Gender, req.Bio, req.AvatarURL, uid)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "update failed")
		return
	}

	p, err := scanProfile(s.DB.QueryRow(selectCols+` WHERE id=$1`, uid))
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	httpx.OK(c, p)
}
