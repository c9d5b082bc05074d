package reports

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	DB *sql.DB
}

type Report struct {
	ID         string `json:"id"`
	ReporterID string `json:"reporter_id"`
	ReportedID string `json:"reported_id"`
	Issue      string `json:"issue"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type createReq struct {
	ReportedID string `json:"reported_id" binding:"required"`
	Issue      string `json:"issue" binding:"required,max=120"`
	Details    string `json:"details" binding:"omitempty,max=2000"`
}

func Register(rg *gin.RouterGroup, db *sql.DB) {
	s := Service{DB: db}
	rg.POST("/reports", s.create)
}

func (s Service) create(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ValidationErr(verr)})
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.ReportedID == uid {
		httpx.Err(c, http.StatusBadRequest, "cannot report yourself")
		return
	}

	rep := Report{
		ID:         uuid.NewString(),
		ReporterID: uid,
		ReportedID: req.ReportedID,
		Issue:      req.Issue,
		Details:    req.Details,
		CreatedAt:  utils.FormatTime(time.Now()),
	}
	_, err := s.DB.Exec(`INSERT INTO reports (id, reporter_id, reported_id, issue, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rep.ID, rep.ReporterID, rep.ReportedID, rep.Issue, rep.Details, rep.CreatedAt)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "could not file report")
		return
	}
	httpx.Created(c, rep)
}
