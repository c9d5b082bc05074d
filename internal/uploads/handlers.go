package uploads

import (
	"net/http"
	"strings"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/httpx"
	"github.com/gin-gonic/gin"
)

// Logical buckets the client may write to. Each maps to a key prefix inside
// the single backing store, and every key's first path segment under the
// bucket must be the caller's own user id.
var allowedBuckets = map[string]bool{
	"messages":       true,
	"avatars":        true,
	"profile-photos": true,
}

const maxUploadBytes = 10 << 20 // 10 MiB

type Service struct {
	Bucket Bucket
}

type removeReq struct {
	Paths []string `json:"paths" binding:"required"`
}

func Register(rg *gin.RouterGroup, b Bucket) {
	s := Service{Bucket: b}
	rg.POST("/storage/:bucket", s.upload)
	rg.GET("/storage/:bucket/list", s.list)
	rg.DELETE("/storage/:bucket", s.remove)
}

// checkPath validates a bucket-relative path and returns the full object key.
func checkPath(c *gin.Context, uid, rel string) (string, bool) {
	bucket := c.Param("bucket")
	if !allowedBuckets[bucket] {
		httpx.Err(c, http.StatusNotFound, "unknown bucket")
		return "", false
	}
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") {
		httpx.Err(c, http.StatusBadRequest, "invalid path")
		return "", false
	}
	if rel != uid && !strings.HasPrefix(rel, uid+"/") {
		httpx.Err(c, http.StatusForbidden, "path must be under your own folder")
		return "", false
	}
	return bucket + "/" + rel, true
}

func (s Service) upload(c *gin.Context) {
	uid := auth.MustUserID(c)
	if c.Request.ContentLength > maxUploadBytes {
		httpx.Err(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "missing file")
		return
	}
	key, ok := checkPath(c, uid, c.PostForm("path"))
	if !ok {
		return
	}
	f, err := fh.Open()
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "unreadable file")
		return
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	if err := s.Bucket.Put(c.Request.Context(), key, ct, f, fh.Size); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "upload failed")
		return
	}
	httpx.Created(c, gin.H{"path": key, "public_url": s.Bucket.PublicURL(key)})
}

func (s Service) list(c *gin.Context) {
	uid := auth.MustUserID(c)
	key, ok := checkPath(c, uid, c.Query("prefix"))
	if !ok {
		return
	}
	keys, err := s.Bucket.List(c.Request.Context(), key)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "list failed")
		return
	}
	httpx.OK(c, gin.H{"paths": keys})
}

func (s Service) remove(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req removeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	for _, p := range req.Paths {
		key, ok := checkPath(c, uid, p)
		if !ok {
			return
		}
		if err := s.Bucket.Remove(c.Request.Context(), key); err != nil {
			httpx.Err(c, http.StatusInternalServerError, "remove failed")
			return
		}
	}
	httpx.OK(c, gin.H{"removed": len(req.Paths)})
}
