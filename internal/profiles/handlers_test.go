package profiles

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/storage/sqlite"
	"github.com/chattwins/chattwins/internal/utils"
	"github.com/gin-gonic/gin"
)

const secret = "test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Db.Close() })
	if err := conn.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := gin.New()
	api := r.Group("/api")
	api.Use(auth.JWTMiddleware(secret))
	Register(api, conn.Db)
	return r, conn.Db
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	now := utils.FormatTime(time.Now())
	if _, err := db.Exec(`INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		id, id+"@example.com", "x", now); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO profiles (id, created_at) VALUES ($1, $2)`, id, now); err != nil {
		t.Fatal(err)
	}
}

func do(t *testing.T, r *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := auth.NewToken(secret, userID, userID+"@example.com", 60)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateAndFetch(t *testing.T) {
	r, db := newTestRouter(t)
	seedUser(t, db, "alice")

	w := do(t, r, http.MethodPut, "/api/profiles/me", "alice", gin.H{
		"username": "alice26", "full_name": "Alice", "age": 26,
		"country": "NO", "gender": "female", "bio": "hi there",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	var p Profile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Username != "alice26" || p.Age != 26 || p.Gender != "female" {
		t.Fatalf("updated profile = %+v", p)
	}

	w = do(t, r, http.MethodGet, "/api/profiles/by-username/alice26", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("by-username: %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ID != "alice" {
		t.Fatalf("by-username = %+v", p)
	}

	if w := do(t, r, http.MethodGet, "/api/profiles/ghost", "alice", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing profile: %d", w.Code)
	}
}

func TestUpdateValidation(t *testing.T) {
	r, db := newTestRouter(t)
	seedUser(t, db, "alice")

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing username", gin.H{"full_name": "Alice"}},
		{"underage", gin.H{"username": "a", "age": 17}},
		{"over limit", gin.H{"username": "a", "age": 101}},
		{"bad gender", gin.H{"username": "a", "gender": "robot"}},
	}
	for _, tc := range cases {
		if w := do(t, r, http.MethodPut, "/api/profiles/me", "alice", tc.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: code=%d", tc.name, w.Code)
		}
	}
}

func TestUsernameUniqueness(t *testing.T) {
	r, db := newTestRouter(t)
	seedUser(t, db, "alice")
	seedUser(t, db, "bob")

	do(t, r, http.MethodPut, "/api/profiles/me", "alice", gin.H{"username": "taken"})
	if w := do(t, r, http.MethodPut, "/api/profiles/me", "bob", gin.H{"username": "taken"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate username: %d", w.Code)
	}
	// Re-saving your own username is fine.
	if w := do(t, r, http.MethodPut, "/api/profiles/me", "alice", gin.H{"username": "taken", "bio": "new"}); w.Code != http.StatusOK {
		t.Fatalf("own username resave: %d %s", w.Code, w.Body.String())
	}
}

func TestLookupByIDs(t *testing.T) {
	r, db := newTestRouter(t)
	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	seedUser(t, db, "carol")

	w := do(t, r, http.MethodPost, "/api/profiles/lookup", "alice",
		gin.H{"ids": []string{"bob", "carol", "nobody"}})
	if w.Code != http.StatusOK {
		t.Fatalf("lookup: %d", w.Code)
	}
	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Profiles) != 2 {
		t.Fatalf("profiles = %+v", out.Profiles)
	}
}
