package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is a typed HTTP client for the ChatTwins backend API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

func New(base string) *Client {
	return &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SetToken(tok string) { c.token = tok }
func (c *Client) Token() string       { return c.token }

// APIError carries the server's error payload alongside the HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- auth ---

func (c *Client) Signup(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/auth/signup",
		map[string]string{"email": email, "password": password}, &s)
	if err == nil {
		c.token = s.Token
	}
	return s, err
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &s)
	if err == nil {
		c.token = s.Token
	}
	return s, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

// --- profiles ---

func (c *Client) Profile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "/api/profiles/"+id, nil, &p)
	return p, err
}

func (c *Client) ProfileByUsername(ctx context.Context, username string) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "/api/profiles/by-username/"+username, nil, &p)
	return p, err
}

func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	err := c.do(ctx, http.MethodGet, "/api/profiles", nil, &out)
	return out.Profiles, err
}

func (c *Client) ProfilesByID(ctx context.Context, ids []string) ([]Profile, error) {
	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	err := c.do(ctx, http.MethodPost, "/api/profiles/lookup",
		map[string][]string{"ids": ids}, &out)
	return out.Profiles, err
}

type ProfileUpdate struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Age       int    `json:"age,omitempty"`
	Country   string `json:"country"`
	Gender    string `json:"gender,omitempty"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodPut, "/api/profiles/me", upd, &p)
	return p, err
}

// --- messages ---

type SendMessageInput struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, in SendMessageInput) (Message, error) {
	var m Message
	err := c.do(ctx, http.MethodPost, "/api/messages", in, &m)
	return m, err
}

func (c *Client) Conversation(ctx context.Context, partnerID string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, "/api/messages/with/"+partnerID, nil, &out)
	return out.Messages, err
}

// RecentMessages returns the caller's newest messages in either direction,
// newest first.
func (c *Client) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, "/api/messages/recent?limit="+strconv.Itoa(limit), nil, &out)
	return out.Messages, err
}

// --- friendships ---

func (c *Client) Friendships(ctx context.Context) ([]Friendship, error) {
	var out struct {
		Friendships []Friendship `json:"friendships"`
	}
	err := c.do(ctx, http.MethodGet, "/api/friendships", nil, &out)
	return out.Friendships, err
}

func (c *Client) PendingFriendships(ctx context.Context) ([]Friendship, error) {
	var out struct {
		Friendships []Friendship `json:"friendships"`
	}
	err := c.do(ctx, http.MethodGet, "/api/friendships/pending", nil, &out)
	return out.Friendships, err
}

func (c *Client) RequestFriendship(ctx context.Context, friendID string) (Friendship, error) {
	var f Friendship
	err := c.do(ctx, http.MethodPost, "/api/friendships",
		map[string]string{"friend_id": friendID}, &f)
	return f, err
}

func (c *Client) AcceptFriendship(ctx context.Context, requesterID string) (Friendship, error) {
	var f Friendship
	err := c.do(ctx, http.MethodPost, "/api/friendships/"+requesterID+"/accept", nil, &f)
	return f, err
}

func (c *Client) RemoveFriendship(ctx context.Context, otherID string) error {
	return c.do(ctx, http.MethodDelete, "/api/friendships/"+otherID, nil, nil)
}

// --- status ---

func (c *Client) Heartbeat(ctx context.Context, online bool) (StatusRecord, error) {
	var rec StatusRecord
	err := c.do(ctx, http.MethodPut, "/api/status/heartbeat",
		map[string]*bool{"is_online": &online}, &rec)
	return rec, err
}

func (c *Client) Statuses(ctx context.Context, ids []string) ([]StatusRecord, error) {
	var out struct {
		Statuses []StatusRecord `json:"statuses"`
	}
	err := c.do(ctx, http.MethodPost, "/api/status/lookup",
		map[string][]string{"ids": ids}, &out)
	return out.Statuses, err
}

// --- reports ---

func (c *Client) FileReport(ctx context.Context, reportedID, issue, details string) (Report, error) {
	var rep Report
	err := c.do(ctx, http.MethodPost, "/api/reports",
		map[string]string{"reported_id": reportedID, "issue": issue, "details": details}, &rep)
	return rep, err
}

// --- storage ---

// Upload sends a file into a logical bucket and returns its public URL.
// path is bucket-relative and must live under the caller's own user id.
func (c *Client) Upload(ctx context.Context, bucket, path, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("path", path); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/storage/"+bucket, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return "", &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	var out struct {
		Path      string `json:"path"`
		PublicURL string `json:"public_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.PublicURL, nil
}

func (c *Client) RemoveObjects(ctx context.Context, bucket string, paths []string) error {
	return c.do(ctx, http.MethodDelete, "/api/storage/"+bucket,
		map[string][]string{"paths": paths}, nil)
}

func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var out struct {
		Paths []string `json:"paths"`
	}
	err := c.do(ctx, http.MethodGet, "/api/storage/"+bucket+"/list?prefix="+prefix, nil, &out)
	return out.Paths, err
}
