package platform

import "encoding/json"

// Message is one chat message row. IDs beginning with "temp-" exist only
// inside the client while a send is in flight and never come from the server.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	CreatedAt  string `json:"created_at"`
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

type Friendship struct {
	ID          string `json:"id"`
	RequesterID string `json:"requester_id"`
	FriendID    string `json:"friend_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// StatusRecord mirrors a user_status row. IsOnline is a pointer: rows written
// before the flag existed carry no value, and presence logic treats absence
// as "assume online if recently seen".
type StatusRecord struct {
	UserID     string `json:"user_id"`
	IsOnline   *bool  `json:"is_online"`
	LastSeenAt string `json:"last_seen_at"`
}

type Report struct {
	ID         string `json:"id"`
	ReporterID string `json:"reporter_id"`
	ReportedID string `json:"reported_id"`
	Issue      string `json:"issue"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type Session struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Event is one realtime change notification from the server.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
	EventAny    = "*"
)

type Event struct {
	Table string          `json:"table"`
	Type  string          `json:"type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}
