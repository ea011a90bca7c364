package domain

import "time"

// Session is a signed-in device. ExpiresAt (Unix seconds) matches the bearer
// token lifetime and doubles as the table TTL attribute.
type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
	User      *User     `json:"user,omitempty" dynamodbav:"-"`
}

// Active reports whether the session is enabled and unexpired at now.
// A zero ExpiresAt never expires.
func (s *Session) Active(now time.Time) bool {
	return s.Enable && (s.ExpiresAt == 0 || now.Unix() < s.ExpiresAt)
}
