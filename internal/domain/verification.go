package domain

import "time"

// CodeContext restricts what a verification code may be used for.
type CodeContext string

const (
	ContextRegister CodeContext = "register"
	ContextReset    CodeContext = "reset"
)

// Valid reports whether c is one of the supported contexts.
func (c CodeContext) Valid() bool {
	switch c {
	case ContextRegister, ContextReset:
		return true
	}
	return false
}

// VerificationCode is a single-use, time-bound capability bound to a subject.
// ID is the table key; Expires is a Unix timestamp also used as the store TTL.
type VerificationCode struct {
	ID      string      `json:"id" dynamodbav:"id"`
	Context CodeContext `json:"context" dynamodbav:"context"`
	Subject string      `json:"subject" dynamodbav:"subject"`
	Expires int64       `json:"expires" dynamodbav:"expires"` // TTL (Unix seconds)
}

// ExpiredAt reports whether the code is no longer claimable at now.
func (v *VerificationCode) ExpiredAt(now time.Time) bool {
	return now.Unix() >= v.Expires
}

// ExpiresAt returns Expires as a time.Time.
func (v *VerificationCode) ExpiresAt() time.Time {
	return time.Unix(v.Expires, 0).UTC()
}
