package dynamo

// DynamoDB attribute names used in keys and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldID             = "id"
	fieldExpires        = "expires"
	fieldUserID         = "user_id"
	fieldOwnerID        = "owner_id"
	fieldSessionID      = "session_id"
	fieldSessionExpires = "expires_at"
	fieldEmail          = "email"
	fieldEnable         = "enable"
	fieldVerified       = "verified"
	fieldPasswordHash   = "password_hash"
	fieldUpdatedAt      = "updated_at"
)
