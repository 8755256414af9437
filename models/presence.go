package models

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Presence represents the live presence record of a connected user.
// One record exists per registered connection; it is created on register
// and removed on disconnect. The history of the online flag is not retained.
type Presence struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Online   bool   `json:"online"`
}
