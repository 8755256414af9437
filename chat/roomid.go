package chat

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// GroupRoomID returns a random 128-bit hex-encoded room id for a group chat.
func GroupRoomID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// PrivateRoomID derives the room id of the private chat between two users.
// The id is deterministic: any two clients derive the same id for the same
// pair regardless of argument order, so only one private room can exist
// between two users.
func PrivateRoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + ":" + b))
	return hex.EncodeToString(sum[:16])
}
