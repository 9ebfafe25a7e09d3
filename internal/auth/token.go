package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TTLs for the two single-use token flows. They are deliberately short:
// the tokens travel by email and prove control of the address, nothing
// more. Issuing a new token replaces any outstanding one.
const (
	VerifyTokenTTL = time.Hour
	ResetTokenTTL  = 20 * time.Minute
)

// NewOneShotToken returns a 32-character hex token from the CSPRNG.
//
// Entity IDs use xid, but xid values are time-ordered and guessable —
// unacceptable for a credential. These tokens are unique by probability
// (128 random bits) and by the UNIQUE constraint on their columns.
func NewOneShotToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
