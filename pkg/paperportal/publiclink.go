package paperportal

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// publicLinkBytes is the entropy of a minted token: 128 bits, so tokens are
// not enumerable and are independent of the submission id.
const publicLinkBytes = 16

// NewPublicLinkToken mints an opaque token from a high-entropy random source.
func NewPublicLinkToken() (string, error) {
	buf := make([]byte, publicLinkBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mint public link token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidPublicLinkToken reports whether s has the shape of a minted token.
// Used to cheaply reject junk before a repository lookup.
func ValidPublicLinkToken(s string) bool {
	if len(s) != publicLinkBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
