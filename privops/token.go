package privops

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/zooarc/menagerie/errors"
)

// tokenBytes gives 256 bits of entropy per session token.
const tokenBytes = 32

// newToken returns an opaque, unguessable session token. Tokens carry no
// claims; everything about a session lives server-side.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "token generation failed", err)
	}
	return hex.EncodeToString(buf), nil
}
