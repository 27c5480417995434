package auth

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewResetToken returns a fresh password reset token.
// Tokens are lowercase ULIDs drawn from crypto/rand.
func NewResetToken(now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	return strings.ToLower(id.String())
}

// IsResetTokenFormat reports whether s looks like a token from NewResetToken.
func IsResetTokenFormat(s string) bool {
	if len(s) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(s))
	return err == nil
}
