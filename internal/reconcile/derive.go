package reconcile

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const maxUsernameLen = 100

// DeriveUsername builds a deterministic LMS username from an email's local
// part: lowercased, restricted to the characters the LMS accepts.
func DeriveUsername(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	local = strings.ToLower(local)
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == '+':
			b.WriteByte('.')
		}
	}
	username := strings.Trim(b.String(), "._-")
	if username == "" {
		username = "learner"
	}
	if len(username) > maxUsernameLen {
		username = username[:maxUsernameLen]
	}
	return username
}

// UniquifyEmail derives a new address from email by appending a
// disambiguating suffix to the local part, so a fresh account can be
// created without colliding with the record already holding email.
func UniquifyEmail(email string, at time.Time) string {
	local, domainPart := email, ""
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local, domainPart = email[:i], email[i+1:]
	}
	return fmt.Sprintf("%s+%d@%s", local, at.Unix(), domainPart)
}

// DerivePassword produces the account password from a fixed scheme keyed on
// the platform email and a server-side salt. It is deliberately recoverable
// for support purposes rather than random; the fixed tail guarantees the
// LMS's complexity rules (upper, lower, digit, symbol) are met.
func DerivePassword(salt, email string) string {
	key := pbkdf2.Key([]byte(strings.ToLower(email)), []byte(salt), 4096, 12, sha256.New)
	return base64.RawURLEncoding.EncodeToString(key) + "!9Zq"
}
