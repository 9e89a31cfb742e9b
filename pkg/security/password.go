package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

var passwordCharset = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// PasswordLength is how many characters each order password carries. The
// password travels to the provider inside the charge reference and comes
// back on every webhook, where it authenticates the notification.
const PasswordLength = 30

// GeneratePassword returns a new random order password.
func GeneratePassword() (string, error) {
	out := make([]rune, PasswordLength)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}

// VerifyPassword compares a presented password against the stored one in
// constant time. Empty stored passwords never match.
func VerifyPassword(presented, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
