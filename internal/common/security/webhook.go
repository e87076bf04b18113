package security

import (
	"crypto/subtle"
	"strings"
)

// VerifyWebhookBearer checks an Authorization header against the shared
// webhook secret in constant time, so response timing reveals nothing about
// how many characters of a guess were correct. An unconfigured (empty)
// secret never authenticates anything.
func VerifyWebhookBearer(authorizationHeader, secret string) bool {
	if secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(authorizationHeader, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
