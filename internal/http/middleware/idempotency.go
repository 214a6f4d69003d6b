// Idempotency-Key header validation for unsafe endpoints.
//
// The middleware only validates and stashes the key; replay detection and
// record keeping live in the service layer, which knows the chat the request
// lands in (the exchange endpoint may create one on demand).
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients send to make retries of
// an unsafe operation safe to deduplicate.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey = "idemKey"
	// idemKeyMaxLen caps the accepted key length.
	idemKeyMaxLen = 200
)

// idemKeyRE restricts keys to an RFC 7230-ish token alphabet.
var idemKeyRE = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyKey validates the Idempotency-Key header when present and
// stores the key in the Gin context. An absent header is a no-op; a
// malformed one is rejected with 400 before any side effect can run.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > idemKeyMaxLen || !idemKeyRE.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		c.Next()
	}
}

// IdempotencyKeyFrom returns the validated key stashed by IdempotencyKey,
// or "" when the request carried none.
func IdempotencyKeyFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemKey)
	return asString(v)
}
