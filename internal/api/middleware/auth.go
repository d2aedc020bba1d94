package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	apierrors "rankingsengine/pkg/errors"
)

// Claims is the caller identity carried by a bearer token: a user id, an
// email-verification flag, and a bag of passthrough claims. The
// administrator capability itself is not a claim — it is read from the
// caller's player document by the admin service, never trusted from the
// token.
type Claims struct {
	UserID        string `json:"userId"`
	EmailVerified bool   `json:"emailVerified"`
	jwt.RegisteredClaims
}

const (
	contextKeyUserID        = "auth.userID"
	contextKeyEmailVerified = "auth.emailVerified"
)

// AuthMiddleware verifies the bearer token on every request using the
// configured HMAC secret and stores the caller identity in the gin
// context. A missing or invalid token is rejected with unauthenticated,
// never silently treated as anonymous.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			abortUnauthenticated(c, "missing bearer token")
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			abortUnauthenticated(c, "invalid or expired token")
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyEmailVerified, claims.EmailVerified)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	err := apierrors.NewUnauthenticatedError(message)
	c.AbortWithStatusJSON(err.Code, err)
}

// CallerUserID returns the authenticated caller's user id, set by
// AuthMiddleware. It must only be called on a route behind that
// middleware.
func CallerUserID(c *gin.Context) string {
	id, _ := c.Get(contextKeyUserID)
	userID, _ := id.(string)
	return userID
}

// CallerEmailVerified reports whether the authenticated caller's email is
// verified, set by AuthMiddleware.
func CallerEmailVerified(c *gin.Context) bool {
	v, _ := c.Get(contextKeyEmailVerified)
	verified, _ := v.(bool)
	return verified
}
