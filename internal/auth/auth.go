// Package auth verifies bearer tokens issued by the external identity provider and exposes the
// caller's user id to handlers. Handlers pass the id explicitly into core operations.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/phishlms/internal/errors"
)

const userKey = "user"

type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret. The user id is the sub claim.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify returns the user id carried by token.
func (v *Verifier) Verify(token string) (string, error) {
	var c Claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithReason(errors.ReasonUnauthorized),
			errors.WithMessagef("invalid token, please log in"),
			errors.WithCause(err),
		)
	}

	if c.Subject == "" {
		return "", errors.Unauthorized("token has no subject, please log in")
	}

	return c.Subject, nil
}

// Issue signs a token for userID. Production tokens come from the identity provider; this is for
// tooling and tests.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	s, err := t.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return s, nil
}

// Middleware rejects requests without a valid bearer token.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			abort(c, errors.Unauthorized("missing bearer token, please log in"))
			return
		}

		user, err := v.Verify(token)
		if err != nil {
			abort(c, errors.Convert(err))
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// UserID returns the authenticated user set by Middleware, or "".
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}

func abort(c *gin.Context, e *errors.Error) {
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
