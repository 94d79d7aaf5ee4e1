package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tutorhub/internal/identity"
)

// Auth validates the bearer token and resolves the caller's role. Websocket
// clients cannot set headers, so a ?token= query parameter is accepted too.
//
// Role resolution is three-state: a fresh profile lookup, a cached last-known
// role when the lookup fails, or nothing. With nothing we refuse the request
// rather than default to a role, since defaulting mis-routes tutors.
func Auth(secret string, resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		userID, err := parseSubject(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		res := resolver.Resolve(c.Request.Context(), userID)
		if res.Source == identity.SourceNone {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "role unavailable, retry"})
			return
		}

		c.Set("userID", userID)
		c.Set("role", res.Role)
		c.Set("roleFromCache", res.Source == identity.SourceCache)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func parseSubject(token, secret string) (int, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID == 0 {
		return 0, errors.New("invalid subject")
	}
	return userID, nil
}
