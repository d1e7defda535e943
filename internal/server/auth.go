package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	// DefaultTokenLifetime is how long issued tokens are valid
	DefaultTokenLifetime = 24 * time.Hour

	userKey = "userID"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// IssueToken signs an HS256 token whose subject is userID
func IssueToken(secret, userID string, lifetime time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	if userID == "" {
		return "", errors.New("user id cannot be empty")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its subject
func ParseToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// authenticate resolves the user from a bearer token. A request without a
// token continues anonymously, a bad token is rejected.
func (s *Server) authenticate(c *gin.Context) {
	if s.localUser != "" {
		c.Set(userKey, s.localUser)
		c.Next()
		return
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}

	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || s.secret == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
		return
	}

	userID, err := ParseToken(s.secret, strings.TrimSpace(raw))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(userKey, userID)
	c.Next()
}

// userID returns the authenticated user, empty when anonymous
func userID(c *gin.Context) string {
	return c.GetString(userKey)
}
