// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userIDLocal = "userID"

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var errNoToken = errors.New("authorization header required")

// ParseToken validates a bearer token issued by the identity provider and
// returns the profile id carried in its subject.
func ParseToken(tokenString string) (uuid.UUID, error) {
	if cfg == nil {
		return uuid.Nil, errors.New("auth middleware not initialized")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid or expired token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, errors.New("invalid user ID in token")
	}
	return userID, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errNoToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return models.Respond(c, models.NewUnauthorizedError(err.Error()))
	}
	userID, err := ParseToken(tokenString)
	if err != nil {
		return models.Respond(c, models.NewUnauthorizedError(err.Error()))
	}

	setUser(c, userID)
	return c.Next()
}

// OptionalAuth identifies the viewer when a bearer token is present. Requests
// without one proceed anonymously; a present but invalid token is rejected.
func OptionalAuth(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if errors.Is(err, errNoToken) {
		return c.Next()
	}
	if err != nil {
		return models.Respond(c, models.NewUnauthorizedError(err.Error()))
	}
	userID, err := ParseToken(tokenString)
	if err != nil {
		return models.Respond(c, models.NewUnauthorizedError(err.Error()))
	}

	setUser(c, userID)
	return c.Next()
}

func setUser(c *fiber.Ctx, userID uuid.UUID) {
	c.Locals(userIDLocal, userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// UserID returns the authenticated viewer, if any.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userIDLocal).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
