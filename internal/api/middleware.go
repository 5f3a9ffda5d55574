package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"forge-backend/internal/engine"
	"forge-backend/internal/metadata"
)

// Claims is the JWT payload carried by API callers.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// ParseActorToken validates a signed token and returns its claims.
func ParseActorToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// SignActorToken issues a signed token for the given actor. Used by tests
// and by deployments that mint their own caller tokens.
func SignActorToken(actor *metadata.Actor, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:  actor.Name,
		Roles: actor.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ActorMiddleware returns a Fiber middleware that validates bearer tokens
// and sets the Actor on the request. Requests without an Authorization
// header proceed with a nil actor; population expressions see empty
// actor fields in that case.
func ActorMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return respondError(c, engine.UnauthorizedError("Invalid auth header format"))
		}

		claims, err := ParseActorToken(parts[1], secret)
		if err != nil {
			return respondError(c, engine.UnauthorizedError("Invalid or expired token"))
		}

		c.Locals("actor", &metadata.Actor{
			ID:    claims.Subject,
			Name:  claims.Name,
			Roles: claims.Roles,
		})

		return c.Next()
	}
}

// RequestLogger returns a Fiber middleware that logs one line per request.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}

func getActor(c *fiber.Ctx) *metadata.Actor {
	actor, _ := c.Locals("actor").(*metadata.Actor)
	return actor
}
