package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/prepcode-api/internal/utils"
)

var hmacMethods = []string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}

// AccessClaims is the token payload issued to candidates and staff. The subject carries the
// numeric user id; user_id is accepted for tokens minted by older clients.
type AccessClaims struct {
	jwt.RegisteredClaims
	LegacyUserID uint     `json:"user_id,omitempty"`
	Role         string   `json:"role,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// UserID resolves the caller id, or 0 when the token does not identify a user.
func (c AccessClaims) UserID() uint {
	if subject := strings.TrimSpace(c.Subject); subject != "" {
		if parsed, err := strconv.ParseUint(subject, 10, 64); err == nil {
			return uint(parsed)
		}
	}
	return c.LegacyUserID
}

// PrimaryRole returns the lower-cased role, preferring the single role claim.
func (c AccessClaims) PrimaryRole() string {
	if role := strings.ToLower(strings.TrimSpace(c.Role)); role != "" {
		return role
	}
	for _, candidate := range c.Roles {
		if role := strings.ToLower(strings.TrimSpace(candidate)); role != "" {
			return role
		}
	}
	return ""
}

// JWTProtected returns a middleware that validates HMAC signed bearer tokens carrying an expiry.
// It stores the caller in the user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods(hmacMethods), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return key, nil
	}

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		scheme, tokenString, found := strings.Cut(authorization, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		var claims AccessClaims
		token, err := parser.ParseWithClaims(tokenString, &claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if userID := claims.UserID(); userID != 0 {
			c.Locals("user_id", userID)
		}
		if role := claims.PrimaryRole(); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}
