package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/awards-portal-api/internal/utils"
)

const (
	localsUserID   = "user_id"
	localsUserRole = "user_role"
)

var errInvalidSubject = errors.New("subject must be a positive user id")

// JWTConfig describes how bearer tokens are verified. Issuer and Audience are
// only enforced when set.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// PortalClaims are the claims the portal reads from an access token. The
// subject carries the numeric user id.
type PortalClaims struct {
	jwt.RegisteredClaims
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// PrimaryRole returns the normalized role, preferring the single role claim.
func (c PortalClaims) PrimaryRole() string {
	if role := normalizeRole(c.Role); role != "" {
		return role
	}
	for _, candidate := range c.Roles {
		if role := normalizeRole(candidate); role != "" {
			return role
		}
	}
	return ""
}

// UserID parses the subject claim.
func (c PortalClaims) UserID() (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errInvalidSubject
	}
	return uint(parsed), nil
}

// JWTProtected verifies HMAC signed bearer tokens and stores the caller's id
// and role in the request locals.
func JWTProtected(cfg JWTConfig) fiber.Handler {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(options...)
	key := []byte(cfg.Secret)

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing or malformed")
		}

		claims := &PortalClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := claims.UserID()
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		c.Locals(localsUserID, userID)
		if role := claims.PrimaryRole(); role != "" {
			c.Locals(localsUserRole, role)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or zero for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	switch v := c.Locals(localsUserID).(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// UserRole returns the normalized role of the caller.
func UserRole(c *fiber.Ctx) string {
	if role, ok := c.Locals(localsUserRole).(string); ok {
		return normalizeRole(role)
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
