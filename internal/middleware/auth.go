package middleware

import (
	"errors"
	"strings"

	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PrincipalKey is the Locals key holding the authenticated *model.Principal.
const PrincipalKey = "principal"

// TokenVerifier turns a bearer access token into a Principal.
type TokenVerifier interface {
	Verify(accessToken string) (*model.Principal, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func Auth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		SetPrincipal(c, principal)
		return c.Next()
	}
}

func SetPrincipal(c *fiber.Ctx, p *model.Principal) {
	c.Locals(PrincipalKey, p)
}

// PrincipalFrom returns the caller set by Auth, or nil.
func PrincipalFrom(c *fiber.Ctx) *model.Principal {
	p, _ := c.Locals(PrincipalKey).(*model.Principal)
	return p
}

// RequireRole must run after Auth. A missing principal is 401, a principal
// with another role is 403.
func RequireRole(role model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := service.Authorize(PrincipalFrom(c), role)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, service.ErrUnauthorized):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
	}
}
