package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"taskboard/models"
	"taskboard/utils"
)

// Locals keys set by Protected.
const (
	LocalUser      = "user"
	LocalPrincipal = "principal"
)

// Protected authenticates the request from its bearer token and loads the calling user.
func Protected(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return utils.Unauthenticated("authorization required")
		}

		// Check if it's a Bearer token
		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
			return utils.Unauthenticated("invalid authorization format")
		}

		claims, err := utils.ParseJWTToken(tokenParts[1])
		if err != nil {
			return utils.Unauthenticated("invalid or expired token")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
			return utils.Unauthenticated("user not found")
		}
		// Tokens handed out at registration only work once the email is confirmed.
		if !user.EmailConfirmed {
			return utils.Forbidden("email not confirmed").WithCode(utils.CodeEmailNotConfirmed)
		}

		// The role is read from the database so role changes apply without a new token.
		c.Locals(LocalUser, &user)
		c.Locals(LocalPrincipal, user.Principal())

		return c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after Protected.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := c.Locals(LocalPrincipal).(models.Principal)
		if !ok {
			return utils.Unauthenticated("authorization required")
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return utils.Forbidden("insufficient role")
	}
}

// CurrentPrincipal returns the principal stored by Protected.
func CurrentPrincipal(c *fiber.Ctx) (models.Principal, error) {
	p, ok := c.Locals(LocalPrincipal).(models.Principal)
	if !ok {
		return models.Principal{}, utils.Unauthenticated("authorization required")
	}
	return p, nil
}
