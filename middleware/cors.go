package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the configured browser origins to call the API with bearer tokens.
// A "*" entry opens the API to any origin; credentials are then disabled since browsers
// reject the wildcard together with credentials.
func CORS(origins []string) fiber.Handler {
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
			origins = []string{"*"}
			break
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowCredentials: credentials,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPut,
			fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions,
		}, ","),
		AllowHeaders: strings.Join([]string{
			fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept,
			fiber.HeaderAuthorization, fiber.HeaderXRequestID,
		}, ","),
		ExposeHeaders: strings.Join([]string{fiber.HeaderContentLength, fiber.HeaderXRequestID}, ","),
		MaxAge:        3600,
	})
}
