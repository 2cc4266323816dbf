package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	HostSessionHeader = "X-Host-Session-ID"
	hostSessionLocal  = "host_session_id"
)

// HostSessionMiddleware resolves the host conversation a tool call belongs to.
// With a secret configured a bearer token is required and its host_session_id
// claim wins; otherwise the X-Host-Session-ID header is used.
func HostSessionMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			ctx.Locals(hostSessionLocal, ctx.Get(HostSessionHeader))
			return ctx.Next()
		}

		authHeader := ctx.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
		}
		tokenStr := authHeader[len("Bearer "):]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
		}

		host, _ := claims[hostSessionLocal].(string)
		if host == "" {
			host = ctx.Get(HostSessionHeader)
		}
		ctx.Locals(hostSessionLocal, host)
		return ctx.Next()
	}
}

// HostSessionID returns the host conversation id resolved by HostSessionMiddleware.
func HostSessionID(ctx *fiber.Ctx) string {
	host, _ := ctx.Locals(hostSessionLocal).(string)
	return host
}
