// file: internals/helpers/token.go
package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// LocRawToken keeps the verified JWT for later reuse.
	LocRawToken = "raw_token"

	HeaderDataToken = "X-Data-Token"
	HeaderFileToken = "X-File-Token"
)

// GetRawAccessToken returns the access token from:
// 1) Locals("raw_token") set by the auth middleware
// 2) Authorization header "Bearer <token>"
// 3) cookie "access_token" when cookie is true
func GetRawAccessToken(c *fiber.Ctx, cookie bool) string {
	if v, ok := c.Locals(LocRawToken).(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if cookie {
		return strings.TrimSpace(c.Cookies("access_token"))
	}
	return ""
}

func SetRawAccessToken(c *fiber.Ctx, raw string) {
	if strings.TrimSpace(raw) != "" {
		c.Locals(LocRawToken, strings.TrimSpace(raw))
	}
}

// GetDataToken reads the data freshness token the client sent back.
func GetDataToken(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(HeaderDataToken))
}

// GetFileToken reads the file token from the header or ?token= (image tags
// cannot send headers).
func GetFileToken(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get(HeaderFileToken)); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query("token"))
}
