// file: internals/helpers/auth/corrector_context.go
package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"longessay_backend/internals/features/correction/service"
)

// Locals hydrated by the corrector JWT middleware.
const (
	LocUserID         = "user_id"          // string
	LocTaskKey        = "task_key"         // string
	LocCorrectorKey   = "corrector_key"    // string, empty for review/stitch sessions
	LocIsReview       = "is_review"        // bool
	LocStitchDecision = "is_stitch_decision" // bool
)

func localString(c *fiber.Ctx, key string) string {
	if s, ok := c.Locals(key).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func localBool(c *fiber.Ctx, key string) bool {
	switch v := c.Locals(key).(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	}
	return false
}

// ViewerFromLocals builds the service viewer of the current request.
func ViewerFromLocals(c *fiber.Ctx) service.Viewer {
	return service.Viewer{
		UserKey:        localString(c, LocUserID),
		TaskKey:        localString(c, LocTaskKey),
		CorrectorKey:   localString(c, LocCorrectorKey),
		Review:         localBool(c, LocIsReview),
		StitchDecision: localBool(c, LocStitchDecision),
	}
}

// GetUserKeyFromToken returns the authenticated user or 401.
func GetUserKeyFromToken(c *fiber.Ctx) (string, error) {
	if uk := localString(c, LocUserID); uk != "" {
		return uk, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
}
