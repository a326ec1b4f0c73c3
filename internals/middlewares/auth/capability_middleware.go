package auth

import (
	"log"

	"github.com/gofiber/fiber/v2"

	helperAuth "longessay_backend/internals/helpers/auth"
)

// Capability is a session flag set by AuthJWT.
type Capability string

const (
	CapCorrector      Capability = "corrector"
	CapReview         Capability = "review"
	CapStitchDecision Capability = "stitch_decision"
)

func hasCapability(c *fiber.Ctx, want Capability) bool {
	v := helperAuth.ViewerFromLocals(c)
	switch want {
	case CapCorrector:
		return v.CorrectorKey != ""
	case CapReview:
		return v.Review
	case CapStitchDecision:
		return v.StitchDecision
	}
	return false
}

// RequireCapabilityWithCustomError lets the request through when the session
// has at least one of allowed.
func RequireCapabilityWithCustomError(allowed []Capability, customForbiddenMessage string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if helperAuth.ViewerFromLocals(c).UserKey == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: missing session")
		}
		for _, want := range allowed {
			if hasCapability(c, want) {
				return c.Next()
			}
		}

		log.Printf("[AUTH] user=%v denied %s %s, needs %v", c.Locals(helperAuth.LocUserID), c.Method(), c.Path(), allowed)
		if customForbiddenMessage == "" {
			customForbiddenMessage = "Forbidden: you are not authorized to access this resource"
		}
		return fiber.NewError(fiber.StatusForbidden, customForbiddenMessage)
	}
}

// OnlyCapabilities is the short form used by route tables.
func OnlyCapabilities(customMessage string, caps ...Capability) fiber.Handler {
	return RequireCapabilityWithCustomError(caps, customMessage)
}
