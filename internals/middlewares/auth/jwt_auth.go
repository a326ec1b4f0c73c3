// file: internals/middlewares/auth/jwt_auth.go
package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	helper "longessay_backend/internals/helpers"
	helperAuth "longessay_backend/internals/helpers/auth"
)

type AuthJWTOpts struct {
	Secret              string
	AllowCookieFallback bool // use the access_token cookie when there is no Bearer
	Leeway              time.Duration
}

/*
AuthJWT verifies an HMAC signed corrector token and hydrates the locals read
by helperAuth.ViewerFromLocals:

	sub | user_id        → user_id
	task_key             → task_key
	corrector_key        → corrector_key
	is_review            → is_review
	is_stitch_decision   → is_stitch_decision
*/
func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret is required")
	}

	return func(c *fiber.Ctx) error {
		raw := helper.GetRawAccessToken(c, o.AllowCookieFallback)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		parser := jwt.Parser{ValidMethods: []string{"HS256", "HS384", "HS512"}}
		claims := jwt.MapClaims{}
		tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil && o.Leeway > 0 && isOnlyExpired(err) && !expiredBeyond(claims, o.Leeway) {
			err = nil
		} else if err == nil && !tok.Valid {
			err = jwt.ErrTokenUnverifiable
		}
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		userKey := strClaim(claims, "sub")
		if userKey == "" {
			userKey = strClaim(claims, "user_id")
		}
		if userKey == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Token has no subject")
		}

		helper.SetRawAccessToken(c, raw)
		c.Locals("jwt_claims", claims)
		c.Locals(helperAuth.LocUserID, userKey)
		c.Locals(helperAuth.LocTaskKey, strClaim(claims, "task_key"))
		c.Locals(helperAuth.LocCorrectorKey, strClaim(claims, "corrector_key"))
		c.Locals(helperAuth.LocIsReview, boolClaim(claims, "is_review"))
		c.Locals(helperAuth.LocStitchDecision, boolClaim(claims, "is_stitch_decision"))

		return c.Next()
	}
}

func isOnlyExpired(err error) bool {
	ve, ok := err.(*jwt.ValidationError)
	return ok && ve.Errors == jwt.ValidationErrorExpired
}

func expiredBeyond(claims jwt.MapClaims, leeway time.Duration) bool {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return true
	}
	return time.Now().After(time.Unix(int64(exp), 0).Add(leeway))
}

// small util to read a string claim
func strClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func boolClaim(m jwt.MapClaims, key string) bool {
	switch t := m[key].(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "yes"
	case float64:
		return t != 0
	}
	return false
}

/* =========================================================
   Issuing (CLI, tests, dev tooling)
========================================================= */

type CorrectorClaims struct {
	UserKey          string
	TaskKey          string
	CorrectorKey     string
	IsReview         bool
	IsStitchDecision bool
}

// SignCorrectorToken issues an HS256 token understood by AuthJWT.
func SignCorrectorToken(secret string, cl CorrectorClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                cl.UserKey,
		"task_key":           cl.TaskKey,
		"corrector_key":      cl.CorrectorKey,
		"is_review":          cl.IsReview,
		"is_stitch_decision": cl.IsStitchDecision,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
