package auth

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	helperAuth "longessay_backend/internals/helpers/auth"
)

const testSecret = "test-secret"

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(AuthJWT(AuthJWTOpts{Secret: testSecret}))
	app.Get("/me", func(c *fiber.Ctx) error {
		v := helperAuth.ViewerFromLocals(c)
		return c.JSON(v)
	})
	return app
}

func TestAuthJWT(t *testing.T) {
	app := newApp()
	good, err := SignCorrectorToken(testSecret, CorrectorClaims{UserKey: "u1", TaskKey: "t1", CorrectorKey: "A"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, _ := SignCorrectorToken(testSecret, CorrectorClaims{UserKey: "u1"}, -time.Hour)
	foreign, _ := SignCorrectorToken("other", CorrectorClaims{UserKey: "u1"}, time.Hour)
	noSubject, _ := SignCorrectorToken(testSecret, CorrectorClaims{}, time.Hour)

	tests := []struct {
		name   string
		authz  string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"malformed", "Bearer abc", fiber.StatusUnauthorized},
		{"expired", "Bearer " + expired, fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, fiber.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, fiber.StatusUnauthorized},
		{"valid", "Bearer " + good, fiber.StatusOK},
		{"lowercase scheme", "bearer " + good, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.authz != "" {
				req.Header.Set("Authorization", tt.authz)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestAuthJWT_HydratesViewer(t *testing.T) {
	app := newApp()
	tok, _ := SignCorrectorToken(testSecret, CorrectorClaims{UserKey: "u9", TaskKey: "t1", IsStitchDecision: true}, time.Hour)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, _ := app.Test(req)
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{`"UserKey":"u9"`, `"TaskKey":"t1"`, `"StitchDecision":true`, `"Review":false`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %s in %s", want, body)
		}
	}
}

func TestAuthJWT_Leeway(t *testing.T) {
	app := fiber.New()
	app.Use(AuthJWT(AuthJWTOpts{Secret: testSecret, Leeway: time.Minute}))
	app.Get("/me", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	justExpired, _ := SignCorrectorToken(testSecret, CorrectorClaims{UserKey: "u1"}, -10*time.Second)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+justExpired)
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("Expected token within leeway accepted, got %d", resp.StatusCode)
	}
}
