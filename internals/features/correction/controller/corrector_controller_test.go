package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	corrCtl "longessay_backend/internals/features/correction/controller"
	"longessay_backend/internals/features/correction/files"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
	corrRoute "longessay_backend/internals/features/correction/route"
	"longessay_backend/internals/features/correction/service"
	"longessay_backend/internals/features/correction/textproc"
	"longessay_backend/internals/features/correction/tokens"
	helper "longessay_backend/internals/helpers"
	authMiddleware "longessay_backend/internals/middlewares/auth"
)

const secret = "controller-test"

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Data      json.RawMessage `json:"data"`
}

type harness struct {
	app   *fiber.App
	store *repository.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	rows := []any{
		&model.CorrectionTaskModel{TaskKey: "t1", TaskTitle: "Essay exam"},
		&model.CorrectionSettingsModel{SettingsTaskKey: "t1", SettingsMutualVisibility: true, SettingsMaxPoints: 20, SettingsStitchWhenDistance: 2, SettingsCombinationRule: model.CombineAverage},
		&model.GradeLevelModel{GradeLevelKey: "pass", GradeLevelTaskKey: "t1", GradeLevelTitle: "Passed", GradeLevelMinPoints: 5, GradeLevelPassed: true},
		&model.RatingCriterionModel{CriterionKey: "c1", CriterionTaskKey: "t1", CriterionTitle: "Structure", CriterionPoints: 10},
		&model.ResourceModel{ResourceKey: "r1", ResourceTaskKey: "t1", ResourceTitle: "Wiki", ResourceType: model.ResourceURL, ResourceSource: "https://example.org/wiki"},
		&model.CorrectionItemModel{ItemKey: "i1", ItemTaskKey: "t1", ItemTitle: "Essay 1", ItemCorrectionAllowed: true, ItemAuthorizationAllowed: true},
		&model.CorrectionItemModel{ItemKey: "i3", ItemTaskKey: "t1", ItemTitle: "Essay 3", ItemCorrectionAllowed: true},
		&model.WrittenEssayModel{EssayItemKey: "i1", EssayWrittenText: "Hello world"},
		&model.PageModel{PageKey: "p1", PageItemKey: "i1", PageNumber: 1, PagePath: "i1/1.png", PageMimetype: "image/png"},
		&model.CorrectorModel{CorrectorKey: "A", CorrectorTaskKey: "t1", CorrectorTitle: "Alice"},
		&model.CorrectorModel{CorrectorKey: "B", CorrectorTaskKey: "t1", CorrectorTitle: "Bob"},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i1", AssignmentCorrectorKey: "A"},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i3", AssignmentCorrectorKey: "A"},
	}
	for _, r := range rows {
		if err := store.Put(ctx, r); err != nil {
			t.Fatalf("Put(%T): %v", r, err)
		}
	}

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "i1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20)))
	if err := os.WriteFile(filepath.Join(root, "i1", "1.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	gate := tokens.NewGate(tokens.NewMemoryStore(), time.Hour, time.Hour)
	svc := service.New(store, gate, textproc.New(), service.NewEvaluator(store, time.Minute))

	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
	grp := app.Group("/api/corrector", authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{Secret: secret}))
	corrRoute.CorrectorRoutes(grp, corrCtl.NewCorrectorController(svc, files.NewDelivery(root)))
	return &harness{app: app, store: store}
}

func bearer(t *testing.T, cl authMiddleware.CorrectorClaims) string {
	t.Helper()
	tok, err := authMiddleware.SignCorrectorToken(secret, cl, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok
}

var (
	alice   = authMiddleware.CorrectorClaims{UserKey: "user-a", TaskKey: "t1", CorrectorKey: "A"}
	bob     = authMiddleware.CorrectorClaims{UserKey: "user-b", TaskKey: "t1", CorrectorKey: "B"}
	arbiter = authMiddleware.CorrectorClaims{UserKey: "user-s", TaskKey: "t1", IsStitchDecision: true}
)

func (h *harness) do(t *testing.T, method, path, authz string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := h.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, path, err)
	}
	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

func TestGetData(t *testing.T) {
	h := newHarness(t)

	resp, env := h.do(t, "GET", "/api/corrector/data", "", nil, nil)
	if resp.StatusCode != fiber.StatusUnauthorized || env.ErrorCode != "UNAUTHORIZED" {
		t.Errorf("Expected 401 envelope, got %d %+v", resp.StatusCode, env)
	}

	resp, env = h.do(t, "GET", "/api/corrector/data", bearer(t, alice), nil, nil)
	if resp.StatusCode != fiber.StatusOK || !env.Success {
		t.Fatalf("Expected 200, got %d %+v", resp.StatusCode, env)
	}
	if resp.Header.Get(helper.HeaderDataToken) == "" || resp.Header.Get(helper.HeaderFileToken) == "" {
		t.Errorf("Expected data and file tokens in headers")
	}
	if !strings.Contains(string(env.Data), `"i1"`) || !strings.Contains(string(env.Data), `"i3"`) {
		t.Errorf("Expected both items in snapshot, got %s", env.Data)
	}

	resp, _ = h.do(t, "GET", "/api/corrector/data", bearer(t, authMiddleware.CorrectorClaims{UserKey: "x"}), nil, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected session without task to be forbidden, got %d", resp.StatusCode)
	}
}

func TestGetItem(t *testing.T) {
	h := newHarness(t)

	resp, env := h.do(t, "GET", "/api/corrector/item/i1", bearer(t, alice), nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", resp.StatusCode, env)
	}
	if !strings.Contains(string(env.Data), `w-p`) {
		t.Errorf("Expected processed essay text, got %s", env.Data)
	}

	resp, env = h.do(t, "GET", "/api/corrector/item/i1", bearer(t, bob), nil, nil)
	if resp.StatusCode != fiber.StatusNotFound || env.ErrorCode != "NOT_FOUND" {
		t.Errorf("Expected unassigned item to be 404, got %d %+v", resp.StatusCode, env)
	}
}

func TestPutChanges_RemapsKeysAndRotatesToken(t *testing.T) {
	h := newHarness(t)
	authz := bearer(t, alice)

	resp, _ := h.do(t, "GET", "/api/corrector/data", authz, nil, nil)
	first := resp.Header.Get(helper.HeaderDataToken)

	batch := map[string]any{
		"comments": []map[string]any{{
			"action": "save", "item_key": "i1", "key": "temp-1",
			"payload": map[string]any{"start_position": 1, "end_position": 2, "comment": "nice", "rating": "excellent"},
		}},
		"points": []map[string]any{{
			"action": "save", "item_key": "i1", "key": "temp-p1",
			"payload": map[string]any{"comment_key": "temp-1", "criterion_key": "c1", "points": 4},
		}},
	}
	resp, env := h.do(t, "PUT", "/api/corrector/changes", authz, batch, map[string]string{helper.HeaderDataToken: first})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", resp.StatusCode, env)
	}
	var res struct {
		Comments map[string]*string `json:"comments"`
		Points   map[string]*string `json:"points"`
		Refetch  bool               `json:"refetch"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if k := res.Comments["temp-1"]; k == nil || strings.HasPrefix(*k, "temp") {
		t.Errorf("Expected persistent comment key, got %v", k)
	}
	if res.Points["temp-p1"] == nil {
		t.Errorf("Expected points saved, got %+v", res.Points)
	}
	if res.Refetch {
		t.Errorf("Expected no refetch with a current token")
	}
	second := resp.Header.Get(helper.HeaderDataToken)
	if second == "" || second == first {
		t.Errorf("Expected rotated data token")
	}

	// the first token is stale now
	resp, env = h.do(t, "PUT", "/api/corrector/changes", authz, map[string]any{"comments": []any{}}, map[string]string{helper.HeaderDataToken: first})
	_ = json.Unmarshal(env.Data, &res)
	if resp.StatusCode != fiber.StatusOK || !res.Refetch {
		t.Errorf("Expected refetch for stale token, got %d %+v", resp.StatusCode, res)
	}

	resp, env = h.do(t, "PUT", "/api/corrector/changes", bearer(t, arbiter), batch, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected stitch session without corrector key to be forbidden, got %d %+v", resp.StatusCode, env)
	}
}

func TestPutItemChanges_OtherItemRejected(t *testing.T) {
	h := newHarness(t)
	batch := map[string]any{"comments": []map[string]any{{
		"action": "save", "item_key": "i3", "key": "temp-x",
		"payload": map[string]any{"start_position": 0, "end_position": 0},
	}}}
	resp, env := h.do(t, "PUT", "/api/corrector/changes/i1", bearer(t, alice), batch, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", resp.StatusCode, env)
	}
	if !strings.Contains(string(env.Data), `"temp-x":"validation_mismatch"`) {
		t.Errorf("Expected mismatch rejection, got %s", env.Data)
	}
}

func TestPutSummary(t *testing.T) {
	h := newHarness(t)
	authz := bearer(t, alice)

	resp, env := h.do(t, "PUT", "/api/corrector/summary/i3", authz, map[string]any{"points": 12, "is_authorized": true}, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected authorization to be forbidden on i3, got %d %+v", resp.StatusCode, env)
	}

	resp, env = h.do(t, "PUT", "/api/corrector/summary/i1", authz, map[string]any{"points": 12, "grade_key": "pass"}, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", resp.StatusCode, env)
	}
	if resp.Header.Get(helper.HeaderDataToken) == "" {
		t.Errorf("Expected rotated data token after save")
	}

	resp, _ = h.do(t, "PUT", "/api/corrector/summary/i1", authz, map[string]any{"grade_key": "nope"}, nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("Expected unknown grade to be 422, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, "PUT", "/api/corrector/summary/missing", authz, map[string]any{}, nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected missing item 404, got %d", resp.StatusCode)
	}
}

func TestPutStitchAndEscalation(t *testing.T) {
	h := newHarness(t)

	resp, env := h.do(t, "GET", "/api/corrector/escalation/i1", bearer(t, alice), nil, nil)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(env.Data), `"state":"grading"`) {
		t.Errorf("Expected grading, got %d %s", resp.StatusCode, env.Data)
	}

	body := map[string]any{"correction_finalized": 1, "final_points": 7}
	resp, _ = h.do(t, "PUT", "/api/corrector/stitch/i1", bearer(t, alice), body, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected corrector to be forbidden, got %d", resp.StatusCode)
	}
	resp, _ = h.do(t, "PUT", "/api/corrector/stitch/i1", bearer(t, arbiter), body, nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected conflict while grading, got %d", resp.StatusCode)
	}
	resp, env = h.do(t, "PUT", "/api/corrector/stitch/i1", bearer(t, arbiter), map[string]any{"correction_finalized": -1}, nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity || env.ErrorCode != "VALIDATION_ERROR" {
		t.Errorf("Expected validation error, got %d %+v", resp.StatusCode, env)
	}
}

func TestFileRoutes_RequireFileToken(t *testing.T) {
	h := newHarness(t)
	authz := bearer(t, alice)

	resp, _ := h.do(t, "GET", "/api/corrector/page/p1", authz, nil, nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401 without file token, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, "GET", "/api/corrector/data", authz, nil, nil)
	fileTok := resp.Header.Get(helper.HeaderFileToken)

	resp, _ = h.do(t, "GET", "/api/corrector/page/p1?token="+fileTok, authz, nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected page with query token, got %d", resp.StatusCode)
	}
	resp, _ = h.do(t, "GET", "/api/corrector/thumb/p1", authz, nil, map[string]string{helper.HeaderFileToken: fileTok})
	if resp.StatusCode != fiber.StatusOK || resp.Header.Get(fiber.HeaderContentType) != "image/webp" {
		t.Errorf("Expected webp thumbnail, got %d %s", resp.StatusCode, resp.Header.Get(fiber.HeaderContentType))
	}
	resp, _ = h.do(t, "GET", "/api/corrector/page/p1?item=i3&token="+fileTok, authz, nil, nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected page of another item to be 404, got %d", resp.StatusCode)
	}
	resp, _ = h.do(t, "GET", "/api/corrector/file/r1?token="+fileTok, authz, nil, nil)
	if resp.StatusCode != fiber.StatusFound {
		t.Errorf("Expected url resource redirect, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, "GET", "/api/corrector/page/p1?token="+fileTok, bearer(t, bob), nil, nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected another user's file token rejected, got %d", resp.StatusCode)
	}
}
