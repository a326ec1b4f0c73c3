// file: internals/features/correction/controller/corrector_controller.go
package controller

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"longessay_backend/internals/features/correction/dto"
	"longessay_backend/internals/features/correction/files"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/service"
	"longessay_backend/internals/features/correction/tokens"
	helper "longessay_backend/internals/helpers"
	helperAuth "longessay_backend/internals/helpers/auth"
)

type CorrectorController struct {
	Svc   *service.CorrectionService
	Gate  *tokens.Gate
	Files *files.Delivery
}

func NewCorrectorController(svc *service.CorrectionService, files *files.Delivery) *CorrectorController {
	return &CorrectorController{Svc: svc, Gate: svc.Gate, Files: files}
}

/* =========================================================
   Token helpers
========================================================= */

func (ctl *CorrectorController) issue(c *fiber.Ctx, userKey string, purpose model.TokenPurpose, header string) error {
	tok, err := ctl.Gate.Issue(c.UserContext(), userKey, purpose)
	if err != nil {
		return err
	}
	c.Set(header, tok)
	return nil
}

// refresh extends the token; a header is only sent when a new value was issued.
func (ctl *CorrectorController) refresh(c *fiber.Ctx, userKey string, purpose model.TokenPurpose, header string) {
	tok, err := ctl.Gate.Refresh(c.UserContext(), userKey, purpose)
	if err != nil {
		log.Printf("[CorrectorController] refresh %s token user=%s failed: %v", purpose, userKey, err)
		return
	}
	if tok != "" {
		c.Set(header, tok)
	}
}

// staleDataToken reports whether the client sent a data token that is no
// longer current. No header means the client does not track one.
func (ctl *CorrectorController) staleDataToken(ctx context.Context, c *fiber.Ctx, userKey string) bool {
	sent := helper.GetDataToken(c)
	if sent == "" {
		return false
	}
	st, err := ctl.Gate.Check(ctx, userKey, model.TokenPurposeData, sent)
	if err != nil {
		log.Printf("[CorrectorController] check data token user=%s failed: %v", userKey, err)
		return true
	}
	return st != tokens.StatusCurrent
}

// requireFileToken guards binary routes.
func (ctl *CorrectorController) requireFileToken(c *fiber.Ctx, userKey string) error {
	st, err := ctl.Gate.Check(c.UserContext(), userKey, model.TokenPurposeFile, helper.GetFileToken(c))
	if err != nil {
		return err
	}
	switch st {
	case tokens.StatusCurrent:
		return nil
	case tokens.StatusStale:
		return fiber.NewError(fiber.StatusUnauthorized, "File token is not current")
	default:
		return fiber.NewError(fiber.StatusUnauthorized, "File token expired")
	}
}

/* =========================================================
   GET /data
========================================================= */

func (ctl *CorrectorController) GetData(c *fiber.Ctx) error {
	v := helperAuth.ViewerFromLocals(c)
	snap, err := ctl.Svc.Snapshot(c.UserContext(), v)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctl.issue(c, v.UserKey, model.TokenPurposeData, helper.HeaderDataToken); err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctl.issue(c, v.UserKey, model.TokenPurposeFile, helper.HeaderFileToken); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "ok", snap)
}

/* =========================================================
   GET /item/:key
========================================================= */

func (ctl *CorrectorController) GetItem(c *fiber.Ctx) error {
	v := helperAuth.ViewerFromLocals(c)
	view, err := ctl.Svc.ItemView(c.UserContext(), strings.TrimSpace(c.Params("key")), v)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	ctl.refresh(c, v.UserKey, model.TokenPurposeData, helper.HeaderDataToken)
	return helper.JsonOK(c, "ok", view)
}

/* =========================================================
   GET /escalation/:key
========================================================= */

func (ctl *CorrectorController) GetEscalation(c *fiber.Ctx) error {
	v := helperAuth.ViewerFromLocals(c)
	ev, err := ctl.Svc.Evaluate(c.UserContext(), strings.TrimSpace(c.Params("key")), v)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "ok", ev.DTO())
}

/* =========================================================
   Files: GET /file/:key, /page/:key, /thumb/:key
========================================================= */

func (ctl *CorrectorController) GetFile(c *fiber.Ctx) error {
	v := helperAuth.ViewerFromLocals(c)
	if err := ctl.requireFileToken(c, v.UserKey); err != nil {
		return helper.FromServiceError(c, err)
	}
	res, err := ctl.Svc.ResourceForViewer(c.UserContext(), v, strings.TrimSpace(c.Params("key")))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	ctl.refresh(c, v.UserKey, model.TokenPurposeFile, helper.HeaderFileToken)
	return ctl.Files.SendResource(c, res)
}

func (ctl *CorrectorController) GetPage(c *fiber.Ctx) error {
	page, err := ctl.page(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return ctl.Files.SendPageImage(c, page)
}

func (ctl *CorrectorController) GetThumb(c *fiber.Ctx) error {
	page, err := ctl.page(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return ctl.Files.SendPageThumb(c, page)
}

// page resolves :key (optionally narrowed by ?item=) after the file token check.
func (ctl *CorrectorController) page(c *fiber.Ctx) (*model.PageModel, error) {
	v := helperAuth.ViewerFromLocals(c)
	if err := ctl.requireFileToken(c, v.UserKey); err != nil {
		return nil, err
	}
	page, err := ctl.Svc.PageForViewer(c.UserContext(), v,
		strings.TrimSpace(c.Params("key")), strings.TrimSpace(c.Query("item")))
	if err != nil {
		return nil, err
	}
	ctl.refresh(c, v.UserKey, model.TokenPurposeFile, helper.HeaderFileToken)
	return page, nil
}

/* =========================================================
   PUT /changes, PUT /changes/:key
========================================================= */

func (ctl *CorrectorController) PutChanges(c *fiber.Ctx) error {
	return ctl.putChanges(c, "")
}

func (ctl *CorrectorController) PutItemChanges(c *fiber.Ctx) error {
	itemKey := strings.TrimSpace(c.Params("key"))
	if itemKey == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "Item key is required")
	}
	return ctl.putChanges(c, itemKey)
}

func (ctl *CorrectorController) putChanges(c *fiber.Ctx, itemKey string) error {
	v := helperAuth.ViewerFromLocals(c)

	var batch dto.ChangeBatch
	if err := c.BodyParser(&batch); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	ctx := c.UserContext()
	refetch := ctl.staleDataToken(ctx, c, v.UserKey)

	var (
		res *dto.ChangeResult
		err error
	)
	if itemKey == "" {
		res, err = ctl.Svc.ApplyChanges(ctx, &batch, v)
	} else {
		res, err = ctl.Svc.ApplyItemChanges(ctx, itemKey, &batch, v)
	}
	if err != nil {
		return helper.FromServiceError(c, err)
	}

	res.Refetch = refetch
	if res.DataToken != "" {
		c.Set(helper.HeaderDataToken, res.DataToken)
	}
	log.Printf("[CorrectorController] changes user=%s corrector=%s received=%d applied=%d refetch=%v",
		v.UserKey, v.CorrectorKey, batch.Len(), res.Applied(), refetch)
	return helper.JsonUpdated(c, "changes processed", res)
}

/* =========================================================
   PUT /summary/:key
========================================================= */

func (ctl *CorrectorController) PutSummary(c *fiber.Ctx) error {
	v := helperAuth.ViewerFromLocals(c)

	var payload dto.SummaryPayload
	if err := c.BodyParser(&payload); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	ctx := c.UserContext()
	refetch := ctl.staleDataToken(ctx, c, v.UserKey)
	res, err := ctl.Svc.SaveSummary(ctx, strings.TrimSpace(c.Params("key")), &payload, v)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	res.Refetch = refetch
	if res.DataToken != "" {
		c.Set(helper.HeaderDataToken, res.DataToken)
	}
	return helper.JsonUpdated(c, "summary saved", res)
}

/* =========================================================
   PUT /stitch/:key
========================================================= */

func (ctl *CorrectorController) PutStitch(c *fiber.Ctx) error {
	v := helperAuth.ViewerFromLocals(c)

	var in dto.StitchDecisionRequest
	if err := c.BodyParser(&in); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ctl.Svc.Validate.Struct(&in); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	d, err := ctl.Svc.RecordStitchDecision(c.UserContext(), strings.TrimSpace(c.Params("key")), &in, v)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "stitch decision saved", dto.FromStitch(d))
}
