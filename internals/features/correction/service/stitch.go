// file: internals/features/correction/service/stitch.go
package service

import (
	"context"
	"fmt"
	"log"

	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
)

// RecordStitchDecision finalizes an item that awaits arbitration.
func (s *CorrectionService) RecordStitchDecision(ctx context.Context, itemKey string, in *dto.StitchDecisionRequest, v Viewer) (*model.StitchDecisionModel, error) {
	if !v.StitchDecision {
		return nil, ErrForbidden
	}
	if in == nil {
		return nil, ErrInvalid
	}
	if err := s.Validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	status := model.FinalizedStatus(in.CorrectionFinalized)
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: correction_finalized %d is not terminal", ErrInvalid, in.CorrectionFinalized)
	}

	item, err := s.itemInScope(ctx, v, itemKey)
	if err != nil {
		return nil, err
	}

	// decide on the current summaries, not a memoized view
	s.Escalation.Forget(item.ItemKey)
	ev, err := s.Escalation.Evaluate(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if ev.State != StateAwaitingStitch {
		return nil, fmt.Errorf("%w: item is %s", ErrConflict, ev.State)
	}

	settings, err := s.settingsOf(ctx, item.ItemTaskKey)
	if err != nil {
		return nil, err
	}
	levels, err := s.Store.ListGradeLevels(ctx, item.ItemTaskKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load grade levels: %v", ErrPersistence, err)
	}

	d := &model.StitchDecisionModel{
		StitchItemKey:             item.ItemKey,
		StitchCorrectionFinalized: status,
		StitchFinalPoints:         in.FinalPoints,
		StitchComment:             in.StitchComment,
		StitchDecidedBy:           v.UserKey,
		StitchDecidedAt:           s.now(),
	}
	if in.FinalPoints != nil && settings.SettingsMaxPoints > 0 && *in.FinalPoints > settings.SettingsMaxPoints {
		return nil, fmt.Errorf("%w: final points above %.2f", ErrInvalid, settings.SettingsMaxPoints)
	}
	switch {
	case in.GradeKey != nil && *in.GradeKey != "":
		if !hasLevel(levels, *in.GradeKey) {
			return nil, fmt.Errorf("%w: unknown grade %q", ErrInvalid, *in.GradeKey)
		}
		d.StitchGradeKey = in.GradeKey
	case in.FinalPoints != nil:
		d.StitchGradeKey = gradeKeyFor(levels, *in.FinalPoints)
	}

	if err := s.Store.SaveStitchDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("%w: save stitch decision: %v", ErrPersistence, err)
	}
	s.Escalation.Forget(item.ItemKey)

	if s.Gate != nil && v.UserKey != "" {
		if _, err := s.Gate.Invalidate(ctx, v.UserKey, model.TokenPurposeData); err != nil {
			log.Printf("[CorrectionService] stitch %s: token rotation failed: %v", item.ItemKey, err)
		}
	}
	return d, nil
}
