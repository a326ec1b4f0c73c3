// file: internals/features/correction/service/escalation.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
)

type EscalationState string

const (
	StateGrading        EscalationState = "grading"
	StateAwaitingStitch EscalationState = "awaiting_stitch"
	StateResolved       EscalationState = "resolved"
	StateFinalized      EscalationState = "finalized"
)

// Evaluation is the computed grading state of one item.
type Evaluation struct {
	ItemKey         string
	State           EscalationState
	CorrectorCount  int
	AuthorizedCount int
	Distance        *float64
	CombinedPoints  *float64
	FinalPoints     *float64
	FinalGradeKey   *string
}

// ProjectFor withholds the numbers a corrector could derive a peer's points
// from when peers may not see each other's results.
func (e Evaluation) ProjectFor(v Viewer, p Policy) Evaluation {
	if v.Privileged() || p.MutualVisibility {
		return e
	}
	return Evaluation{
		ItemKey:         e.ItemKey,
		State:           e.State,
		CorrectorCount:  e.CorrectorCount,
		AuthorizedCount: e.AuthorizedCount,
	}
}

func (e Evaluation) DTO() dto.EscalationDTO {
	return dto.EscalationDTO{
		State:           string(e.State),
		CorrectorCount:  e.CorrectorCount,
		AuthorizedCount: e.AuthorizedCount,
		Distance:        e.Distance,
		CombinedPoints:  e.CombinedPoints,
		FinalPoints:     e.FinalPoints,
		FinalGradeKey:   e.FinalGradeKey,
	}
}

func gradeKeyFor(levels []model.GradeLevelModel, points float64) *string {
	if lv := model.GradeForPoints(levels, points); lv != nil {
		k := lv.GradeLevelKey
		return &k
	}
	return nil
}

// Decide computes the escalation state from the current summaries. It is pure;
// the Evaluator memoizes it per item.
func Decide(
	settings *model.CorrectionSettingsModel,
	levels []model.GradeLevelModel,
	assigned []model.AssignedCorrector,
	summaries []model.CorrectionSummaryModel,
	stitch *model.StitchDecisionModel,
) Evaluation {
	if settings == nil {
		settings = &model.CorrectionSettingsModel{}
	}
	ev := Evaluation{State: StateGrading, CorrectorCount: len(assigned)}

	byCorrector := make(map[string]*model.CorrectionSummaryModel, len(summaries))
	for i := range summaries {
		byCorrector[summaries[i].SummaryCorrectorKey] = &summaries[i]
	}

	var points []float64
	missingPoints := false
	for _, c := range assigned {
		s := byCorrector[c.CorrectorKey]
		if !s.IsLocked() {
			continue
		}
		ev.AuthorizedCount++
		if s.SummaryPoints == nil {
			missingPoints = true
			continue
		}
		points = append(points, *s.SummaryPoints)
	}

	if stitch.IsFinal() {
		ev.State = StateFinalized
		ev.FinalPoints = stitch.StitchFinalPoints
		ev.FinalGradeKey = stitch.StitchGradeKey
		if ev.FinalGradeKey == nil && ev.FinalPoints != nil {
			ev.FinalGradeKey = gradeKeyFor(levels, *ev.FinalPoints)
		}
		return ev
	}

	if len(assigned) == 0 || ev.AuthorizedCount < len(assigned) {
		return ev
	}
	if missingPoints {
		ev.State = StateAwaitingStitch
		return ev
	}

	decimals := settings.SettingsStitchWhenDecimals
	lo, hi := roundTo(points[0], decimals), roundTo(points[0], decimals)
	for _, p := range points[1:] {
		r := roundTo(p, decimals)
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	dist := roundTo(hi-lo, decimals)
	ev.Distance = &dist

	if dist > settings.StitchThreshold() {
		ev.State = StateAwaitingStitch
		return ev
	}

	combined := roundTo(CombinerFor(settings.SettingsCombinationRule)(points), 2)
	ev.State = StateResolved
	ev.CombinedPoints = &combined
	ev.FinalPoints = &combined
	ev.FinalGradeKey = gradeKeyFor(levels, combined)
	return ev
}

/* =========================================================
   Memoized evaluator
========================================================= */

type Evaluator struct {
	Store repository.Store
	memo  *cache.Cache
}

// NewEvaluator memoizes evaluations for ttl; ttl <= 0 disables the memo.
func NewEvaluator(store repository.Store, ttl time.Duration) *Evaluator {
	e := &Evaluator{Store: store}
	if ttl > 0 {
		e.memo = cache.New(ttl, 2*ttl)
	}
	return e
}

func (e *Evaluator) Evaluate(ctx context.Context, item *model.CorrectionItemModel) (Evaluation, error) {
	if e.memo != nil {
		if v, ok := e.memo.Get(item.ItemKey); ok {
			return v.(Evaluation), nil
		}
	}

	settings, err := e.Store.GetSettings(ctx, item.ItemTaskKey)
	if err != nil && !repository.IsNotFound(err) {
		return Evaluation{}, fmt.Errorf("load settings: %w", err)
	}
	levels, err := e.Store.ListGradeLevels(ctx, item.ItemTaskKey)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load grade levels: %w", err)
	}
	assigned, err := e.Store.ListCorrectorsOfItem(ctx, item.ItemKey)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load correctors: %w", err)
	}
	summaries, err := e.Store.ListSummaries(ctx, item.ItemKey)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load summaries: %w", err)
	}
	stitch, err := e.Store.GetStitchDecision(ctx, item.ItemKey)
	if err != nil {
		if !repository.IsNotFound(err) {
			return Evaluation{}, fmt.Errorf("load stitch decision: %w", err)
		}
		stitch = nil
	}

	ev := Decide(settings, levels, assigned, summaries, stitch)
	ev.ItemKey = item.ItemKey
	if e.memo != nil {
		e.memo.SetDefault(item.ItemKey, ev)
	}
	return ev, nil
}

// Forget drops memoized evaluations; called whenever summaries or the stitch
// decision of an item change.
func (e *Evaluator) Forget(itemKeys ...string) {
	if e.memo == nil {
		return
	}
	for _, k := range itemKeys {
		e.memo.Delete(k)
	}
}
