// file: internals/features/correction/service/reconciler.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
)

/*
ApplyChanges replays a batch of offline edits of one corrector.

Order: comments → points → summaries. Records are applied one by one; a
rejected record never aborts the batch. The outcome maps client key →
persisted key (nil for a confirmed delete); rejected records are absent
from the outcome and listed under Rejected with a reason.
*/
func (s *CorrectionService) ApplyChanges(ctx context.Context, batch *dto.ChangeBatch, actor Viewer) (*dto.ChangeResult, error) {
	return s.applyChanges(ctx, batch, actor, "")
}

// ApplyItemChanges is ApplyChanges restricted to one item; records for other
// items are rejected as mismatches.
func (s *CorrectionService) ApplyItemChanges(ctx context.Context, itemKey string, batch *dto.ChangeBatch, actor Viewer) (*dto.ChangeResult, error) {
	if itemKey == "" {
		return nil, ErrInvalid
	}
	return s.applyChanges(ctx, batch, actor, itemKey)
}

func (s *CorrectionService) applyChanges(ctx context.Context, batch *dto.ChangeBatch, actor Viewer, scope string) (*dto.ChangeResult, error) {
	if actor.CorrectorKey == "" {
		return nil, ErrForbidden
	}
	if batch == nil {
		return nil, ErrInvalid
	}

	r := &batchRun{
		svc:         s,
		actor:       actor,
		now:         s.now(),
		res:         dto.NewChangeResult(),
		items:       map[string]*eligibility{},
		commentKeys: map[string]string{},
		criteria:    map[string]map[string]model.RatingCriterionModel{},
		settings:    map[string]*model.CorrectionSettingsModel{},
		levels:      map[string][]model.GradeLevelModel{},
		touched:     map[string]struct{}{},
	}

	for _, ch := range batch.Comments {
		key, reason := r.inScope(scope, ch.ItemKey)
		if reason == "" {
			key, reason = r.applyComment(ctx, ch)
		}
		r.record(r.res.Comments, r.res.Rejected.Comments, ch.Key, ch.ItemKey, key, reason)
	}
	for _, ch := range batch.Points {
		key, reason := r.inScope(scope, ch.ItemKey)
		if reason == "" {
			key, reason = r.applyPoints(ctx, ch)
		}
		r.record(r.res.Points, r.res.Rejected.Points, ch.Key, ch.ItemKey, key, reason)
	}
	for _, ch := range batch.Summaries {
		key, reason := r.inScope(scope, ch.ItemKey)
		if reason == "" {
			key, reason = r.applySummary(ctx, ch)
		}
		r.record(r.res.Summaries, r.res.Rejected.Summaries, ch.Key, ch.ItemKey, key, reason)
	}

	if r.res.Applied() > 0 {
		r.afterApplied(ctx)
	}
	return r.res, nil
}

/* =========================================================
   Batch state (discarded when the request ends)
========================================================= */

type eligibility struct {
	item    *model.CorrectionItemModel
	summary *model.CorrectionSummaryModel
	reason  Reason
}

type batchRun struct {
	svc   *CorrectionService
	actor Viewer
	now   time.Time
	res   *dto.ChangeResult

	items       map[string]*eligibility
	commentKeys map[string]string // client comment key → persisted key
	criteria    map[string]map[string]model.RatingCriterionModel
	settings    map[string]*model.CorrectionSettingsModel
	levels      map[string][]model.GradeLevelModel
	touched     map[string]struct{}
}

func (r *batchRun) inScope(scope, itemKey string) (*string, Reason) {
	if scope != "" && itemKey != scope {
		return nil, ReasonValidationMismatch
	}
	return nil, ""
}

func (r *batchRun) record(out dto.KeyOutcome, rejected map[string]string, clientKey, itemKey string, key *string, reason Reason) {
	if reason != "" {
		rejected[clientKey] = string(reason)
		return
	}
	out[clientKey] = key
	r.touched[itemKey] = struct{}{}
}

// eligible is evaluated once per item and batch, always against the store.
func (r *batchRun) eligible(ctx context.Context, itemKey string) *eligibility {
	if e, ok := r.items[itemKey]; ok {
		return e
	}
	e := &eligibility{}
	r.items[itemKey] = e

	item, err := r.svc.Store.GetCorrectionItem(ctx, itemKey)
	if err != nil {
		e.reason = reasonOfStoreErr(err)
		return e
	}
	e.item = item

	assigned, err := r.svc.Store.IsCorrectorOfItem(ctx, itemKey, r.actor.CorrectorKey)
	switch {
	case err != nil:
		e.reason = ReasonPersistence
		return e
	case !assigned:
		e.reason = ReasonForbidden
		return e
	case !item.ItemCorrectionAllowed:
		e.reason = ReasonNotEligible
		return e
	}

	sm, err := r.svc.Store.GetSummary(ctx, itemKey, r.actor.CorrectorKey)
	if err != nil && !repository.IsNotFound(err) {
		e.reason = ReasonPersistence
		return e
	}
	if err == nil {
		e.summary = sm
		if sm.IsLocked() {
			e.reason = ReasonNotEligible
		}
	}
	return e
}

// declared checks the ownership a payload claims against the change record.
// Empty declarations default to the enclosing values.
func (r *batchRun) declared(changeKey, changeItem, key, itemKey, correctorKey string) Reason {
	if key != "" && key != changeKey {
		return ReasonValidationMismatch
	}
	if itemKey != "" && itemKey != changeItem {
		return ReasonValidationMismatch
	}
	if correctorKey != "" && correctorKey != r.actor.CorrectorKey {
		return ReasonValidationMismatch
	}
	return ""
}

func (r *batchRun) valid(v any) Reason {
	if err := r.svc.Validate.Struct(v); err != nil {
		return ReasonInvalid
	}
	return ""
}

func newKey() string { return uuid.NewString() }

/* =========================================================
   Comments
========================================================= */

// findComment resolves a client key: temporary keys through the client key
// recorded on first save, persistent keys directly.
func (r *batchRun) findComment(ctx context.Context, key string) (*model.CorrectionCommentModel, error) {
	if model.IsTemporaryKey(key) {
		return r.svc.Store.FindCommentByClientKey(ctx, r.actor.CorrectorKey, key)
	}
	return r.svc.Store.GetComment(ctx, key)
}

func (r *batchRun) ownedComment(ctx context.Context, key, itemKey string) (*model.CorrectionCommentModel, Reason) {
	c, err := r.findComment(ctx, key)
	if err != nil {
		return nil, reasonOfStoreErr(err)
	}
	if c.CommentCorrectorKey != r.actor.CorrectorKey {
		return nil, ReasonForbidden
	}
	if c.CommentItemKey != itemKey {
		return nil, ReasonValidationMismatch
	}
	return c, ""
}

func (r *batchRun) applyComment(ctx context.Context, ch dto.CommentChange) (*string, Reason) {
	if reason := r.valid(ch); reason != "" {
		return nil, reason
	}
	if e := r.eligible(ctx, ch.ItemKey); e.reason != "" {
		return nil, e.reason
	}

	if ch.Action == dto.ActionDelete {
		c, reason := r.ownedComment(ctx, ch.Key, ch.ItemKey)
		if reason != "" {
			return nil, reason
		}
		if err := r.svc.Store.DeleteComment(ctx, c.CommentKey); err != nil {
			return nil, reasonOfStoreErr(err)
		}
		return nil, ""
	}

	p := ch.Payload
	if p == nil {
		return nil, ReasonInvalid
	}
	if reason := r.declared(ch.Key, ch.ItemKey, p.Key, p.ItemKey, p.CorrectorKey); reason != "" {
		return nil, reason
	}
	if reason := r.valid(p); reason != "" {
		return nil, reason
	}

	c, reason := r.ownedComment(ctx, ch.Key, ch.ItemKey)
	created := false
	switch {
	case reason == ReasonNotFound && model.IsTemporaryKey(ch.Key):
		created = true
		c = &model.CorrectionCommentModel{
			CommentKey:          newKey(),
			CommentClientKey:    ch.Key,
			CommentItemKey:      ch.ItemKey,
			CommentCorrectorKey: r.actor.CorrectorKey,
			CommentCreatedAt:    r.now,
		}
	case reason != "":
		return nil, reason
	}

	c.CommentStartPosition = p.StartPosition
	c.CommentEndPosition = p.EndPosition
	c.CommentParentNumber = p.ParentNumber
	c.CommentText = p.Comment
	c.CommentRating = p.Rating
	c.CommentPoints = p.Points
	c.CommentPageNumber = p.PageNumber
	c.CommentUpdatedAt = r.now
	if err := c.SetMarks(p.Marks); err != nil {
		return nil, ReasonInvalid
	}

	err := r.svc.Store.SaveComment(ctx, c)
	if created && errors.Is(err, repository.ErrDuplicate) {
		// the same temporary key was saved concurrently; update that row
		if prev, reason := r.ownedComment(ctx, ch.Key, ch.ItemKey); reason == "" {
			c.CommentKey, c.CommentCreatedAt = prev.CommentKey, prev.CommentCreatedAt
			err = r.svc.Store.SaveComment(ctx, c)
		}
	}
	if err != nil {
		log.Printf("[CorrectionService] save comment %s failed: %v", ch.Key, err)
		return nil, ReasonPersistence
	}
	r.commentKeys[ch.Key] = c.CommentKey
	key := c.CommentKey
	return &key, ""
}

/* =========================================================
   Points
========================================================= */

func (r *batchRun) findPoints(ctx context.Context, key string) (*model.CorrectionPointsModel, error) {
	if model.IsTemporaryKey(key) {
		return r.svc.Store.FindPointsByClientKey(ctx, r.actor.CorrectorKey, key)
	}
	return r.svc.Store.GetPoints(ctx, key)
}

func (r *batchRun) ownedPoints(ctx context.Context, key, itemKey string) (*model.CorrectionPointsModel, Reason) {
	p, err := r.findPoints(ctx, key)
	if err != nil {
		return nil, reasonOfStoreErr(err)
	}
	if p.PointsCorrectorKey != r.actor.CorrectorKey {
		return nil, ReasonForbidden
	}
	if p.PointsItemKey != itemKey {
		return nil, ReasonValidationMismatch
	}
	return p, ""
}

// criterion returns the criterion if the actor may score it on this task.
func (r *batchRun) criterion(ctx context.Context, taskKey, key string) (*model.RatingCriterionModel, Reason) {
	byKey, ok := r.criteria[taskKey]
	if !ok {
		rows, err := r.svc.Store.ListRatingCriteria(ctx, taskKey, r.actor.CorrectorKey)
		if err != nil {
			return nil, ReasonPersistence
		}
		byKey = make(map[string]model.RatingCriterionModel, len(rows))
		for _, c := range rows {
			byKey[c.CriterionKey] = c
		}
		r.criteria[taskKey] = byKey
	}
	c, ok := byKey[key]
	if !ok {
		return nil, ReasonNotFound
	}
	return &c, ""
}

// commentRef resolves a comment key given by a points payload: first through
// the keys saved earlier in this batch, then as a literal key. A reference to
// a comment that no longer exists is kept as is and reads as whole-essay.
func (r *batchRun) commentRef(ctx context.Context, ref, itemKey string) (string, Reason) {
	if ref == "" {
		return "", ""
	}
	if persisted, ok := r.commentKeys[ref]; ok {
		return persisted, ""
	}
	c, err := r.findComment(ctx, ref)
	if err != nil {
		reason := reasonOfStoreErr(err)
		if reason != ReasonNotFound {
			return "", reason
		}
		if model.IsTemporaryKey(ref) {
			return "", ""
		}
		return ref, ""
	}
	if c.CommentCorrectorKey != r.actor.CorrectorKey || c.CommentItemKey != itemKey {
		return "", ReasonValidationMismatch
	}
	return c.CommentKey, ""
}

func (r *batchRun) applyPoints(ctx context.Context, ch dto.PointsChange) (*string, Reason) {
	if reason := r.valid(ch); reason != "" {
		return nil, reason
	}
	e := r.eligible(ctx, ch.ItemKey)
	if e.reason != "" {
		return nil, e.reason
	}

	if ch.Action == dto.ActionDelete {
		p, reason := r.ownedPoints(ctx, ch.Key, ch.ItemKey)
		if reason != "" {
			return nil, reason
		}
		if err := r.svc.Store.DeletePoints(ctx, p.PointsKey); err != nil {
			return nil, reasonOfStoreErr(err)
		}
		return nil, ""
	}

	pl := ch.Payload
	if pl == nil {
		return nil, ReasonInvalid
	}
	if reason := r.declared(ch.Key, ch.ItemKey, pl.Key, pl.ItemKey, pl.CorrectorKey); reason != "" {
		return nil, reason
	}
	if reason := r.valid(pl); reason != "" {
		return nil, reason
	}

	crit, reason := r.criterion(ctx, e.item.ItemTaskKey, pl.CriterionKey)
	if reason != "" {
		return nil, reason
	}
	if crit.CriterionPoints > 0 && pl.Points > crit.CriterionPoints {
		return nil, ReasonInvalid
	}
	commentKey, reason := r.commentRef(ctx, pl.CommentKey, ch.ItemKey)
	if reason != "" {
		return nil, reason
	}

	p, reason := r.ownedPoints(ctx, ch.Key, ch.ItemKey)
	created := false
	switch {
	case reason == ReasonNotFound && model.IsTemporaryKey(ch.Key):
		created = true
		p = &model.CorrectionPointsModel{
			PointsKey:          newKey(),
			PointsClientKey:    ch.Key,
			PointsItemKey:      ch.ItemKey,
			PointsCorrectorKey: r.actor.CorrectorKey,
		}
	case reason != "":
		return nil, reason
	}

	p.PointsCommentKey = commentKey
	p.PointsCriterionKey = pl.CriterionKey
	p.PointsValue = pl.Points
	p.PointsUpdatedAt = r.now

	err := r.svc.Store.SavePoints(ctx, p)
	if created && errors.Is(err, repository.ErrDuplicate) {
		if prev, reason := r.ownedPoints(ctx, ch.Key, ch.ItemKey); reason == "" {
			p.PointsKey = prev.PointsKey
			err = r.svc.Store.SavePoints(ctx, p)
		}
	}
	if err != nil {
		log.Printf("[CorrectionService] save points %s failed: %v", ch.Key, err)
		return nil, ReasonPersistence
	}
	key := p.PointsKey
	return &key, ""
}

/* =========================================================
   Summaries
========================================================= */

func (r *batchRun) taskConfig(ctx context.Context, taskKey string) (*model.CorrectionSettingsModel, []model.GradeLevelModel, Reason) {
	st, ok := r.settings[taskKey]
	if !ok {
		var err error
		st, err = r.svc.settingsOf(ctx, taskKey)
		if err != nil {
			return nil, nil, ReasonPersistence
		}
		r.settings[taskKey] = st
	}
	lv, ok := r.levels[taskKey]
	if !ok {
		var err error
		lv, err = r.svc.Store.ListGradeLevels(ctx, taskKey)
		if err != nil {
			return nil, nil, ReasonPersistence
		}
		r.levels[taskKey] = lv
	}
	return st, lv, ""
}

func hasLevel(levels []model.GradeLevelModel, key string) bool {
	for _, l := range levels {
		if l.GradeLevelKey == key {
			return true
		}
	}
	return false
}

func (r *batchRun) applySummary(ctx context.Context, ch dto.SummaryChange) (*string, Reason) {
	if reason := r.valid(ch); reason != "" {
		return nil, reason
	}
	e := r.eligible(ctx, ch.ItemKey)
	if e.reason != "" {
		return nil, e.reason
	}

	if ch.Action == dto.ActionDelete {
		if e.summary == nil || e.summary.SummaryKey != ch.Key {
			return nil, ReasonNotFound
		}
		if err := r.svc.Store.DeleteSummary(ctx, ch.ItemKey, r.actor.CorrectorKey); err != nil {
			return nil, reasonOfStoreErr(err)
		}
		e.summary = nil
		return nil, ""
	}

	pl := ch.Payload
	if pl == nil {
		return nil, ReasonInvalid
	}
	if reason := r.declared(ch.Key, ch.ItemKey, pl.Key, pl.ItemKey, pl.CorrectorKey); reason != "" {
		return nil, reason
	}
	if reason := r.valid(pl); reason != "" {
		return nil, reason
	}
	if pl.IsAuthorized && !e.item.ItemAuthorizationAllowed {
		return nil, ReasonForbidden
	}

	settings, levels, reason := r.taskConfig(ctx, e.item.ItemTaskKey)
	if reason != "" {
		return nil, reason
	}
	if pl.GradeKey != nil && *pl.GradeKey != "" && !hasLevel(levels, *pl.GradeKey) {
		return nil, ReasonInvalid
	}
	if pl.Points != nil && settings.SettingsMaxPoints > 0 && *pl.Points > settings.SettingsMaxPoints {
		return nil, ReasonInvalid
	}

	sm := &model.CorrectionSummaryModel{
		SummaryKey:          newKey(),
		SummaryItemKey:      ch.ItemKey,
		SummaryCorrectorKey: r.actor.CorrectorKey,
	}
	if e.summary != nil {
		sm.SummaryKey = e.summary.SummaryKey
	}
	sm.SummaryText = pl.Text
	sm.SummaryPoints = pl.Points
	sm.SummaryGradeKey = pl.GradeKey
	if sm.SummaryGradeKey != nil && *sm.SummaryGradeKey == "" {
		sm.SummaryGradeKey = nil
	}
	sm.SummaryLastChange = r.now.Unix()
	if pl.LastChange != nil {
		sm.SummaryLastChange = *pl.LastChange
	}
	sm.SummaryIsAuthorized = pl.IsAuthorized
	sm.SummaryInclusions = pl.Inclusions()

	if err := r.svc.Store.SaveSummary(ctx, sm); err != nil {
		log.Printf("[CorrectionService] save summary %s failed: %v", ch.Key, err)
		return nil, ReasonPersistence
	}
	e.summary = sm
	if sm.IsLocked() {
		e.reason = ReasonNotEligible
	}
	key := sm.SummaryKey
	return &key, ""
}

/* =========================================================
   Side effects, once per batch
========================================================= */

func (r *batchRun) afterApplied(ctx context.Context) {
	if err := r.svc.Store.SetAlive(ctx, r.actor.CorrectorKey, r.now); err != nil {
		log.Printf("[CorrectionService] set alive corrector=%s failed: %v", r.actor.CorrectorKey, err)
	}

	if r.svc.Gate != nil && r.actor.UserKey != "" {
		if tok, err := r.svc.Gate.Invalidate(ctx, r.actor.UserKey, model.TokenPurposeData); err == nil {
			r.res.DataToken = tok
		}
	}

	keys := make([]string, 0, len(r.touched))
	for k := range r.touched {
		keys = append(keys, k)
	}
	r.svc.Escalation.Forget(keys...)
}

/* =========================================================
   PUT /summary/:key
========================================================= */

// SaveSummary saves the actor's summary of one item through a one-record
// batch and turns a rejection into the matching request-level error.
func (s *CorrectionService) SaveSummary(ctx context.Context, itemKey string, payload *dto.SummaryPayload, actor Viewer) (*dto.ChangeResult, error) {
	if actor.CorrectorKey == "" {
		return nil, ErrForbidden
	}
	if payload == nil {
		return nil, ErrInvalid
	}
	item, err := s.loadItem(ctx, itemKey)
	if err != nil {
		return nil, err
	}
	ok, err := s.Store.IsCorrectorOfItem(ctx, item.ItemKey, actor.CorrectorKey)
	if err != nil {
		return nil, fmt.Errorf("%w: check assignment: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, ErrForbidden
	}

	key := payload.Key
	if key == "" {
		key = model.TemporaryKeyPrefix + "-" + uuid.NewString()
		if cur, err := s.Store.GetSummary(ctx, itemKey, actor.CorrectorKey); err == nil {
			key = cur.SummaryKey
		}
		payload.Key = key
	}

	batch := &dto.ChangeBatch{Summaries: []dto.SummaryChange{{
		Action:  dto.ActionSave,
		ItemKey: itemKey,
		Key:     key,
		Payload: payload,
	}}}
	res, err := s.ApplyChanges(ctx, batch, actor)
	if err != nil {
		return nil, err
	}
	if reason, rejected := res.Rejected.Summaries[key]; rejected {
		return res, fmt.Errorf("summary %s: %w", itemKey, Reason(reason).Err())
	}
	return res, nil
}
