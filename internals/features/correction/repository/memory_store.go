// file: internals/features/correction/repository/memory_store.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	model "longessay_backend/internals/features/correction/model"
)

// Seeder accepts catalogue and fixture rows (task files, demo data).
type Seeder interface {
	Put(ctx context.Context, row any) error
}

var (
	_ Seeder = (*MemoryStore)(nil)
	_ Seeder = (*GormStore)(nil)
)

// Put upserts any correction model row.
func (s *GormStore) Put(ctx context.Context, row any) error {
	return writeErr(s.db(ctx).Save(row).Error)
}

type pairKey struct{ item, corrector string }

// MemoryStore keeps everything in maps. Used by tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu sync.RWMutex

	tasks       map[string]model.CorrectionTaskModel
	settings    map[string]model.CorrectionSettingsModel
	resources   map[string]model.ResourceModel
	levels      map[string]model.GradeLevelModel
	criteria    map[string]model.RatingCriterionModel
	items       map[string]model.CorrectionItemModel
	essays      map[string]model.WrittenEssayModel
	pages       map[string]model.PageModel
	correctors  map[string]model.CorrectorModel
	assignments map[pairKey]model.CorrectorAssignmentModel
	comments    map[string]model.CorrectionCommentModel
	points      map[string]model.CorrectionPointsModel
	summaries   map[pairKey]model.CorrectionSummaryModel
	stitches    map[string]model.StitchDecisionModel

	// FailWrites makes every write fail; used to exercise persistence errors.
	FailWrites bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:       map[string]model.CorrectionTaskModel{},
		settings:    map[string]model.CorrectionSettingsModel{},
		resources:   map[string]model.ResourceModel{},
		levels:      map[string]model.GradeLevelModel{},
		criteria:    map[string]model.RatingCriterionModel{},
		items:       map[string]model.CorrectionItemModel{},
		essays:      map[string]model.WrittenEssayModel{},
		pages:       map[string]model.PageModel{},
		correctors:  map[string]model.CorrectorModel{},
		assignments: map[pairKey]model.CorrectorAssignmentModel{},
		comments:    map[string]model.CorrectionCommentModel{},
		points:      map[string]model.CorrectionPointsModel{},
		summaries:   map[pairKey]model.CorrectionSummaryModel{},
		stitches:    map[string]model.StitchDecisionModel{},
	}
}

func (s *MemoryStore) Put(_ context.Context, row any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r := row.(type) {
	case *model.CorrectionTaskModel:
		s.tasks[r.TaskKey] = *r
	case *model.CorrectionSettingsModel:
		s.settings[r.SettingsTaskKey] = *r
	case *model.ResourceModel:
		s.resources[r.ResourceKey] = *r
	case *model.GradeLevelModel:
		s.levels[r.GradeLevelKey] = *r
	case *model.RatingCriterionModel:
		s.criteria[r.CriterionKey] = *r
	case *model.CorrectionItemModel:
		s.items[r.ItemKey] = *r
	case *model.WrittenEssayModel:
		s.essays[r.EssayItemKey] = *r
	case *model.PageModel:
		s.pages[r.PageKey] = *r
	case *model.CorrectorModel:
		s.correctors[r.CorrectorKey] = *r
	case *model.CorrectorAssignmentModel:
		s.assignments[pairKey{r.AssignmentItemKey, r.AssignmentCorrectorKey}] = *r
	case *model.CorrectionCommentModel:
		s.comments[r.CommentKey] = *r
	case *model.CorrectionPointsModel:
		s.points[r.PointsKey] = *r
	case *model.CorrectionSummaryModel:
		s.summaries[pairKey{r.SummaryItemKey, r.SummaryCorrectorKey}] = *r
	case *model.StitchDecisionModel:
		s.stitches[r.StitchItemKey] = *r
	default:
		return fmt.Errorf("memory store: unsupported row %T", row)
	}
	return nil
}

func (s *MemoryStore) failWrite() error {
	if s.FailWrites {
		return fmt.Errorf("%w: memory store is read-only", ErrWriteFailed)
	}
	return nil
}

/* =========================
   catalogue
========================= */

func (s *MemoryStore) GetTask(_ context.Context, taskKey string) (*model.CorrectionTaskModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &t, nil
}

func (s *MemoryStore) GetSettings(_ context.Context, taskKey string) (*model.CorrectionSettingsModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[taskKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &st, nil
}

func (s *MemoryStore) ListResources(_ context.Context, taskKey string) ([]model.ResourceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.ResourceModel{}
	for _, r := range s.resources {
		if r.ResourceTaskKey == taskKey {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceTitle < out[j].ResourceTitle })
	return out, nil
}

func (s *MemoryStore) GetResource(_ context.Context, resourceKey string) (*model.ResourceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[resourceKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListGradeLevels(_ context.Context, taskKey string) ([]model.GradeLevelModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.GradeLevelModel{}
	for _, l := range s.levels {
		if l.GradeLevelTaskKey == taskKey {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GradeLevelMinPoints < out[j].GradeLevelMinPoints })
	return out, nil
}

func (s *MemoryStore) ListRatingCriteria(_ context.Context, taskKey, correctorKey string) ([]model.RatingCriterionModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.RatingCriterionModel{}
	for _, c := range s.criteria {
		if c.CriterionTaskKey != taskKey {
			continue
		}
		if correctorKey != "" && !c.IsGlobal() && c.CriterionCorrectorKey != correctorKey {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CriterionCorrectorKey != out[j].CriterionCorrectorKey {
			return out[i].CriterionCorrectorKey < out[j].CriterionCorrectorKey
		}
		return out[i].CriterionTitle < out[j].CriterionTitle
	})
	return out, nil
}

/* =========================
   items
========================= */

func (s *MemoryStore) ListCorrectionItems(_ context.Context, taskKey, correctorKey string) ([]model.CorrectionItemModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.CorrectionItemModel{}
	for _, it := range s.items {
		if it.ItemTaskKey != taskKey {
			continue
		}
		if correctorKey != "" {
			if _, ok := s.assignments[pairKey{it.ItemKey, correctorKey}]; !ok {
				continue
			}
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemPosition != out[j].ItemPosition {
			return out[i].ItemPosition < out[j].ItemPosition
		}
		return out[i].ItemTitle < out[j].ItemTitle
	})
	return out, nil
}

func (s *MemoryStore) GetCorrectionItem(_ context.Context, itemKey string) (*model.CorrectionItemModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &it, nil
}

func (s *MemoryStore) GetEssay(_ context.Context, itemKey string) (*model.WrittenEssayModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.essays[itemKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &e, nil
}

func (s *MemoryStore) SetProcessedText(_ context.Context, itemKey, processed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	e, ok := s.essays[itemKey]
	if !ok {
		return ErrRecordNotFound
	}
	e.EssayProcessed = processed
	s.essays[itemKey] = e
	return nil
}

func (s *MemoryStore) ListPages(_ context.Context, itemKey string) ([]model.PageModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.PageModel{}
	for _, p := range s.pages {
		if p.PageItemKey == itemKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (s *MemoryStore) GetPage(_ context.Context, pageKey string) (*model.PageModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[pageKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &p, nil
}

/* =========================
   correctors
========================= */

func (s *MemoryStore) ListCorrectorsOfItem(_ context.Context, itemKey string) ([]model.AssignedCorrector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.AssignedCorrector{}
	for k, a := range s.assignments {
		if k.item != itemKey {
			continue
		}
		c, ok := s.correctors[k.corrector]
		if !ok {
			continue
		}
		out = append(out, model.AssignedCorrector{CorrectorModel: c, Position: a.AssignmentPosition})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CorrectorKey < out[j].CorrectorKey
	})
	return out, nil
}

func (s *MemoryStore) IsCorrectorOfItem(_ context.Context, itemKey, correctorKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assignments[pairKey{itemKey, correctorKey}]
	return ok, nil
}

func (s *MemoryStore) SetAlive(_ context.Context, correctorKey string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.correctors[correctorKey]
	if !ok {
		return ErrRecordNotFound
	}
	c.CorrectorLastActivity = &at
	s.correctors[correctorKey] = c
	return nil
}

// LastActivity exposes the liveness marker for assertions.
func (s *MemoryStore) LastActivity(correctorKey string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.correctors[correctorKey].CorrectorLastActivity
}

/* =========================
   comments
========================= */

func (s *MemoryStore) ListComments(_ context.Context, itemKey, correctorKey string) ([]model.CorrectionCommentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.CorrectionCommentModel{}
	for _, c := range s.comments {
		if c.CommentItemKey == itemKey && c.CommentCorrectorKey == correctorKey {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommentParentNumber != out[j].CommentParentNumber {
			return out[i].CommentParentNumber < out[j].CommentParentNumber
		}
		if out[i].CommentStartPosition != out[j].CommentStartPosition {
			return out[i].CommentStartPosition < out[j].CommentStartPosition
		}
		return out[i].CommentKey < out[j].CommentKey
	})
	return out, nil
}

func (s *MemoryStore) GetComment(_ context.Context, commentKey string) (*model.CorrectionCommentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[commentKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &c, nil
}

func (s *MemoryStore) FindCommentByClientKey(_ context.Context, correctorKey, clientKey string) (*model.CorrectionCommentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.comments {
		if c.CommentCorrectorKey == correctorKey && c.CommentClientKey == clientKey {
			return &c, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *MemoryStore) SaveComment(_ context.Context, c *model.CorrectionCommentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	if c.CommentClientKey != "" {
		for k, o := range s.comments {
			if k != c.CommentKey && o.CommentCorrectorKey == c.CommentCorrectorKey && o.CommentClientKey == c.CommentClientKey {
				return fmt.Errorf("%w: idx_comment_client", ErrDuplicate)
			}
		}
	}
	c.CommentUpdatedAt = time.Now().UTC()
	if c.CommentCreatedAt.IsZero() {
		c.CommentCreatedAt = c.CommentUpdatedAt
	}
	s.comments[c.CommentKey] = *c
	return nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, commentKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	if _, ok := s.comments[commentKey]; !ok {
		return ErrRecordNotFound
	}
	delete(s.comments, commentKey)
	return nil
}

/* =========================
   points
========================= */

func (s *MemoryStore) ListPoints(_ context.Context, itemKey, correctorKey string) ([]model.CorrectionPointsModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.CorrectionPointsModel{}
	for _, p := range s.points {
		if p.PointsItemKey == itemKey && p.PointsCorrectorKey == correctorKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PointsCriterionKey != out[j].PointsCriterionKey {
			return out[i].PointsCriterionKey < out[j].PointsCriterionKey
		}
		return out[i].PointsKey < out[j].PointsKey
	})
	return out, nil
}

func (s *MemoryStore) GetPoints(_ context.Context, pointsKey string) (*model.CorrectionPointsModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[pointsKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &p, nil
}

func (s *MemoryStore) FindPointsByClientKey(_ context.Context, correctorKey, clientKey string) (*model.CorrectionPointsModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.points {
		if p.PointsCorrectorKey == correctorKey && p.PointsClientKey == clientKey {
			return &p, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *MemoryStore) SavePoints(_ context.Context, p *model.CorrectionPointsModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	if p.PointsClientKey != "" {
		for k, o := range s.points {
			if k != p.PointsKey && o.PointsCorrectorKey == p.PointsCorrectorKey && o.PointsClientKey == p.PointsClientKey {
				return fmt.Errorf("%w: idx_points_client", ErrDuplicate)
			}
		}
	}
	p.PointsUpdatedAt = time.Now().UTC()
	s.points[p.PointsKey] = *p
	return nil
}

func (s *MemoryStore) DeletePoints(_ context.Context, pointsKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	if _, ok := s.points[pointsKey]; !ok {
		return ErrRecordNotFound
	}
	delete(s.points, pointsKey)
	return nil
}

/* =========================
   summaries
========================= */

func (s *MemoryStore) GetSummary(_ context.Context, itemKey, correctorKey string) (*model.CorrectionSummaryModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.summaries[pairKey{itemKey, correctorKey}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &sm, nil
}

func (s *MemoryStore) ListSummaries(_ context.Context, itemKey string) ([]model.CorrectionSummaryModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.CorrectionSummaryModel{}
	for k, sm := range s.summaries {
		if k.item == itemKey {
			out = append(out, sm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SummaryCorrectorKey < out[j].SummaryCorrectorKey })
	return out, nil
}

func (s *MemoryStore) SaveSummary(_ context.Context, sm *model.CorrectionSummaryModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	s.summaries[pairKey{sm.SummaryItemKey, sm.SummaryCorrectorKey}] = *sm
	return nil
}

func (s *MemoryStore) DeleteSummary(_ context.Context, itemKey, correctorKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	k := pairKey{itemKey, correctorKey}
	if _, ok := s.summaries[k]; !ok {
		return ErrRecordNotFound
	}
	delete(s.summaries, k)
	return nil
}

/* =========================
   stitch
========================= */

func (s *MemoryStore) GetStitchDecision(_ context.Context, itemKey string) (*model.StitchDecisionModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.stitches[itemKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &d, nil
}

func (s *MemoryStore) SaveStitchDecision(_ context.Context, d *model.StitchDecisionModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite(); err != nil {
		return err
	}
	s.stitches[d.StitchItemKey] = *d
	return nil
}
