// file: internals/features/correction/repository/gorm_store.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "longessay_backend/internals/features/correction/model"
)

// GormStore is the Postgres implementation of Store.
type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

/* =========================
   helpers
========================= */

func readErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// writeErr classifies Postgres errors the same way the controllers of the
// backend do (23505 unique, 23503 FK).
func writeErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrRecordNotFound, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %v", ErrWriteFailed, err)
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

/* =========================
   catalogue
========================= */

func (s *GormStore) GetTask(ctx context.Context, taskKey string) (*model.CorrectionTaskModel, error) {
	var t model.CorrectionTaskModel
	if err := s.db(ctx).First(&t, "task_key = ?", taskKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &t, nil
}

func (s *GormStore) GetSettings(ctx context.Context, taskKey string) (*model.CorrectionSettingsModel, error) {
	var st model.CorrectionSettingsModel
	if err := s.db(ctx).First(&st, "settings_task_key = ?", taskKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &st, nil
}

func (s *GormStore) ListResources(ctx context.Context, taskKey string) ([]model.ResourceModel, error) {
	out := []model.ResourceModel{}
	err := s.db(ctx).
		Where("resource_task_key = ?", taskKey).
		Order("resource_title ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) GetResource(ctx context.Context, resourceKey string) (*model.ResourceModel, error) {
	var r model.ResourceModel
	if err := s.db(ctx).First(&r, "resource_key = ?", resourceKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &r, nil
}

func (s *GormStore) ListGradeLevels(ctx context.Context, taskKey string) ([]model.GradeLevelModel, error) {
	out := []model.GradeLevelModel{}
	err := s.db(ctx).
		Where("grade_level_task_key = ?", taskKey).
		Order("grade_level_min_points ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) ListRatingCriteria(ctx context.Context, taskKey, correctorKey string) ([]model.RatingCriterionModel, error) {
	out := []model.RatingCriterionModel{}
	q := s.db(ctx).Where("criterion_task_key = ?", taskKey)
	if correctorKey != "" {
		q = q.Where("criterion_corrector_key = '' OR criterion_corrector_key = ?", correctorKey)
	}
	err := q.Order("criterion_corrector_key ASC, criterion_title ASC").Find(&out).Error
	return out, err
}

/* =========================
   items
========================= */

func (s *GormStore) ListCorrectionItems(ctx context.Context, taskKey, correctorKey string) ([]model.CorrectionItemModel, error) {
	out := []model.CorrectionItemModel{}
	q := s.db(ctx).Where("item_task_key = ?", taskKey)
	if correctorKey != "" {
		q = q.Where(`EXISTS (
			SELECT 1 FROM corrector_assignments a
			WHERE a.assignment_item_key = correction_items.item_key
			  AND a.assignment_corrector_key = ?
		)`, correctorKey)
	}
	err := q.Order("item_position ASC, item_title ASC").Find(&out).Error
	return out, err
}

func (s *GormStore) GetCorrectionItem(ctx context.Context, itemKey string) (*model.CorrectionItemModel, error) {
	var it model.CorrectionItemModel
	if err := s.db(ctx).First(&it, "item_key = ?", itemKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &it, nil
}

func (s *GormStore) GetEssay(ctx context.Context, itemKey string) (*model.WrittenEssayModel, error) {
	var e model.WrittenEssayModel
	if err := s.db(ctx).First(&e, "essay_item_key = ?", itemKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &e, nil
}

func (s *GormStore) SetProcessedText(ctx context.Context, itemKey, processed string) error {
	res := s.db(ctx).Model(&model.WrittenEssayModel{}).
		Where("essay_item_key = ?", itemKey).
		Update("essay_processed_text", processed)
	if res.Error != nil {
		return writeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) ListPages(ctx context.Context, itemKey string) ([]model.PageModel, error) {
	out := []model.PageModel{}
	err := s.db(ctx).
		Where("page_item_key = ?", itemKey).
		Order("page_number ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) GetPage(ctx context.Context, pageKey string) (*model.PageModel, error) {
	var p model.PageModel
	if err := s.db(ctx).First(&p, "page_key = ?", pageKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &p, nil
}

/* =========================
   correctors
========================= */

func (s *GormStore) ListCorrectorsOfItem(ctx context.Context, itemKey string) ([]model.AssignedCorrector, error) {
	var assignments []model.CorrectorAssignmentModel
	if err := s.db(ctx).
		Where("assignment_item_key = ?", itemKey).
		Order("assignment_position ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []model.AssignedCorrector{}, nil
	}

	keys := make([]string, 0, len(assignments))
	pos := make(map[string]int, len(assignments))
	for _, a := range assignments {
		keys = append(keys, a.AssignmentCorrectorKey)
		pos[a.AssignmentCorrectorKey] = a.AssignmentPosition
	}

	var correctors []model.CorrectorModel
	if err := s.db(ctx).
		Where("corrector_key = ANY(?)", pq.Array(keys)).
		Find(&correctors).Error; err != nil {
		return nil, err
	}

	out := make([]model.AssignedCorrector, 0, len(correctors))
	for _, c := range correctors {
		out = append(out, model.AssignedCorrector{CorrectorModel: c, Position: pos[c.CorrectorKey]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *GormStore) IsCorrectorOfItem(ctx context.Context, itemKey, correctorKey string) (bool, error) {
	if correctorKey == "" {
		return false, nil
	}
	var n int64
	err := s.db(ctx).Model(&model.CorrectorAssignmentModel{}).
		Where("assignment_item_key = ? AND assignment_corrector_key = ?", itemKey, correctorKey).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) SetAlive(ctx context.Context, correctorKey string, at time.Time) error {
	return writeErr(s.db(ctx).Model(&model.CorrectorModel{}).
		Where("corrector_key = ?", correctorKey).
		Update("corrector_last_activity", at).Error)
}

/* =========================
   comments
========================= */

func (s *GormStore) ListComments(ctx context.Context, itemKey, correctorKey string) ([]model.CorrectionCommentModel, error) {
	out := []model.CorrectionCommentModel{}
	err := s.db(ctx).
		Where("comment_item_key = ? AND comment_corrector_key = ?", itemKey, correctorKey).
		Order("comment_parent_number ASC, comment_start_position ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) GetComment(ctx context.Context, commentKey string) (*model.CorrectionCommentModel, error) {
	var c model.CorrectionCommentModel
	if err := s.db(ctx).First(&c, "comment_key = ?", commentKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &c, nil
}

func (s *GormStore) FindCommentByClientKey(ctx context.Context, correctorKey, clientKey string) (*model.CorrectionCommentModel, error) {
	var c model.CorrectionCommentModel
	if err := s.db(ctx).
		First(&c, "comment_corrector_key = ? AND comment_client_key = ?", correctorKey, clientKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &c, nil
}

func (s *GormStore) SaveComment(ctx context.Context, c *model.CorrectionCommentModel) error {
	c.CommentUpdatedAt = time.Now().UTC()
	if c.CommentCreatedAt.IsZero() {
		c.CommentCreatedAt = c.CommentUpdatedAt
	}
	return writeErr(s.db(ctx).Save(c).Error)
}

func (s *GormStore) DeleteComment(ctx context.Context, commentKey string) error {
	res := s.db(ctx).Where("comment_key = ?", commentKey).Delete(&model.CorrectionCommentModel{})
	if res.Error != nil {
		return writeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

/* =========================
   points
========================= */

func (s *GormStore) ListPoints(ctx context.Context, itemKey, correctorKey string) ([]model.CorrectionPointsModel, error) {
	out := []model.CorrectionPointsModel{}
	err := s.db(ctx).
		Where("points_item_key = ? AND points_corrector_key = ?", itemKey, correctorKey).
		Order("points_criterion_key ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) GetPoints(ctx context.Context, pointsKey string) (*model.CorrectionPointsModel, error) {
	var p model.CorrectionPointsModel
	if err := s.db(ctx).First(&p, "points_key = ?", pointsKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &p, nil
}

func (s *GormStore) FindPointsByClientKey(ctx context.Context, correctorKey, clientKey string) (*model.CorrectionPointsModel, error) {
	var p model.CorrectionPointsModel
	if err := s.db(ctx).
		First(&p, "points_corrector_key = ? AND points_client_key = ?", correctorKey, clientKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &p, nil
}

func (s *GormStore) SavePoints(ctx context.Context, p *model.CorrectionPointsModel) error {
	p.PointsUpdatedAt = time.Now().UTC()
	return writeErr(s.db(ctx).Save(p).Error)
}

func (s *GormStore) DeletePoints(ctx context.Context, pointsKey string) error {
	res := s.db(ctx).Where("points_key = ?", pointsKey).Delete(&model.CorrectionPointsModel{})
	if res.Error != nil {
		return writeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

/* =========================
   summaries
========================= */

func (s *GormStore) GetSummary(ctx context.Context, itemKey, correctorKey string) (*model.CorrectionSummaryModel, error) {
	var sm model.CorrectionSummaryModel
	if err := s.db(ctx).
		First(&sm, "summary_item_key = ? AND summary_corrector_key = ?", itemKey, correctorKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &sm, nil
}

func (s *GormStore) ListSummaries(ctx context.Context, itemKey string) ([]model.CorrectionSummaryModel, error) {
	out := []model.CorrectionSummaryModel{}
	err := s.db(ctx).Where("summary_item_key = ?", itemKey).Find(&out).Error
	return out, err
}

// SaveSummary upserts on (item, corrector); the pair holds at most one row.
func (s *GormStore) SaveSummary(ctx context.Context, sm *model.CorrectionSummaryModel) error {
	return writeErr(s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "summary_item_key"}, {Name: "summary_corrector_key"}},
		UpdateAll: true,
	}).Create(sm).Error)
}

func (s *GormStore) DeleteSummary(ctx context.Context, itemKey, correctorKey string) error {
	res := s.db(ctx).
		Where("summary_item_key = ? AND summary_corrector_key = ?", itemKey, correctorKey).
		Delete(&model.CorrectionSummaryModel{})
	if res.Error != nil {
		return writeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

/* =========================
   stitch
========================= */

func (s *GormStore) GetStitchDecision(ctx context.Context, itemKey string) (*model.StitchDecisionModel, error) {
	var d model.StitchDecisionModel
	if err := s.db(ctx).First(&d, "stitch_item_key = ?", itemKey).Error; err != nil {
		return nil, readErr(err)
	}
	return &d, nil
}

func (s *GormStore) SaveStitchDecision(ctx context.Context, d *model.StitchDecisionModel) error {
	return writeErr(s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stitch_item_key"}},
		UpdateAll: true,
	}).Create(d).Error)
}
