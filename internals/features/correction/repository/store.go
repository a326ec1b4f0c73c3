// file: internals/features/correction/repository/store.go
package repository

import (
	"context"
	"errors"
	"time"

	model "longessay_backend/internals/features/correction/model"
)

var (
	// ErrRecordNotFound is returned by single-entity getters.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicate maps unique violations of the underlying store.
	ErrDuplicate = errors.New("duplicate record")
	// ErrWriteFailed wraps any other rejected write.
	ErrWriteFailed = errors.New("write failed")
)

// Store is the persistence boundary of the correction core. Lists return
// empty slices (never ErrRecordNotFound); getters return ErrRecordNotFound.
type Store interface {
	// catalogue
	GetTask(ctx context.Context, taskKey string) (*model.CorrectionTaskModel, error)
	GetSettings(ctx context.Context, taskKey string) (*model.CorrectionSettingsModel, error)
	ListResources(ctx context.Context, taskKey string) ([]model.ResourceModel, error)
	GetResource(ctx context.Context, resourceKey string) (*model.ResourceModel, error)
	ListGradeLevels(ctx context.Context, taskKey string) ([]model.GradeLevelModel, error)
	// ListRatingCriteria returns global criteria plus those of correctorKey
	// (all of them when correctorKey is empty).
	ListRatingCriteria(ctx context.Context, taskKey, correctorKey string) ([]model.RatingCriterionModel, error)

	// items
	// ListCorrectionItems returns the items assigned to correctorKey, or all
	// items of the task when correctorKey is empty.
	ListCorrectionItems(ctx context.Context, taskKey, correctorKey string) ([]model.CorrectionItemModel, error)
	GetCorrectionItem(ctx context.Context, itemKey string) (*model.CorrectionItemModel, error)
	GetEssay(ctx context.Context, itemKey string) (*model.WrittenEssayModel, error)
	SetProcessedText(ctx context.Context, itemKey, processed string) error
	ListPages(ctx context.Context, itemKey string) ([]model.PageModel, error)
	GetPage(ctx context.Context, pageKey string) (*model.PageModel, error)

	// correctors
	ListCorrectorsOfItem(ctx context.Context, itemKey string) ([]model.AssignedCorrector, error)
	IsCorrectorOfItem(ctx context.Context, itemKey, correctorKey string) (bool, error)
	SetAlive(ctx context.Context, correctorKey string, at time.Time) error

	// comments
	ListComments(ctx context.Context, itemKey, correctorKey string) ([]model.CorrectionCommentModel, error)
	GetComment(ctx context.Context, commentKey string) (*model.CorrectionCommentModel, error)
	FindCommentByClientKey(ctx context.Context, correctorKey, clientKey string) (*model.CorrectionCommentModel, error)
	SaveComment(ctx context.Context, c *model.CorrectionCommentModel) error
	DeleteComment(ctx context.Context, commentKey string) error

	// points
	ListPoints(ctx context.Context, itemKey, correctorKey string) ([]model.CorrectionPointsModel, error)
	GetPoints(ctx context.Context, pointsKey string) (*model.CorrectionPointsModel, error)
	FindPointsByClientKey(ctx context.Context, correctorKey, clientKey string) (*model.CorrectionPointsModel, error)
	SavePoints(ctx context.Context, p *model.CorrectionPointsModel) error
	DeletePoints(ctx context.Context, pointsKey string) error

	// summaries
	GetSummary(ctx context.Context, itemKey, correctorKey string) (*model.CorrectionSummaryModel, error)
	ListSummaries(ctx context.Context, itemKey string) ([]model.CorrectionSummaryModel, error)
	SaveSummary(ctx context.Context, s *model.CorrectionSummaryModel) error
	DeleteSummary(ctx context.Context, itemKey, correctorKey string) error

	// stitch
	GetStitchDecision(ctx context.Context, itemKey string) (*model.StitchDecisionModel, error)
	SaveStitchDecision(ctx context.Context, d *model.StitchDecisionModel) error
}

// IsNotFound reports whether err means the entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
