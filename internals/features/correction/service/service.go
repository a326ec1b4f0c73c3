// file: internals/features/correction/service/service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
	"longessay_backend/internals/features/correction/tokens"
)

// TextProcessor turns the raw authored text into the HTML shown to correctors.
// Implementations must be pure and idempotent.
type TextProcessor interface {
	ProcessWrittenText(raw string) string
}

type CorrectionService struct {
	Store      repository.Store
	Gate       *tokens.Gate
	Text       TextProcessor
	Escalation *Evaluator
	Validate   *validator.Validate

	Now func() time.Time
}

func New(store repository.Store, gate *tokens.Gate, text TextProcessor, escalation *Evaluator) *CorrectionService {
	if escalation == nil {
		escalation = NewEvaluator(store, 0)
	}
	return &CorrectionService{
		Store:      store,
		Gate:       gate,
		Text:       text,
		Escalation: escalation,
		Validate:   validator.New(),
		Now:        time.Now,
	}
}

func (s *CorrectionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CorrectionService) processText(raw string) string {
	if s.Text == nil {
		return raw
	}
	return s.Text.ProcessWrittenText(raw)
}

// loadItem maps a missing item to ErrNotFound.
func (s *CorrectionService) loadItem(ctx context.Context, itemKey string) (*model.CorrectionItemModel, error) {
	item, err := s.Store.GetCorrectionItem(ctx, itemKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load item: %v", ErrPersistence, err)
	}
	return item, nil
}

// itemInScope loads the item and checks the viewer may read it. Items outside
// the viewer's task or not assigned to a corrector viewer are reported as
// not found.
func (s *CorrectionService) itemInScope(ctx context.Context, v Viewer, itemKey string) (*model.CorrectionItemModel, error) {
	if !v.HasIdentity() {
		return nil, ErrForbidden
	}
	item, err := s.loadItem(ctx, itemKey)
	if err != nil {
		return nil, err
	}
	if v.TaskKey != "" && item.ItemTaskKey != v.TaskKey {
		return nil, ErrNotFound
	}
	if v.Privileged() {
		return item, nil
	}
	ok, err := s.Store.IsCorrectorOfItem(ctx, item.ItemKey, v.CorrectorKey)
	if err != nil {
		return nil, fmt.Errorf("%w: check assignment: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *CorrectionService) settingsOf(ctx context.Context, taskKey string) (*model.CorrectionSettingsModel, error) {
	st, err := s.Store.GetSettings(ctx, taskKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return &model.CorrectionSettingsModel{
				SettingsTaskKey:          taskKey,
				SettingsMutualVisibility: true,
				SettingsCombinationRule:  model.CombineAverage,
			}, nil
		}
		return nil, fmt.Errorf("%w: load settings: %v", ErrPersistence, err)
	}
	return st, nil
}

// Evaluate returns the escalation state of an item in the viewer's scope.
func (s *CorrectionService) Evaluate(ctx context.Context, itemKey string, v Viewer) (Evaluation, error) {
	item, err := s.itemInScope(ctx, v, itemKey)
	if err != nil {
		return Evaluation{}, err
	}
	ev, err := s.Escalation.Evaluate(ctx, item)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	settings, err := s.settingsOf(ctx, item.ItemTaskKey)
	if err != nil {
		return Evaluation{}, err
	}
	return ev.ProjectFor(v, PolicyOf(settings)), nil
}
