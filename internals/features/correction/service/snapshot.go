// file: internals/features/correction/service/snapshot.go
package service

import (
	"context"
	"fmt"

	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
)

// Snapshot returns the task-level document the corrector app loads first.
// Item-level flags are always false here; they arrive with the item document.
func (s *CorrectionService) Snapshot(ctx context.Context, v Viewer) (*dto.SnapshotDTO, error) {
	if !v.HasIdentity() || v.TaskKey == "" {
		return nil, ErrForbidden
	}

	task, err := s.Store.GetTask(ctx, v.TaskKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load task: %v", ErrPersistence, err)
	}
	settings, err := s.settingsOf(ctx, v.TaskKey)
	if err != nil {
		return nil, err
	}
	resources, err := s.Store.ListResources(ctx, v.TaskKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load resources: %v", ErrPersistence, err)
	}
	levels, err := s.Store.ListGradeLevels(ctx, v.TaskKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load grade levels: %v", ErrPersistence, err)
	}

	scope := v.CorrectorKey
	if v.Privileged() {
		scope = ""
	}
	criteria, err := s.Store.ListRatingCriteria(ctx, v.TaskKey, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: load criteria: %v", ErrPersistence, err)
	}
	items, err := s.Store.ListCorrectionItems(ctx, v.TaskKey, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: load items: %v", ErrPersistence, err)
	}

	return &dto.SnapshotDTO{
		Task:      dto.FromTask(task, nil),
		Settings:  dto.FromSettings(settings),
		Resources: dto.FromResources(resources),
		Levels:    dto.FromLevels(levels),
		Criteria:  dto.FromCriteria(criteria),
		Items:     dto.FromItems(items),
	}, nil
}

// PageForViewer returns the page if the viewer may load it. itemKey is
// optional; when given the page must belong to that item.
func (s *CorrectionService) PageForViewer(ctx context.Context, v Viewer, pageKey, itemKey string) (*model.PageModel, error) {
	if !v.HasIdentity() {
		return nil, ErrForbidden
	}
	page, err := s.Store.GetPage(ctx, pageKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load page: %v", ErrPersistence, err)
	}
	if itemKey != "" && page.PageItemKey != itemKey {
		return nil, ErrNotFound
	}
	if _, err := s.itemInScope(ctx, v, page.PageItemKey); err != nil {
		return nil, err
	}
	return page, nil
}

// ResourceForViewer returns a task resource of the viewer's task.
func (s *CorrectionService) ResourceForViewer(ctx context.Context, v Viewer, resourceKey string) (*model.ResourceModel, error) {
	if !v.HasIdentity() {
		return nil, ErrForbidden
	}
	res, err := s.Store.GetResource(ctx, resourceKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load resource: %v", ErrPersistence, err)
	}
	if v.TaskKey != "" && res.ResourceTaskKey != v.TaskKey {
		return nil, ErrNotFound
	}
	return res, nil
}
