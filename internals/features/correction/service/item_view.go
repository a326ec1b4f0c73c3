// file: internals/features/correction/service/item_view.go
package service

import (
	"context"
	"fmt"
	"log"

	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
)

// ItemView builds the per-item document as the viewer may see it.
func (s *CorrectionService) ItemView(ctx context.Context, itemKey string, v Viewer) (*dto.ItemViewDTO, error) {
	item, err := s.itemInScope(ctx, v, itemKey)
	if err != nil {
		return nil, err
	}

	task, err := s.Store.GetTask(ctx, item.ItemTaskKey)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("%w: load task: %v", ErrPersistence, err)
	}
	settings, err := s.settingsOf(ctx, item.ItemTaskKey)
	if err != nil {
		return nil, err
	}

	essay, err := s.essay(ctx, item.ItemKey)
	if err != nil {
		return nil, err
	}
	pages, err := s.Store.ListPages(ctx, item.ItemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load pages: %v", ErrPersistence, err)
	}
	correctors, err := s.Store.ListCorrectorsOfItem(ctx, item.ItemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load correctors: %v", ErrPersistence, err)
	}
	summaries, err := s.Store.ListSummaries(ctx, item.ItemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: load summaries: %v", ErrPersistence, err)
	}
	byCorrector := make(map[string]*model.CorrectionSummaryModel, len(summaries))
	for i := range summaries {
		byCorrector[summaries[i].SummaryCorrectorKey] = &summaries[i]
	}

	out := &dto.ItemViewDTO{
		Task:       dto.FromTask(task, item),
		Essay:      dto.FromEssay(essay),
		Pages:      dto.FromPages(pages),
		Correctors: make([]dto.CorrectorDTO, 0, len(correctors)),
		Comments:   []dto.CommentDTO{},
		Points:     []dto.PointsDTO{},
	}

	policy := PolicyOf(settings)
	for _, c := range correctors {
		sm := byCorrector[c.CorrectorKey]
		out.Correctors = append(out.Correctors, dto.CorrectorDTO{
			Key:      c.CorrectorKey,
			Title:    c.CorrectorTitle,
			Initials: c.CorrectorInitials,
			Position: c.Position,
			IsSelf:   isOwn(v, c.CorrectorKey),
			Summary:  ProjectSummary(policy.Disclosure(v, c.CorrectorKey, sm), sm),
		})

		rules := policy.Details(v, c.CorrectorKey, sm)
		if !rules.Any() {
			continue
		}
		comments, points, err := s.detailsOf(ctx, item.ItemKey, c.CorrectorKey, rules)
		if err != nil {
			return nil, err
		}
		out.Comments = append(out.Comments, comments...)
		out.Points = append(out.Points, points...)
	}

	if own := byCorrector[v.CorrectorKey]; v.CorrectorKey != "" && own != nil {
		p := ProjectSummary(DiscloseFull, own)
		out.Summary = &p
	}

	ev, err := s.Escalation.Evaluate(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	out.Escalation = ev.ProjectFor(v, policy).DTO()

	stitch, err := s.Store.GetStitchDecision(ctx, item.ItemKey)
	switch {
	case err == nil:
		out.Stitch = dto.FromStitch(stitch)
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("%w: load stitch decision: %v", ErrPersistence, err)
	}
	return out, nil
}

// essay re-derives the processed text and writes it back only when it changed.
func (s *CorrectionService) essay(ctx context.Context, itemKey string) (*model.WrittenEssayModel, error) {
	e, err := s.Store.GetEssay(ctx, itemKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load essay: %v", ErrPersistence, err)
	}
	processed := s.processText(e.EssayWrittenText)
	if processed != e.EssayProcessed {
		if err := s.Store.SetProcessedText(ctx, itemKey, processed); err != nil {
			log.Printf("[CorrectionService] cache processed text item=%s failed: %v", itemKey, err)
		}
		e.EssayProcessed = processed
	}
	return e, nil
}

func (s *CorrectionService) detailsOf(ctx context.Context, itemKey, correctorKey string, rules DetailRules) ([]dto.CommentDTO, []dto.PointsDTO, error) {
	comments, err := s.Store.ListComments(ctx, itemKey, correctorKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load comments: %v", ErrPersistence, err)
	}
	points, err := s.Store.ListPoints(ctx, itemKey, correctorKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load points: %v", ErrPersistence, err)
	}

	known := make(map[string]bool, len(comments))
	for _, c := range comments {
		known[c.CommentKey] = true
	}
	shown := known
	if !rules.Comments {
		shown = nil
	}
	return ProjectComments(comments, rules), ProjectPoints(points, known, shown, rules), nil
}
