// file: internals/features/correction/service/visibility.go
package service

import (
	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
)

// Viewer is the caller of a read or write, as established by the auth layer.
type Viewer struct {
	UserKey      string
	TaskKey      string
	CorrectorKey string

	Review         bool
	StitchDecision bool
}

// Privileged viewers see every corrector's work and need no corrector key.
func (v Viewer) Privileged() bool { return v.Review || v.StitchDecision }

func (v Viewer) HasIdentity() bool { return v.CorrectorKey != "" || v.Privileged() }

type Disclosure int

const (
	DisclosePlaceholder Disclosure = iota
	DiscloseStatus
	DiscloseFull
)

func (d Disclosure) String() string {
	switch d {
	case DiscloseFull:
		return "full"
	case DiscloseStatus:
		return "status"
	default:
		return "placeholder"
	}
}

// DetailRules says which underlying detail of a corrector goes out.
type DetailRules struct {
	Comments       bool
	CommentRatings bool
	CommentPoints  bool
	CriteriaPoints bool
}

func (r DetailRules) Any() bool {
	return r.Comments || r.CommentPoints || r.CriteriaPoints
}

type Policy struct {
	MutualVisibility bool
}

func PolicyOf(settings *model.CorrectionSettingsModel) Policy {
	if settings == nil {
		return Policy{MutualVisibility: true}
	}
	return Policy{MutualVisibility: settings.SettingsMutualVisibility}
}

// isOwn: the viewer describes their own work.
func isOwn(v Viewer, correctorKey string) bool {
	return v.CorrectorKey != "" && v.CorrectorKey == correctorKey
}

func (p Policy) Disclosure(v Viewer, correctorKey string, s *model.CorrectionSummaryModel) Disclosure {
	if isOwn(v, correctorKey) || v.Privileged() {
		return DiscloseFull
	}
	if s == nil || !s.SummaryIsAuthorized {
		return DisclosePlaceholder
	}
	if !p.MutualVisibility {
		return DiscloseStatus
	}
	return DiscloseFull
}

func (p Policy) Details(v Viewer, correctorKey string, s *model.CorrectionSummaryModel) DetailRules {
	if isOwn(v, correctorKey) || v.Privileged() {
		return DetailRules{Comments: true, CommentRatings: true, CommentPoints: true, CriteriaPoints: true}
	}
	if p.Disclosure(v, correctorKey, s) != DiscloseFull {
		return DetailRules{}
	}
	inc := s.SummaryInclusions
	return DetailRules{
		Comments:       inc.Comments,
		CommentRatings: inc.Comments && inc.CommentRatings,
		CommentPoints:  inc.CommentPoints,
		CriteriaPoints: inc.CriteriaPoints,
	}
}

/* =========================================================
   Projections
========================================================= */

func ProjectSummary(d Disclosure, s *model.CorrectionSummaryModel) dto.SummaryDTO {
	switch {
	case s == nil || d == DisclosePlaceholder:
		return dto.SummaryDTO{}
	case d == DiscloseStatus:
		return dto.SummaryDTO{IsAuthorized: s.SummaryIsAuthorized}
	}
	key := s.SummaryKey
	lc := s.SummaryLastChange
	inc := s.SummaryInclusions
	return dto.SummaryDTO{
		Key:          &key,
		Text:         s.SummaryText,
		Points:       s.SummaryPoints,
		GradeKey:     s.SummaryGradeKey,
		LastChange:   &lc,
		IsAuthorized: s.SummaryIsAuthorized,
		Inclusions:   &inc,
	}
}

func ProjectComments(rows []model.CorrectionCommentModel, r DetailRules) []dto.CommentDTO {
	if !r.Comments {
		return nil
	}
	out := make([]dto.CommentDTO, 0, len(rows))
	for i := range rows {
		c := &rows[i]
		d := dto.CommentDTO{
			Key:           c.CommentKey,
			ItemKey:       c.CommentItemKey,
			CorrectorKey:  c.CommentCorrectorKey,
			StartPosition: c.CommentStartPosition,
			EndPosition:   c.CommentEndPosition,
			ParentNumber:  c.CommentParentNumber,
			Comment:       c.CommentText,
			PageNumber:    c.CommentPageNumber,
			Marks:         c.Marks(),
		}
		if r.CommentRatings {
			d.Rating = string(c.CommentRating)
		}
		if r.CommentPoints {
			d.Points = c.CommentPoints
		}
		out = append(out, d)
	}
	return out
}

// ProjectPoints projects the point allocations of one corrector. known holds
// the keys of comments that still exist; any other comment key is dangling
// and the allocation counts as a whole-essay score.
func ProjectPoints(rows []model.CorrectionPointsModel, known map[string]bool, shown map[string]bool, r DetailRules) []dto.PointsDTO {
	out := make([]dto.PointsDTO, 0, len(rows))
	for i := range rows {
		p := &rows[i]
		linked := p.PointsCommentKey != "" && known[p.PointsCommentKey]
		if linked && (!r.CommentPoints || !shown[p.PointsCommentKey]) {
			continue
		}
		if !linked && !r.CriteriaPoints {
			continue
		}
		d := dto.PointsDTO{
			Key:          p.PointsKey,
			ItemKey:      p.PointsItemKey,
			CorrectorKey: p.PointsCorrectorKey,
			CriterionKey: p.PointsCriterionKey,
			Points:       p.PointsValue,
		}
		if linked {
			ck := p.PointsCommentKey
			d.CommentKey = &ck
		}
		out = append(out, d)
	}
	return out
}
