// file: internals/features/correction/dto/item_dto.go
package dto

import (
	model "longessay_backend/internals/features/correction/model"
)

/* =========================================================
   GET /item/:key  : per-item document
========================================================= */

type EssayDTO struct {
	Text        *string `json:"text"`
	Started     *int64  `json:"started"`
	Ended       *int64  `json:"ended"`
	Authorized  *bool   `json:"authorized"`
	WriterNotes *string `json:"writer_notes"`
}

type PageDTO struct {
	Key         string `json:"key"`
	ItemKey     string `json:"item_key"`
	PageNumber  int    `json:"page_number"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ThumbWidth  int    `json:"thumb_width"`
	ThumbHeight int    `json:"thumb_height"`
}

// SummaryDTO is the summary projection; a placeholder has every field but
// is_authorized set to null.
type SummaryDTO struct {
	Key          *string                  `json:"key"`
	Text         *string                  `json:"text"`
	Points       *float64                 `json:"points"`
	GradeKey     *string                  `json:"grade_key"`
	LastChange   *int64                   `json:"last_change"`
	IsAuthorized bool                     `json:"is_authorized"`
	Inclusions   *model.SummaryInclusions `json:"inclusions"`
}

type CorrectorDTO struct {
	Key      string     `json:"key"`
	Title    string     `json:"title"`
	Initials string     `json:"initials"`
	Position int        `json:"position"`
	IsSelf   bool       `json:"is_self"`
	Summary  SummaryDTO `json:"summary"`
}

type CommentDTO struct {
	Key           string       `json:"key"`
	ItemKey       string       `json:"item_key"`
	CorrectorKey  string       `json:"corrector_key"`
	StartPosition int          `json:"start_position"`
	EndPosition   int          `json:"end_position"`
	ParentNumber  int          `json:"parent_number"`
	Comment       string       `json:"comment"`
	Rating        string       `json:"rating"`
	Points        *float64     `json:"points"`
	PageNumber    *int         `json:"page_number"`
	Marks         []model.Mark `json:"marks"`
}

type PointsDTO struct {
	Key          string  `json:"key"`
	ItemKey      string  `json:"item_key"`
	CorrectorKey string  `json:"corrector_key"`
	CommentKey   *string `json:"comment_key"`
	CriterionKey string  `json:"criterion_key"`
	Points       float64 `json:"points"`
}

type EscalationDTO struct {
	State           string   `json:"state"`
	CorrectorCount  int      `json:"corrector_count"`
	AuthorizedCount int      `json:"authorized_count"`
	Distance        *float64 `json:"distance"`
	CombinedPoints  *float64 `json:"combined_points"`
	FinalPoints     *float64 `json:"final_points"`
	FinalGradeKey   *string  `json:"final_grade_key"`
}

type StitchDTO struct {
	CorrectionFinalized int      `json:"correction_finalized"`
	FinalPoints         *float64 `json:"final_points"`
	GradeKey            *string  `json:"grade_key"`
	StitchComment       *string  `json:"stitch_comment"`
	DecidedAt           int64    `json:"decided_at"`
}

type ItemViewDTO struct {
	Task       TaskDTO        `json:"task"`
	Essay      EssayDTO       `json:"essay"`
	Pages      []PageDTO      `json:"pages"`
	Correctors []CorrectorDTO `json:"correctors"`
	Comments   []CommentDTO   `json:"comments"`
	Points     []PointsDTO    `json:"points"`
	Summary    *SummaryDTO    `json:"summary"`
	Escalation EscalationDTO  `json:"escalation"`
	Stitch     *StitchDTO     `json:"stitch"`
}

/* =========================================================
   Mappers
========================================================= */

func FromEssay(e *model.WrittenEssayModel) EssayDTO {
	if e == nil {
		return EssayDTO{}
	}
	text := e.EssayProcessed
	auth := e.EssayIsAuthorized
	return EssayDTO{
		Text:        &text,
		Started:     unixPtr(e.EssayEditStarted),
		Ended:       unixPtr(e.EssayEditEnded),
		Authorized:  &auth,
		WriterNotes: e.EssayWriterNotes,
	}
}

func FromPages(rows []model.PageModel) []PageDTO {
	out := make([]PageDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, PageDTO{
			Key:         p.PageKey,
			ItemKey:     p.PageItemKey,
			PageNumber:  p.PageNumber,
			Width:       p.PageWidth,
			Height:      p.PageHeight,
			ThumbWidth:  p.PageThumbWidth,
			ThumbHeight: p.PageThumbHeight,
		})
	}
	return out
}

func FromStitch(d *model.StitchDecisionModel) *StitchDTO {
	if d == nil {
		return nil
	}
	return &StitchDTO{
		CorrectionFinalized: int(d.StitchCorrectionFinalized),
		FinalPoints:         d.StitchFinalPoints,
		GradeKey:            d.StitchGradeKey,
		StitchComment:       d.StitchComment,
		DecidedAt:           d.StitchDecidedAt.Unix(),
	}
}
