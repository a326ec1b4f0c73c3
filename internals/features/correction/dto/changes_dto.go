// file: internals/features/correction/dto/changes_dto.go
package dto

import (
	model "longessay_backend/internals/features/correction/model"
)

/* =========================================================
   PUT /changes : batch of offline edits
========================================================= */

type Action string

const (
	ActionSave   Action = "save"
	ActionDelete Action = "delete"
)

type CommentPayload struct {
	Key           string              `json:"key"`
	ItemKey       string              `json:"item_key"`
	CorrectorKey  string              `json:"corrector_key"`
	StartPosition int                 `json:"start_position" validate:"gte=0"`
	EndPosition   int                 `json:"end_position" validate:"gte=0,gtefield=StartPosition"`
	ParentNumber  int                 `json:"parent_number" validate:"gte=0"`
	Comment       string              `json:"comment" validate:"max=20000"`
	Rating        model.CommentRating `json:"rating" validate:"omitempty,oneof=cardinal failure excellent"`
	Points        *float64            `json:"points" validate:"omitempty,gte=0"`
	PageNumber    *int                `json:"page_number" validate:"omitempty,gte=1"`
	Marks         []model.Mark        `json:"marks" validate:"omitempty,max=64"`
}

type PointsPayload struct {
	Key          string  `json:"key"`
	ItemKey      string  `json:"item_key"`
	CorrectorKey string  `json:"corrector_key"`
	CommentKey   string  `json:"comment_key"`
	CriterionKey string  `json:"criterion_key" validate:"required"`
	Points       float64 `json:"points" validate:"gte=0"`
}

type SummaryPayload struct {
	Key          string   `json:"key"`
	ItemKey      string   `json:"item_key"`
	CorrectorKey string   `json:"corrector_key"`
	Text         *string  `json:"text"`
	Points       *float64 `json:"points" validate:"omitempty,gte=0"`
	GradeKey     *string  `json:"grade_key"`
	LastChange   *int64   `json:"last_change" validate:"omitempty,gte=0"`
	IsAuthorized bool     `json:"is_authorized"`

	IncludeComments       *bool `json:"include_comments"`
	IncludeCommentRatings *bool `json:"include_comment_ratings"`
	IncludeCommentPoints  *bool `json:"include_comment_points"`
	IncludeCriteriaPoints *bool `json:"include_criteria_points"`
	IncludeWriterNotes    *bool `json:"include_writer_notes"`
}

// Inclusions resolves omitted flags to "include".
func (p *SummaryPayload) Inclusions() model.SummaryInclusions {
	pick := func(b *bool) bool { return b == nil || *b }
	return model.SummaryInclusions{
		Comments:       pick(p.IncludeComments),
		CommentRatings: pick(p.IncludeCommentRatings),
		CommentPoints:  pick(p.IncludeCommentPoints),
		CriteriaPoints: pick(p.IncludeCriteriaPoints),
		WriterNotes:    pick(p.IncludeWriterNotes),
	}
}

type CommentChange struct {
	Action  Action          `json:"action" validate:"required,oneof=save delete"`
	ItemKey string          `json:"item_key" validate:"required"`
	Key     string          `json:"key" validate:"required"`
	Payload *CommentPayload `json:"payload"`
}

type PointsChange struct {
	Action  Action         `json:"action" validate:"required,oneof=save delete"`
	ItemKey string         `json:"item_key" validate:"required"`
	Key     string         `json:"key" validate:"required"`
	Payload *PointsPayload `json:"payload"`
}

type SummaryChange struct {
	Action  Action          `json:"action" validate:"required,oneof=save delete"`
	ItemKey string          `json:"item_key" validate:"required"`
	Key     string          `json:"key" validate:"required"`
	Payload *SummaryPayload `json:"payload"`
}

type ChangeBatch struct {
	Comments  []CommentChange `json:"comments"`
	Points    []PointsChange  `json:"points"`
	Summaries []SummaryChange `json:"summaries"`
}

func (b *ChangeBatch) Len() int {
	return len(b.Comments) + len(b.Points) + len(b.Summaries)
}

/* =========================================================
   Response
========================================================= */

// KeyOutcome maps client key → persisted key; nil marks a confirmed delete,
// a missing key means the change was not applied.
type KeyOutcome map[string]*string

type ChangeResult struct {
	Comments  KeyOutcome `json:"comments"`
	Points    KeyOutcome `json:"points"`
	Summaries KeyOutcome `json:"summaries"`

	Rejected struct {
		Comments  map[string]string `json:"comments"`
		Points    map[string]string `json:"points"`
		Summaries map[string]string `json:"summaries"`
	} `json:"rejected"`

	// Refetch tells the client its data token was no longer current.
	Refetch bool `json:"refetch"`

	// DataToken is the rotated data token; sent as a header, not in the body.
	DataToken string `json:"-"`
}

func NewChangeResult() *ChangeResult {
	r := &ChangeResult{
		Comments:  KeyOutcome{},
		Points:    KeyOutcome{},
		Summaries: KeyOutcome{},
	}
	r.Rejected.Comments = map[string]string{}
	r.Rejected.Points = map[string]string{}
	r.Rejected.Summaries = map[string]string{}
	return r
}

func (r *ChangeResult) Applied() int {
	return len(r.Comments) + len(r.Points) + len(r.Summaries)
}

/* =========================================================
   PUT /stitch/:key
========================================================= */

type StitchDecisionRequest struct {
	CorrectionFinalized int      `json:"correction_finalized" validate:"gte=0"`
	FinalPoints         *float64 `json:"final_points" validate:"omitempty,gte=0"`
	GradeKey            *string  `json:"grade_key"`
	StitchComment       *string  `json:"stitch_comment" validate:"omitempty,max=20000"`
}
