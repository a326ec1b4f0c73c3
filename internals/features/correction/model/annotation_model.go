// file: internals/features/correction/model/annotation_model.go
package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Keys created by the corrector app before the first save start with "temp".
const TemporaryKeyPrefix = "temp"

func IsTemporaryKey(key string) bool {
	return len(key) >= len(TemporaryKeyPrefix) &&
		strings.EqualFold(key[:len(TemporaryKeyPrefix)], TemporaryKeyPrefix)
}

/* =========================
   Comments
========================= */

type CommentRating string

const (
	RatingNone      CommentRating = ""
	RatingCardinal  CommentRating = "cardinal"
	RatingFailure   CommentRating = "failure"
	RatingExcellent CommentRating = "excellent"
)

// MarkPoint is one vertex of a mark on a page image, in page pixels.
type MarkPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Mark anchors a comment to a region of a scanned page.
type Mark struct {
	Key     string      `json:"key"`
	Shape   string      `json:"shape"`
	Pos     MarkPoint   `json:"pos"`
	Polygon []MarkPoint `json:"polygon"`
}

type CorrectionCommentModel struct {
	CommentKey          string `gorm:"type:varchar(64);primaryKey;column:comment_key" json:"key"`
	CommentClientKey    string `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_comment_client,priority:2,where:comment_client_key <> '';column:comment_client_key" json:"-"`
	CommentItemKey      string `gorm:"type:varchar(64);not null;index;column:comment_item_key" json:"item_key"`
	CommentCorrectorKey string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_comment_client,priority:1,where:comment_client_key <> '';column:comment_corrector_key" json:"corrector_key"`

	CommentStartPosition int `gorm:"not null;default:0;column:comment_start_position" json:"start_position"`
	CommentEndPosition   int `gorm:"not null;default:0;column:comment_end_position" json:"end_position"`
	CommentParentNumber  int `gorm:"not null;default:0;column:comment_parent_number" json:"parent_number"`

	CommentText   string        `gorm:"type:text;not null;default:'';column:comment_text" json:"comment"`
	CommentRating CommentRating `gorm:"type:varchar(16);not null;default:'';column:comment_rating" json:"rating"`
	CommentPoints *float64      `gorm:"type:numeric(8,2);column:comment_points" json:"points,omitempty"`

	CommentPageNumber *int          `gorm:"column:comment_page_number" json:"page_number,omitempty"`
	CommentMarks      datatypes.JSON `gorm:"type:jsonb;column:comment_marks" json:"marks,omitempty"`

	CommentCreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();column:comment_created_at" json:"-"`
	CommentUpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();column:comment_updated_at" json:"-"`
}

func (CorrectionCommentModel) TableName() string { return "correction_comments" }

func (c *CorrectionCommentModel) Marks() []Mark {
	if len(c.CommentMarks) == 0 {
		return nil
	}
	var out []Mark
	if err := json.Unmarshal(c.CommentMarks, &out); err != nil {
		return nil
	}
	return out
}

func (c *CorrectionCommentModel) SetMarks(marks []Mark) error {
	if len(marks) == 0 {
		c.CommentMarks = nil
		return nil
	}
	b, err := json.Marshal(marks)
	if err != nil {
		return err
	}
	c.CommentMarks = datatypes.JSON(b)
	return nil
}

/* =========================
   Points
========================= */

// CorrectionPointsModel references its comment one-way; comments never
// point back. An empty comment key means a whole-essay criterion score.
type CorrectionPointsModel struct {
	PointsKey          string  `gorm:"type:varchar(64);primaryKey;column:points_key" json:"key"`
	PointsClientKey    string  `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_points_client,priority:2,where:points_client_key <> '';column:points_client_key" json:"-"`
	PointsItemKey      string  `gorm:"type:varchar(64);not null;index;column:points_item_key" json:"item_key"`
	PointsCorrectorKey string  `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_points_client,priority:1,where:points_client_key <> '';column:points_corrector_key" json:"corrector_key"`
	PointsCommentKey   string  `gorm:"type:varchar(64);not null;default:'';index;column:points_comment_key" json:"comment_key"`
	PointsCriterionKey string  `gorm:"type:varchar(64);not null;column:points_criterion_key" json:"criterion_key"`
	PointsValue        float64 `gorm:"type:numeric(8,2);not null;default:0;column:points_value" json:"points"`

	PointsUpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();column:points_updated_at" json:"-"`
}

func (CorrectionPointsModel) TableName() string { return "correction_points" }

/* =========================
   Summary
========================= */

// SummaryInclusions says which details of a corrector are shown to others
// once the summary is disclosed.
type SummaryInclusions struct {
	Comments       bool `gorm:"not null;default:true;column:comments" json:"include_comments"`
	CommentRatings bool `gorm:"not null;default:true;column:comment_ratings" json:"include_comment_ratings"`
	CommentPoints  bool `gorm:"not null;default:true;column:comment_points" json:"include_comment_points"`
	CriteriaPoints bool `gorm:"not null;default:true;column:criteria_points" json:"include_criteria_points"`
	WriterNotes    bool `gorm:"not null;default:true;column:writer_notes" json:"include_writer_notes"`
}

func AllInclusions() SummaryInclusions {
	return SummaryInclusions{
		Comments:       true,
		CommentRatings: true,
		CommentPoints:  true,
		CriteriaPoints: true,
		WriterNotes:    true,
	}
}

type CorrectionSummaryModel struct {
	SummaryKey          string `gorm:"type:varchar(64);not null;uniqueIndex;column:summary_key" json:"key"`
	SummaryItemKey      string `gorm:"type:varchar(64);primaryKey;column:summary_item_key" json:"item_key"`
	SummaryCorrectorKey string `gorm:"type:varchar(64);primaryKey;column:summary_corrector_key" json:"corrector_key"`

	SummaryText         *string  `gorm:"type:text;column:summary_text" json:"text"`
	SummaryPoints       *float64 `gorm:"type:numeric(8,2);column:summary_points" json:"points"`
	SummaryGradeKey     *string  `gorm:"type:varchar(64);column:summary_grade_key" json:"grade_key"`
	SummaryLastChange   int64    `gorm:"not null;default:0;column:summary_last_change" json:"last_change"`
	SummaryIsAuthorized bool     `gorm:"not null;default:false;column:summary_is_authorized" json:"is_authorized"`

	SummaryInclusions SummaryInclusions `gorm:"embedded;embeddedPrefix:summary_include_" json:"inclusions"`
}

func (CorrectionSummaryModel) TableName() string { return "correction_summaries" }

// IsLocked: an authorized summary freezes the corrector's work on the item.
func (s *CorrectionSummaryModel) IsLocked() bool {
	return s != nil && s.SummaryIsAuthorized
}

/* =========================
   Stitch decision
========================= */

type FinalizedStatus int

const (
	FinalizedOpen FinalizedStatus = 0
	FinalizedDone FinalizedStatus = 1
)

func (s FinalizedStatus) IsTerminal() bool { return s == FinalizedDone }

type StitchDecisionModel struct {
	StitchItemKey             string          `gorm:"type:varchar(64);primaryKey;column:stitch_item_key" json:"item_key"`
	StitchCorrectionFinalized FinalizedStatus `gorm:"type:smallint;not null;default:0;column:stitch_correction_finalized" json:"correction_finalized"`
	StitchFinalPoints         *float64        `gorm:"type:numeric(8,2);column:stitch_final_points" json:"final_points"`
	StitchGradeKey            *string         `gorm:"type:varchar(64);column:stitch_grade_key" json:"grade_key"`
	StitchComment             *string         `gorm:"type:text;column:stitch_comment" json:"stitch_comment"`
	StitchDecidedBy           string          `gorm:"type:varchar(64);not null;default:'';column:stitch_decided_by" json:"decided_by"`
	StitchDecidedAt           time.Time       `gorm:"type:timestamptz;not null;default:now();column:stitch_decided_at" json:"decided_at"`
}

func (StitchDecisionModel) TableName() string { return "stitch_decisions" }

func (d *StitchDecisionModel) IsFinal() bool {
	return d != nil && d.StitchCorrectionFinalized.IsTerminal()
}
