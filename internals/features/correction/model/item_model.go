// file: internals/features/correction/model/item_model.go
package model

import (
	"time"
)

type CorrectionItemModel struct {
	ItemKey      string `gorm:"type:varchar(64);primaryKey;column:item_key" json:"item_key"`
	ItemTaskKey  string `gorm:"type:varchar(64);not null;index;column:item_task_key" json:"item_task_key"`
	ItemTitle    string `gorm:"type:varchar(255);not null;column:item_title" json:"item_title"`
	ItemPosition int    `gorm:"not null;default:0;column:item_position" json:"item_position"`

	// computed outside (deadlines / workflow) and pushed in as plain flags
	ItemCorrectionAllowed    bool `gorm:"not null;default:false;column:item_correction_allowed" json:"item_correction_allowed"`
	ItemAuthorizationAllowed bool `gorm:"not null;default:false;column:item_authorization_allowed" json:"item_authorization_allowed"`
}

func (CorrectionItemModel) TableName() string { return "correction_items" }

type WrittenEssayModel struct {
	EssayItemKey      string     `gorm:"type:varchar(64);primaryKey;column:essay_item_key" json:"essay_item_key"`
	EssayWrittenText  string     `gorm:"type:text;column:essay_written_text" json:"-"`
	EssayProcessed    string     `gorm:"type:text;column:essay_processed_text" json:"essay_processed_text"`
	EssayWriterNotes  *string    `gorm:"type:text;column:essay_writer_notes" json:"essay_writer_notes,omitempty"`
	EssayEditStarted  *time.Time `gorm:"type:timestamptz;column:essay_edit_started" json:"essay_edit_started,omitempty"`
	EssayEditEnded    *time.Time `gorm:"type:timestamptz;column:essay_edit_ended" json:"essay_edit_ended,omitempty"`
	EssayIsAuthorized bool       `gorm:"not null;default:false;column:essay_is_authorized" json:"essay_is_authorized"`
}

func (WrittenEssayModel) TableName() string { return "written_essays" }

type PageModel struct {
	PageKey         string `gorm:"type:varchar(64);primaryKey;column:page_key" json:"key"`
	PageItemKey     string `gorm:"type:varchar(64);not null;index;column:page_item_key" json:"item_key"`
	PageNumber      int    `gorm:"not null;column:page_number" json:"page_number"`
	PageWidth       int    `gorm:"not null;default:0;column:page_width" json:"width"`
	PageHeight      int    `gorm:"not null;default:0;column:page_height" json:"height"`
	PagePath        string `gorm:"type:text;not null;column:page_path" json:"-"`
	PageMimetype    string `gorm:"type:varchar(64);column:page_mimetype" json:"mimetype"`
	PageThumbPath   string `gorm:"type:text;column:page_thumb_path" json:"-"`
	PageThumbWidth  int    `gorm:"not null;default:0;column:page_thumb_width" json:"thumb_width"`
	PageThumbHeight int    `gorm:"not null;default:0;column:page_thumb_height" json:"thumb_height"`
}

func (PageModel) TableName() string { return "essay_pages" }

type CorrectorModel struct {
	CorrectorKey          string     `gorm:"type:varchar(64);primaryKey;column:corrector_key" json:"key"`
	CorrectorTaskKey      string     `gorm:"type:varchar(64);not null;index;column:corrector_task_key" json:"task_key"`
	CorrectorTitle        string     `gorm:"type:varchar(255);not null;column:corrector_title" json:"title"`
	CorrectorInitials     string     `gorm:"type:varchar(8);column:corrector_initials" json:"initials"`
	CorrectorLastActivity *time.Time `gorm:"type:timestamptz;column:corrector_last_activity" json:"-"`
}

func (CorrectorModel) TableName() string { return "correctors" }

// CorrectorAssignmentModel is the (item, corrector) relation; position orders
// the correctors of one item (first corrector, second corrector, ...).
type CorrectorAssignmentModel struct {
	AssignmentItemKey      string `gorm:"type:varchar(64);primaryKey;column:assignment_item_key" json:"item_key"`
	AssignmentCorrectorKey string `gorm:"type:varchar(64);primaryKey;column:assignment_corrector_key" json:"corrector_key"`
	AssignmentPosition     int    `gorm:"not null;default:0;column:assignment_position" json:"position"`
}

func (CorrectorAssignmentModel) TableName() string { return "corrector_assignments" }

// AssignedCorrector is a corrector as seen from one item.
type AssignedCorrector struct {
	CorrectorModel
	Position int
}
