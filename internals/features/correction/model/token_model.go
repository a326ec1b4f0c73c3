// file: internals/features/correction/model/token_model.go
package model

import "time"

type TokenPurpose string

const (
	TokenPurposeData TokenPurpose = "data"
	TokenPurposeFile TokenPurpose = "file"
)

// AccessTokenModel keeps only a hash of the current token value.
type AccessTokenModel struct {
	TokenUserKey    string       `gorm:"type:varchar(64);primaryKey;column:token_user_key"`
	TokenPurpose    TokenPurpose `gorm:"type:varchar(8);primaryKey;column:token_purpose"`
	TokenHash       string       `gorm:"type:varchar(100);not null;column:token_hash"`
	TokenIssuedAt   time.Time    `gorm:"type:timestamptz;not null;column:token_issued_at"`
	TokenValidUntil time.Time    `gorm:"type:timestamptz;not null;index;column:token_valid_until"`
}

func (AccessTokenModel) TableName() string { return "correction_access_tokens" }

// AllModels lists every table of the correction feature for AutoMigrate.
func AllModels() []any {
	return []any{
		&CorrectionTaskModel{},
		&CorrectionSettingsModel{},
		&GradeLevelModel{},
		&RatingCriterionModel{},
		&ResourceModel{},
		&CorrectionItemModel{},
		&WrittenEssayModel{},
		&PageModel{},
		&CorrectorModel{},
		&CorrectorAssignmentModel{},
		&CorrectionCommentModel{},
		&CorrectionPointsModel{},
		&CorrectionSummaryModel{},
		&StitchDecisionModel{},
		&AccessTokenModel{},
	}
}
