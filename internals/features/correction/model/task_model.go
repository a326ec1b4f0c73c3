// file: internals/features/correction/model/task_model.go
package model

import (
	"time"
)

// Task, settings & catalogue (read-only for the correction core)

type CorrectionTaskModel struct {
	TaskKey           string     `gorm:"type:varchar(64);primaryKey;column:task_key" json:"task_key"`
	TaskTitle         string     `gorm:"type:varchar(255);not null;column:task_title" json:"task_title"`
	TaskInstructions  string     `gorm:"type:text;column:task_instructions" json:"task_instructions"`
	TaskCorrectionEnd *time.Time `gorm:"type:timestamptz;column:task_correction_end" json:"task_correction_end,omitempty"`

	TaskCreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();column:task_created_at" json:"task_created_at"`
	TaskUpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();column:task_updated_at" json:"task_updated_at"`
}

func (CorrectionTaskModel) TableName() string { return "correction_tasks" }

type CombinationRule string

const (
	CombineAverage CombinationRule = "average"
	CombineMinimum CombinationRule = "minimum"
	CombineMaximum CombinationRule = "maximum"
	CombineMedian  CombinationRule = "median"
)

type CorrectionSettingsModel struct {
	SettingsTaskKey string `gorm:"type:varchar(64);primaryKey;column:settings_task_key" json:"settings_task_key"`

	SettingsMutualVisibility    bool `gorm:"not null;default:true;column:settings_mutual_visibility" json:"mutual_visibility"`
	SettingsMultiColorHighlight bool `gorm:"not null;default:false;column:settings_multi_color_highlight" json:"multi_color_highlight"`

	SettingsMaxPoints          float64 `gorm:"type:numeric(8,2);not null;default:0;column:settings_max_points" json:"max_points"`
	SettingsMaxAutoDistance    float64 `gorm:"type:numeric(8,2);not null;default:0;column:settings_max_auto_distance" json:"max_auto_distance"`
	SettingsStitchWhenDistance float64 `gorm:"type:numeric(8,2);not null;default:0;column:settings_stitch_when_distance" json:"stitch_when_distance"`
	SettingsStitchWhenDecimals int     `gorm:"type:smallint;not null;default:0;column:settings_stitch_when_decimals" json:"stitch_when_decimals"`

	SettingsCombinationRule CombinationRule `gorm:"type:varchar(16);not null;default:'average';column:settings_combination_rule" json:"combination_rule"`
}

func (CorrectionSettingsModel) TableName() string { return "correction_settings" }

// StitchThreshold is the distance above which an item needs arbitration.
// Older task configurations only carry max_auto_distance.
func (s *CorrectionSettingsModel) StitchThreshold() float64 {
	if s.SettingsStitchWhenDistance > 0 {
		return s.SettingsStitchWhenDistance
	}
	return s.SettingsMaxAutoDistance
}

type GradeLevelModel struct {
	GradeLevelKey       string  `gorm:"type:varchar(64);primaryKey;column:grade_level_key" json:"key"`
	GradeLevelTaskKey   string  `gorm:"type:varchar(64);not null;index;column:grade_level_task_key" json:"task_key"`
	GradeLevelTitle     string  `gorm:"type:varchar(255);not null;column:grade_level_title" json:"title"`
	GradeLevelCode      *string `gorm:"type:varchar(32);column:grade_level_code" json:"code,omitempty"`
	GradeLevelMinPoints float64 `gorm:"type:numeric(8,2);not null;default:0;column:grade_level_min_points" json:"min_points"`
	GradeLevelPassed    bool    `gorm:"not null;default:true;column:grade_level_passed" json:"passed"`
}

func (GradeLevelModel) TableName() string { return "grade_levels" }

// GradeForPoints returns the level with the highest min_points not above points.
func GradeForPoints(levels []GradeLevelModel, points float64) *GradeLevelModel {
	var best *GradeLevelModel
	for i := range levels {
		lv := &levels[i]
		if lv.GradeLevelMinPoints > points {
			continue
		}
		if best == nil || lv.GradeLevelMinPoints > best.GradeLevelMinPoints {
			best = lv
		}
	}
	return best
}

type RatingCriterionModel struct {
	CriterionKey          string  `gorm:"type:varchar(64);primaryKey;column:criterion_key" json:"key"`
	CriterionTaskKey      string  `gorm:"type:varchar(64);not null;index;column:criterion_task_key" json:"task_key"`
	CriterionCorrectorKey string  `gorm:"type:varchar(64);not null;default:'';index;column:criterion_corrector_key" json:"corrector_key"`
	CriterionTitle        string  `gorm:"type:varchar(255);not null;column:criterion_title" json:"title"`
	CriterionDescription  string  `gorm:"type:text;column:criterion_description" json:"description"`
	CriterionPoints       float64 `gorm:"type:numeric(8,2);not null;default:0;column:criterion_points" json:"points"`
}

func (RatingCriterionModel) TableName() string { return "rating_criteria" }

// IsGlobal is true for criteria shared by all correctors of the task.
func (c *RatingCriterionModel) IsGlobal() bool { return c.CriterionCorrectorKey == "" }

type ResourceType string

const (
	ResourceInstruct ResourceType = "instruct"
	ResourceSolution ResourceType = "solution"
	ResourceFile     ResourceType = "file"
	ResourceURL      ResourceType = "url"
)

type ResourceModel struct {
	ResourceKey      string       `gorm:"type:varchar(64);primaryKey;column:resource_key" json:"key"`
	ResourceTaskKey  string       `gorm:"type:varchar(64);not null;index;column:resource_task_key" json:"task_key"`
	ResourceTitle    string       `gorm:"type:varchar(255);not null;column:resource_title" json:"title"`
	ResourceType     ResourceType `gorm:"type:varchar(16);not null;column:resource_type" json:"type"`
	ResourceSource   string       `gorm:"type:text;column:resource_source" json:"source"`
	ResourceMimetype string       `gorm:"type:varchar(128);column:resource_mimetype" json:"mimetype"`
	ResourceSize     int64        `gorm:"not null;default:0;column:resource_size" json:"size"`
	ResourcePath     string       `gorm:"type:text;column:resource_path" json:"-"`
}

func (ResourceModel) TableName() string { return "correction_resources" }
