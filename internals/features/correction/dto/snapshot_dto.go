// file: internals/features/correction/dto/snapshot_dto.go
package dto

import (
	"time"

	model "longessay_backend/internals/features/correction/model"
)

/* =========================================================
   GET /data  : task snapshot
========================================================= */

type TaskDTO struct {
	Title                string `json:"title"`
	Instructions         string `json:"instructions"`
	CorrectionEnd        *int64 `json:"correction_end"`
	CorrectionAllowed    bool   `json:"correction_allowed"`
	AuthorizationAllowed bool   `json:"authorization_allowed"`
}

type SettingsDTO struct {
	MutualVisibility    bool    `json:"mutual_visibility"`
	MultiColorHighlight bool    `json:"multi_color_highlight"`
	MaxPoints           float64 `json:"max_points"`
	MaxAutoDistance     float64 `json:"max_auto_distance"`
	StitchWhenDistance  float64 `json:"stitch_when_distance"`
	StitchWhenDecimals  int     `json:"stitch_when_decimals"`
	CombinationRule     string  `json:"combination_rule"`
}

type ResourceDTO struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Source   string `json:"source"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
}

type LevelDTO struct {
	Key       string  `json:"key"`
	Title     string  `json:"title"`
	Code      *string `json:"code"`
	MinPoints float64 `json:"min_points"`
	Passed    bool    `json:"passed"`
}

type CriterionDTO struct {
	Key          string  `json:"key"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Points       float64 `json:"points"`
	CorrectorKey *string `json:"corrector_key"`
}

type ItemRefDTO struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

type SnapshotDTO struct {
	Task      TaskDTO        `json:"task"`
	Settings  SettingsDTO    `json:"settings"`
	Resources []ResourceDTO  `json:"resources"`
	Levels    []LevelDTO     `json:"levels"`
	Criteria  []CriterionDTO `json:"criteria"`
	Items     []ItemRefDTO   `json:"items"`
}

/* =========================================================
   Mappers
========================================================= */

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

// FromTask maps the task; item flags are filled when an item is loaded.
func FromTask(t *model.CorrectionTaskModel, item *model.CorrectionItemModel) TaskDTO {
	out := TaskDTO{}
	if t != nil {
		out.Title = t.TaskTitle
		out.Instructions = t.TaskInstructions
		out.CorrectionEnd = unixPtr(t.TaskCorrectionEnd)
	}
	if item != nil {
		out.CorrectionAllowed = item.ItemCorrectionAllowed
		out.AuthorizationAllowed = item.ItemAuthorizationAllowed
	}
	return out
}

func FromSettings(s *model.CorrectionSettingsModel) SettingsDTO {
	if s == nil {
		return SettingsDTO{MutualVisibility: true, CombinationRule: string(model.CombineAverage)}
	}
	rule := s.SettingsCombinationRule
	if rule == "" {
		rule = model.CombineAverage
	}
	return SettingsDTO{
		MutualVisibility:    s.SettingsMutualVisibility,
		MultiColorHighlight: s.SettingsMultiColorHighlight,
		MaxPoints:           s.SettingsMaxPoints,
		MaxAutoDistance:     s.SettingsMaxAutoDistance,
		StitchWhenDistance:  s.SettingsStitchWhenDistance,
		StitchWhenDecimals:  s.SettingsStitchWhenDecimals,
		CombinationRule:     string(rule),
	}
}

func FromResources(rows []model.ResourceModel) []ResourceDTO {
	out := make([]ResourceDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResourceDTO{
			Key:      r.ResourceKey,
			Title:    r.ResourceTitle,
			Type:     string(r.ResourceType),
			Source:   r.ResourceSource,
			Mimetype: r.ResourceMimetype,
			Size:     r.ResourceSize,
		})
	}
	return out
}

func FromLevels(rows []model.GradeLevelModel) []LevelDTO {
	out := make([]LevelDTO, 0, len(rows))
	for _, l := range rows {
		out = append(out, LevelDTO{
			Key:       l.GradeLevelKey,
			Title:     l.GradeLevelTitle,
			Code:      l.GradeLevelCode,
			MinPoints: l.GradeLevelMinPoints,
			Passed:    l.GradeLevelPassed,
		})
	}
	return out
}

func FromCriteria(rows []model.RatingCriterionModel) []CriterionDTO {
	out := make([]CriterionDTO, 0, len(rows))
	for _, c := range rows {
		d := CriterionDTO{
			Key:         c.CriterionKey,
			Title:       c.CriterionTitle,
			Description: c.CriterionDescription,
			Points:      c.CriterionPoints,
		}
		if !c.IsGlobal() {
			ck := c.CriterionCorrectorKey
			d.CorrectorKey = &ck
		}
		out = append(out, d)
	}
	return out
}

func FromItems(rows []model.CorrectionItemModel) []ItemRefDTO {
	out := make([]ItemRefDTO, 0, len(rows))
	for _, it := range rows {
		out = append(out, ItemRefDTO{Key: it.ItemKey, Title: it.ItemTitle})
	}
	return out
}
