// file: internals/seeds/correction/seed_task.go
package correction

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"longessay_backend/internals/features/correction/files"
	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
)

/*
TaskSeed is one task file: the catalogue the correction core reads but never
writes (task, settings, levels, criteria, resources, correctors, items).

	task: {key: t1, title: ..., correction_end: 2024-06-30T18:00:00Z}
	items:
	  - key: i1
	    correctors: [A, B]
	    essay: {text: "..."}
*/
type TaskSeed struct {
	Task struct {
		Key           string     `yaml:"key"`
		Title         string     `yaml:"title"`
		Instructions  string     `yaml:"instructions"`
		CorrectionEnd *time.Time `yaml:"correction_end"`
	} `yaml:"task"`

	Settings struct {
		MutualVisibility    *bool   `yaml:"mutual_visibility"`
		MultiColorHighlight bool    `yaml:"multi_color_highlight"`
		MaxPoints           float64 `yaml:"max_points"`
		MaxAutoDistance     float64 `yaml:"max_auto_distance"`
		StitchWhenDistance  float64 `yaml:"stitch_when_distance"`
		StitchWhenDecimals  int     `yaml:"stitch_when_decimals"`
		CombinationRule     string  `yaml:"combination_rule"`
	} `yaml:"settings"`

	Levels []struct {
		Key       string  `yaml:"key"`
		Title     string  `yaml:"title"`
		Code      *string `yaml:"code"`
		MinPoints float64 `yaml:"min_points"`
		Passed    *bool   `yaml:"passed"`
	} `yaml:"levels"`

	Criteria []struct {
		Key         string  `yaml:"key"`
		Corrector   string  `yaml:"corrector"`
		Title       string  `yaml:"title"`
		Description string  `yaml:"description"`
		Points      float64 `yaml:"points"`
	} `yaml:"criteria"`

	Resources []struct {
		Key      string `yaml:"key"`
		Title    string `yaml:"title"`
		Type     string `yaml:"type"`
		Source   string `yaml:"source"`
		Mimetype string `yaml:"mimetype"`
		Size     int64  `yaml:"size"`
		Path     string `yaml:"path"`
	} `yaml:"resources"`

	Correctors []struct {
		Key      string `yaml:"key"`
		Title    string `yaml:"title"`
		Initials string `yaml:"initials"`
	} `yaml:"correctors"`

	Items []ItemSeed `yaml:"items"`
}

type ItemSeed struct {
	Key                  string   `yaml:"key"`
	Title                string   `yaml:"title"`
	CorrectionAllowed    bool     `yaml:"correction_allowed"`
	AuthorizationAllowed bool     `yaml:"authorization_allowed"`
	Correctors           []string `yaml:"correctors"`

	Essay *struct {
		Text       string     `yaml:"text"`
		Notes      *string    `yaml:"notes"`
		Started    *time.Time `yaml:"started"`
		Ended      *time.Time `yaml:"ended"`
		Authorized bool       `yaml:"authorized"`
	} `yaml:"essay"`

	Pages []struct {
		Key      string `yaml:"key"`
		Path     string `yaml:"path"`
		Mimetype string `yaml:"mimetype"`
		Width    int    `yaml:"width"`
		Height   int    `yaml:"height"`
	} `yaml:"pages"`
}

func ParseTask(raw []byte) (*TaskSeed, error) {
	var ts TaskSeed
	if err := yaml.Unmarshal(raw, &ts); err != nil {
		return nil, fmt.Errorf("decode task yaml: %w", err)
	}
	if err := ts.check(); err != nil {
		return nil, err
	}
	return &ts, nil
}

func LoadTaskFile(path string) (*TaskSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseTask(raw)
}

func (ts *TaskSeed) check() error {
	if strings.TrimSpace(ts.Task.Key) == "" {
		return fmt.Errorf("task.key is required")
	}
	correctors := map[string]bool{}
	for _, c := range ts.Correctors {
		correctors[c.Key] = true
	}
	for _, it := range ts.Items {
		if it.Key == "" {
			return fmt.Errorf("item without key")
		}
		for _, ck := range it.Correctors {
			if !correctors[ck] {
				return fmt.Errorf("item %s: unknown corrector %q", it.Key, ck)
			}
		}
	}
	switch model.CombinationRule(ts.Settings.CombinationRule) {
	case "", model.CombineAverage, model.CombineMinimum, model.CombineMaximum, model.CombineMedian:
	default:
		return fmt.Errorf("unknown combination_rule %q", ts.Settings.CombinationRule)
	}
	return nil
}

// Rows converts the file into model rows in insert order.
func (ts *TaskSeed) Rows() []any {
	taskKey := ts.Task.Key
	rows := []any{&model.CorrectionTaskModel{
		TaskKey:           taskKey,
		TaskTitle:         ts.Task.Title,
		TaskInstructions:  ts.Task.Instructions,
		TaskCorrectionEnd: ts.Task.CorrectionEnd,
	}}

	st := ts.Settings
	mutual := true
	if st.MutualVisibility != nil {
		mutual = *st.MutualVisibility
	}
	rule := model.CombinationRule(st.CombinationRule)
	if rule == "" {
		rule = model.CombineAverage
	}
	rows = append(rows, &model.CorrectionSettingsModel{
		SettingsTaskKey:             taskKey,
		SettingsMutualVisibility:    mutual,
		SettingsMultiColorHighlight: st.MultiColorHighlight,
		SettingsMaxPoints:           st.MaxPoints,
		SettingsMaxAutoDistance:     st.MaxAutoDistance,
		SettingsStitchWhenDistance:  st.StitchWhenDistance,
		SettingsStitchWhenDecimals:  st.StitchWhenDecimals,
		SettingsCombinationRule:     rule,
	})

	for _, lv := range ts.Levels {
		passed := true
		if lv.Passed != nil {
			passed = *lv.Passed
		}
		rows = append(rows, &model.GradeLevelModel{
			GradeLevelKey:       lv.Key,
			GradeLevelTaskKey:   taskKey,
			GradeLevelTitle:     lv.Title,
			GradeLevelCode:      lv.Code,
			GradeLevelMinPoints: lv.MinPoints,
			GradeLevelPassed:    passed,
		})
	}
	for _, cr := range ts.Criteria {
		rows = append(rows, &model.RatingCriterionModel{
			CriterionKey:          cr.Key,
			CriterionTaskKey:      taskKey,
			CriterionCorrectorKey: cr.Corrector,
			CriterionTitle:        cr.Title,
			CriterionDescription:  cr.Description,
			CriterionPoints:       cr.Points,
		})
	}
	for _, r := range ts.Resources {
		rows = append(rows, &model.ResourceModel{
			ResourceKey:      r.Key,
			ResourceTaskKey:  taskKey,
			ResourceTitle:    r.Title,
			ResourceType:     model.ResourceType(r.Type),
			ResourceSource:   r.Source,
			ResourceMimetype: orMimetype(r.Mimetype, r.Path),
			ResourceSize:     r.Size,
			ResourcePath:     r.Path,
		})
	}
	for _, c := range ts.Correctors {
		rows = append(rows, &model.CorrectorModel{
			CorrectorKey:      c.Key,
			CorrectorTaskKey:  taskKey,
			CorrectorTitle:    c.Title,
			CorrectorInitials: c.Initials,
		})
	}

	for pos, it := range ts.Items {
		title := it.Title
		if title == "" {
			title = it.Key
		}
		rows = append(rows, &model.CorrectionItemModel{
			ItemKey:                  it.Key,
			ItemTaskKey:              taskKey,
			ItemTitle:                title,
			ItemPosition:             pos + 1,
			ItemCorrectionAllowed:    it.CorrectionAllowed,
			ItemAuthorizationAllowed: it.AuthorizationAllowed,
		})
		for i, ck := range it.Correctors {
			rows = append(rows, &model.CorrectorAssignmentModel{
				AssignmentItemKey:      it.Key,
				AssignmentCorrectorKey: ck,
				AssignmentPosition:     i,
			})
		}
		if e := it.Essay; e != nil {
			rows = append(rows, &model.WrittenEssayModel{
				EssayItemKey:      it.Key,
				EssayWrittenText:  e.Text,
				EssayWriterNotes:  e.Notes,
				EssayEditStarted:  e.Started,
				EssayEditEnded:    e.Ended,
				EssayIsAuthorized: e.Authorized,
			})
		}
		for n, p := range it.Pages {
			key := p.Key
			if key == "" {
				key = fmt.Sprintf("%s-p%d", it.Key, n+1)
			}
			rows = append(rows, &model.PageModel{
				PageKey:      key,
				PageItemKey:  it.Key,
				PageNumber:   n + 1,
				PageWidth:    p.Width,
				PageHeight:   p.Height,
				PagePath:     p.Path,
				PageMimetype: orMimetype(p.Mimetype, p.Path),
			})
		}
	}
	return rows
}

func orMimetype(declared, path string) string {
	if declared != "" {
		return declared
	}
	return files.MimetypeFromExt(path)
}

// SeedTaskFromYAML imports one task file into the store. Rows are upserted,
// so re-importing a changed file updates it in place.
func SeedTaskFromYAML(ctx context.Context, seeder repository.Seeder, path string) (int, error) {
	log.Println("📥 Reading task file:", path)
	ts, err := LoadTaskFile(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, row := range ts.Rows() {
		if err := seeder.Put(ctx, row); err != nil {
			return n, fmt.Errorf("task %s: put %T: %w", ts.Task.Key, row, err)
		}
		n++
	}
	log.Printf("✅ Task %s imported (%d rows, %d items)", ts.Task.Key, n, len(ts.Items))
	return n, nil
}
