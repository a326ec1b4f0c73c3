package service

import (
	"context"
	"testing"
	"time"

	model "longessay_backend/internals/features/correction/model"
	"longessay_backend/internals/features/correction/repository"
	"longessay_backend/internals/features/correction/tokens"
)

type fixture struct {
	store *repository.MemoryStore
	gate  *tokens.Gate
	svc   *CorrectionService
}

var (
	viewerA  = Viewer{UserKey: "user-a", TaskKey: "t1", CorrectorKey: "A"}
	viewerB  = Viewer{UserKey: "user-b", TaskKey: "t1", CorrectorKey: "B"}
	reviewer = Viewer{UserKey: "user-r", TaskKey: "t1", Review: true}
	arbiter  = Viewer{UserKey: "user-s", TaskKey: "t1", StitchDecision: true}
)

func ptr[T any](v T) *T { return &v }

// newFixture: task t1 with correctors A and B on item i1; i2 is closed for
// correction; i3 is open but may not be authorized yet.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	rows := []any{
		&model.CorrectionTaskModel{TaskKey: "t1", TaskTitle: "Essay exam", TaskInstructions: "<p>Write</p>"},
		&model.CorrectionSettingsModel{
			SettingsTaskKey:            "t1",
			SettingsMutualVisibility:   true,
			SettingsMaxPoints:          20,
			SettingsStitchWhenDistance: 2.0,
			SettingsStitchWhenDecimals: 1,
			SettingsCombinationRule:    model.CombineAverage,
		},
		&model.GradeLevelModel{GradeLevelKey: "fail", GradeLevelTaskKey: "t1", GradeLevelTitle: "Failed", GradeLevelMinPoints: 0},
		&model.GradeLevelModel{GradeLevelKey: "pass", GradeLevelTaskKey: "t1", GradeLevelTitle: "Passed", GradeLevelMinPoints: 5, GradeLevelPassed: true},
		&model.GradeLevelModel{GradeLevelKey: "good", GradeLevelTaskKey: "t1", GradeLevelTitle: "Good", GradeLevelMinPoints: 8, GradeLevelPassed: true},
		&model.RatingCriterionModel{CriterionKey: "c1", CriterionTaskKey: "t1", CriterionTitle: "Structure", CriterionPoints: 10},
		&model.RatingCriterionModel{CriterionKey: "cB", CriterionTaskKey: "t1", CriterionCorrectorKey: "B", CriterionTitle: "B only", CriterionPoints: 5},
		&model.ResourceModel{ResourceKey: "r1", ResourceTaskKey: "t1", ResourceTitle: "Instructions", ResourceType: model.ResourceInstruct},

		&model.CorrectionItemModel{ItemKey: "i1", ItemTaskKey: "t1", ItemTitle: "Essay 1", ItemCorrectionAllowed: true, ItemAuthorizationAllowed: true},
		&model.CorrectionItemModel{ItemKey: "i2", ItemTaskKey: "t1", ItemTitle: "Essay 2"},
		&model.CorrectionItemModel{ItemKey: "i3", ItemTaskKey: "t1", ItemTitle: "Essay 3", ItemCorrectionAllowed: true},
		&model.WrittenEssayModel{EssayItemKey: "i1", EssayWrittenText: "<p>Hello world</p>", EssayWriterNotes: ptr("notes")},
		&model.PageModel{PageKey: "p1", PageItemKey: "i1", PageNumber: 1, PagePath: "i1/1.png"},

		&model.CorrectorModel{CorrectorKey: "A", CorrectorTaskKey: "t1", CorrectorTitle: "Alice", CorrectorInitials: "AA"},
		&model.CorrectorModel{CorrectorKey: "B", CorrectorTaskKey: "t1", CorrectorTitle: "Bob", CorrectorInitials: "BB"},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i1", AssignmentCorrectorKey: "A", AssignmentPosition: 0},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i1", AssignmentCorrectorKey: "B", AssignmentPosition: 1},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i2", AssignmentCorrectorKey: "A", AssignmentPosition: 0},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i3", AssignmentCorrectorKey: "A", AssignmentPosition: 0},
	}
	for _, r := range rows {
		if err := store.Put(ctx, r); err != nil {
			t.Fatalf("Put(%T): %v", r, err)
		}
	}

	gate := tokens.NewGate(tokens.NewMemoryStore(), time.Hour, time.Hour)
	svc := New(store, gate, nil, NewEvaluator(store, time.Minute))
	return &fixture{store: store, gate: gate, svc: svc}
}

// putSummary writes a summary straight into the store.
func (f *fixture) putSummary(t *testing.T, item, corrector string, points *float64, authorized bool) {
	t.Helper()
	sm := &model.CorrectionSummaryModel{
		SummaryKey:          "sum-" + item + "-" + corrector,
		SummaryItemKey:      item,
		SummaryCorrectorKey: corrector,
		SummaryText:         ptr("summary of " + corrector),
		SummaryPoints:       points,
		SummaryIsAuthorized: authorized,
		SummaryInclusions:   model.AllInclusions(),
	}
	if err := f.store.Put(context.Background(), sm); err != nil {
		t.Fatalf("Put summary: %v", err)
	}
}

func (f *fixture) putComment(t *testing.T, key, item, corrector string) {
	t.Helper()
	c := &model.CorrectionCommentModel{
		CommentKey:          key,
		CommentItemKey:      item,
		CommentCorrectorKey: corrector,
		CommentText:         "comment " + key,
		CommentRating:       model.RatingCardinal,
		CommentPoints:       ptr(1.0),
	}
	if err := f.store.Put(context.Background(), c); err != nil {
		t.Fatalf("Put comment: %v", err)
	}
}

func (f *fixture) putPoints(t *testing.T, key, item, corrector, comment string, value float64) {
	t.Helper()
	p := &model.CorrectionPointsModel{
		PointsKey:          key,
		PointsItemKey:      item,
		PointsCorrectorKey: corrector,
		PointsCommentKey:   comment,
		PointsCriterionKey: "c1",
		PointsValue:        value,
	}
	if err := f.store.Put(context.Background(), p); err != nil {
		t.Fatalf("Put points: %v", err)
	}
}
