package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"longessay_backend/internals/features/correction/dto"
	model "longessay_backend/internals/features/correction/model"
)

func TestPolicy_Disclosure(t *testing.T) {
	authorized := &model.CorrectionSummaryModel{SummaryIsAuthorized: true}
	open := &model.CorrectionSummaryModel{}

	tests := []struct {
		name   string
		policy Policy
		viewer Viewer
		target string
		sum    *model.CorrectionSummaryModel
		want   Disclosure
	}{
		{"own open work", Policy{true}, viewerA, "A", open, DiscloseFull},
		{"own missing summary", Policy{false}, viewerA, "A", nil, DiscloseFull},
		{"peer without summary", Policy{true}, viewerA, "B", nil, DisclosePlaceholder},
		{"peer not authorized", Policy{true}, viewerA, "B", open, DisclosePlaceholder},
		{"peer authorized", Policy{true}, viewerA, "B", authorized, DiscloseFull},
		{"peer authorized, no mutual visibility", Policy{false}, viewerA, "B", authorized, DiscloseStatus},
		{"review sees open work", Policy{false}, reviewer, "B", open, DiscloseFull},
		{"stitch sees missing summary", Policy{false}, arbiter, "B", nil, DiscloseFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Disclosure(tt.viewer, tt.target, tt.sum); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPolicy_DetailsFollowInclusions(t *testing.T) {
	sum := &model.CorrectionSummaryModel{
		SummaryIsAuthorized: true,
		SummaryInclusions:   model.SummaryInclusions{Comments: true, CommentRatings: false, CommentPoints: false, CriteriaPoints: true},
	}
	r := Policy{true}.Details(viewerA, "B", sum)
	want := DetailRules{Comments: true, CommentRatings: false, CommentPoints: false, CriteriaPoints: true}
	if r != want {
		t.Errorf("Expected %+v, got %+v", want, r)
	}

	if r := (Policy{false}).Details(viewerA, "B", sum); r.Any() {
		t.Errorf("Expected no details without mutual visibility, got %+v", r)
	}
	if r := (Policy{false}).Details(reviewer, "B", &model.CorrectionSummaryModel{}); !r.CommentRatings || !r.CriteriaPoints {
		t.Errorf("Expected review to see everything, got %+v", r)
	}
}

func TestProjectPoints_DanglingCommentBecomesWholeEssay(t *testing.T) {
	rows := []model.CorrectionPointsModel{
		{PointsKey: "p1", PointsCommentKey: "gone", PointsCriterionKey: "c1", PointsValue: 2},
		{PointsKey: "p2", PointsCommentKey: "c1", PointsCriterionKey: "c1", PointsValue: 1},
	}
	known := map[string]bool{"c1": true}
	all := DetailRules{Comments: true, CommentPoints: true, CriteriaPoints: true}

	out := ProjectPoints(rows, known, known, all)
	if len(out) != 2 {
		t.Fatalf("Expected 2 allocations, got %d", len(out))
	}
	if out[0].CommentKey != nil {
		t.Errorf("Expected dangling comment key to be null, got %v", *out[0].CommentKey)
	}
	if out[1].CommentKey == nil || *out[1].CommentKey != "c1" {
		t.Errorf("Expected linked comment key c1, got %v", out[1].CommentKey)
	}

	onlyCriteria := DetailRules{CriteriaPoints: true}
	out = ProjectPoints(rows, known, nil, onlyCriteria)
	if len(out) != 1 || out[0].Key != "p1" {
		t.Errorf("Expected only the whole-essay allocation, got %+v", out)
	}
}

func correctorIn(t *testing.T, view *dto.ItemViewDTO, key string) dto.CorrectorDTO {
	t.Helper()
	for _, c := range view.Correctors {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("corrector %s missing from view", key)
	return dto.CorrectorDTO{}
}

func TestItemView_PeerGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putSummary(t, "i1", "A", ptr(8.0), true)
	f.putSummary(t, "i1", "B", ptr(6.0), false)
	f.putComment(t, "ca", "i1", "A")
	f.putComment(t, "cb", "i1", "B")

	// A sees B only as a placeholder
	view, err := f.svc.ItemView(ctx, "i1", viewerA)
	if err != nil {
		t.Fatalf("ItemView(A): %v", err)
	}
	b := correctorIn(t, view, "B").Summary
	if b.IsAuthorized || b.Key != nil || b.Text != nil || b.Points != nil || b.GradeKey != nil || b.LastChange != nil || b.Inclusions != nil {
		t.Errorf("Expected placeholder for B, got %+v", b)
	}
	for _, c := range view.Comments {
		if c.CorrectorKey == "B" {
			t.Errorf("Expected no comments of B for A, got %+v", c)
		}
	}
	if view.Summary == nil || *view.Summary.Points != 8 {
		t.Errorf("Expected own summary in view, got %+v", view.Summary)
	}

	// B sees A in full with mutual visibility
	view, _ = f.svc.ItemView(ctx, "i1", viewerB)
	a := correctorIn(t, view, "A").Summary
	if !a.IsAuthorized || a.Points == nil || *a.Points != 8 {
		t.Errorf("Expected A's full summary, got %+v", a)
	}
	if len(view.Comments) != 2 {
		t.Errorf("Expected own and A's comment, got %d", len(view.Comments))
	}
}

func TestItemView_NoMutualVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.Put(ctx, &model.CorrectionSettingsModel{SettingsTaskKey: "t1", SettingsMutualVisibility: false, SettingsStitchWhenDistance: 2})
	f.putSummary(t, "i1", "A", ptr(8.0), true)
	f.putComment(t, "ca", "i1", "A")

	view, err := f.svc.ItemView(ctx, "i1", viewerB)
	if err != nil {
		t.Fatalf("ItemView(B): %v", err)
	}
	a := correctorIn(t, view, "A").Summary
	if !a.IsAuthorized || a.Points != nil || a.Text != nil || a.Key != nil {
		t.Errorf("Expected status-only summary of A, got %+v", a)
	}
	if len(view.Comments) != 0 {
		t.Errorf("Expected A's comments withheld, got %d", len(view.Comments))
	}

	view, _ = f.svc.ItemView(ctx, "i1", reviewer)
	if a := correctorIn(t, view, "A").Summary; a.Points == nil {
		t.Errorf("Expected review mode to see A's points")
	}
	if len(view.Comments) != 1 || view.Summary != nil {
		t.Errorf("Expected review to see A's comment and no own summary, got %d / %+v", len(view.Comments), view.Summary)
	}
}

func TestEscalation_NoMutualVisibilityHidesNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.Put(ctx, &model.CorrectionSettingsModel{SettingsTaskKey: "t1", SettingsMutualVisibility: false, SettingsStitchWhenDistance: 2, SettingsStitchWhenDecimals: 1})
	f.putSummary(t, "i1", "A", ptr(8.0), true)
	f.putSummary(t, "i1", "B", ptr(7.0), true)

	view, err := f.svc.ItemView(ctx, "i1", viewerB)
	if err != nil {
		t.Fatalf("ItemView(B): %v", err)
	}
	esc := view.Escalation
	if esc.State != string(StateResolved) || esc.AuthorizedCount != 2 {
		t.Errorf("Expected resolved with 2 authorized, got %+v", esc)
	}
	if esc.Distance != nil || esc.CombinedPoints != nil || esc.FinalPoints != nil || esc.FinalGradeKey != nil {
		t.Errorf("Expected numbers withheld from a corrector, got %+v", esc)
	}

	ev, err := f.svc.Evaluate(ctx, "i1", viewerB)
	if err != nil {
		t.Fatalf("Evaluate(B): %v", err)
	}
	if ev.State != StateResolved || ev.Distance != nil || ev.CombinedPoints != nil {
		t.Errorf("Expected state only, got %+v", ev)
	}

	ev, _ = f.svc.Evaluate(ctx, "i1", reviewer)
	if ev.Distance == nil || *ev.Distance != 1 || ev.CombinedPoints == nil || *ev.CombinedPoints != 7.5 {
		t.Errorf("Expected review mode to see distance 1 and combined 7.5, got %+v", ev)
	}

	// with mutual visibility the peer's points are disclosed anyway
	_ = f.store.Put(ctx, &model.CorrectionSettingsModel{SettingsTaskKey: "t1", SettingsMutualVisibility: true, SettingsStitchWhenDistance: 2, SettingsStitchWhenDecimals: 1})
	ev, _ = f.svc.Evaluate(ctx, "i1", viewerB)
	if ev.CombinedPoints == nil {
		t.Errorf("Expected combined points with mutual visibility, got %+v", ev)
	}
}

func TestProjectPoints_HiddenCommentsDropLinkedPoints(t *testing.T) {
	rows := []model.CorrectionPointsModel{
		{PointsKey: "linked", PointsCommentKey: "c1", PointsCriterionKey: "c1", PointsValue: 1},
		{PointsKey: "whole", PointsCriterionKey: "c1", PointsValue: 2},
	}
	known := map[string]bool{"c1": true}
	rules := DetailRules{CommentPoints: true, CriteriaPoints: true}

	out := ProjectPoints(rows, known, nil, rules)
	if len(out) != 1 || out[0].Key != "whole" {
		t.Errorf("Expected only the whole-essay allocation while comments are hidden, got %+v", out)
	}
}

func TestItemView_InclusionsWithholdRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.store.Put(ctx, &model.CorrectionSummaryModel{
		SummaryKey: "sa", SummaryItemKey: "i1", SummaryCorrectorKey: "A",
		SummaryPoints: ptr(8.0), SummaryIsAuthorized: true,
		SummaryInclusions: model.SummaryInclusions{Comments: true},
	})
	f.putComment(t, "ca", "i1", "A")
	f.putPoints(t, "pa", "i1", "A", "ca", 2)
	f.putPoints(t, "pw", "i1", "A", "", 3)

	view, _ := f.svc.ItemView(ctx, "i1", viewerB)
	if len(view.Comments) != 1 {
		t.Fatalf("Expected A's comment, got %d", len(view.Comments))
	}
	c := view.Comments[0]
	if c.Rating != "" || c.Points != nil {
		t.Errorf("Expected rating and points withheld, got %q / %v", c.Rating, c.Points)
	}
	if len(view.Points) != 0 {
		t.Errorf("Expected no point allocations, got %+v", view.Points)
	}
}

type countingProcessor struct{ calls int }

func (p *countingProcessor) ProcessWrittenText(raw string) string {
	p.calls++
	return strings.ToUpper(raw)
}

func TestItemView_ProcessedTextCachedOnlyWhenChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	proc := &countingProcessor{}
	f.svc.Text = proc

	view, err := f.svc.ItemView(ctx, "i1", viewerA)
	if err != nil {
		t.Fatalf("ItemView: %v", err)
	}
	if *view.Essay.Text != "<P>HELLO WORLD</P>" {
		t.Errorf("Unexpected processed text %q", *view.Essay.Text)
	}
	e, _ := f.store.GetEssay(ctx, "i1")
	if e.EssayProcessed != "<P>HELLO WORLD</P>" {
		t.Errorf("Expected processed text persisted, got %q", e.EssayProcessed)
	}

	if _, err := f.svc.ItemView(ctx, "i1", viewerA); err != nil {
		t.Fatalf("second ItemView: %v", err)
	}
	if proc.calls != 2 {
		t.Errorf("Expected processor called on every read, got %d", proc.calls)
	}

	// a failing cache write never breaks the read
	f.svc.Text = nil
	f.store.FailWrites = true
	view, err = f.svc.ItemView(ctx, "i1", viewerA)
	if err != nil {
		t.Fatalf("ItemView with failing cache: %v", err)
	}
	if *view.Essay.Text != "<p>Hello world</p>" {
		t.Errorf("Expected freshly derived text, got %q", *view.Essay.Text)
	}
}

func TestItemView_Scope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		item   string
		viewer Viewer
		want   error
	}{
		{"unknown item", "nope", viewerA, ErrNotFound},
		{"not assigned", "i3", viewerB, ErrNotFound},
		{"no identity", "i1", Viewer{UserKey: "u", TaskKey: "t1"}, ErrForbidden},
		{"other task", "i1", Viewer{UserKey: "u", TaskKey: "t2", Review: true}, ErrNotFound},
		{"review without corrector key", "i3", reviewer, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ItemView(ctx, tt.item, tt.viewer)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSnapshot_FiltersItemsByCorrector(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snapB, err := f.svc.Snapshot(ctx, viewerB)
	if err != nil {
		t.Fatalf("Snapshot(B): %v", err)
	}
	if len(snapB.Items) != 1 || snapB.Items[0].Key != "i1" {
		t.Errorf("Expected only i1 for B, got %+v", snapB.Items)
	}
	if len(snapB.Criteria) != 2 {
		t.Errorf("Expected global plus own criterion for B, got %d", len(snapB.Criteria))
	}
	if snapB.Task.CorrectionAllowed || snapB.Task.AuthorizationAllowed {
		t.Errorf("Expected item flags false in snapshot")
	}

	snapR, _ := f.svc.Snapshot(ctx, reviewer)
	if len(snapR.Items) != 3 {
		t.Errorf("Expected all items for review, got %d", len(snapR.Items))
	}
}

func TestPageForViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.PageForViewer(ctx, viewerA, "p1", "i1"); err != nil {
		t.Errorf("Expected A to load p1, got %v", err)
	}
	if _, err := f.svc.PageForViewer(ctx, viewerA, "p1", "i3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected page of another item to be not found, got %v", err)
	}
	outsider := Viewer{UserKey: "u", TaskKey: "t1", CorrectorKey: "C"}
	if _, err := f.svc.PageForViewer(ctx, outsider, "p1", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected unassigned corrector rejected, got %v", err)
	}
}
