package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	model "longessay_backend/internals/features/correction/model"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	rows := []any{
		&model.CorrectionItemModel{ItemKey: "i1", ItemTaskKey: "t1", ItemTitle: "Essay 1", ItemPosition: 1},
		&model.CorrectionItemModel{ItemKey: "i2", ItemTaskKey: "t1", ItemTitle: "Essay 2", ItemPosition: 2},
		&model.CorrectionItemModel{ItemKey: "x1", ItemTaskKey: "t2", ItemTitle: "Other"},
		&model.CorrectorModel{CorrectorKey: "A", CorrectorTaskKey: "t1", CorrectorTitle: "Alice"},
		&model.CorrectorModel{CorrectorKey: "B", CorrectorTaskKey: "t1", CorrectorTitle: "Bob"},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i1", AssignmentCorrectorKey: "B", AssignmentPosition: 1},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i1", AssignmentCorrectorKey: "A", AssignmentPosition: 0},
		&model.CorrectorAssignmentModel{AssignmentItemKey: "i2", AssignmentCorrectorKey: "B", AssignmentPosition: 0},
		&model.RatingCriterionModel{CriterionKey: "g", CriterionTaskKey: "t1", CriterionTitle: "Global"},
		&model.RatingCriterionModel{CriterionKey: "a", CriterionTaskKey: "t1", CriterionCorrectorKey: "A", CriterionTitle: "Own"},
	}
	for _, r := range rows {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put(%T): %v", r, err)
		}
	}
	return s
}

func TestMemoryStore_ItemsFilteredByCorrector(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	all, _ := s.ListCorrectionItems(ctx, "t1", "")
	if len(all) != 2 {
		t.Fatalf("Expected 2 items in task, got %d", len(all))
	}
	forA, _ := s.ListCorrectionItems(ctx, "t1", "A")
	if len(forA) != 1 || forA[0].ItemKey != "i1" {
		t.Errorf("Expected only i1 for corrector A, got %+v", forA)
	}
}

func TestMemoryStore_CorrectorsOrderedByPosition(t *testing.T) {
	s := seedStore(t)
	list, _ := s.ListCorrectorsOfItem(context.Background(), "i1")
	if len(list) != 2 || list[0].CorrectorKey != "A" || list[1].CorrectorKey != "B" {
		t.Errorf("Unexpected corrector order: %+v", list)
	}
}

func TestMemoryStore_CriteriaScopedToCorrector(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	forB, _ := s.ListRatingCriteria(ctx, "t1", "B")
	if len(forB) != 1 || forB[0].CriterionKey != "g" {
		t.Errorf("Expected only the global criterion for B, got %+v", forB)
	}
	all, _ := s.ListRatingCriteria(ctx, "t1", "")
	if len(all) != 2 {
		t.Errorf("Expected all criteria without corrector filter, got %d", len(all))
	}
}

func TestMemoryStore_DeleteMissingIsNotFound(t *testing.T) {
	s := seedStore(t)
	err := s.DeleteComment(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemoryStore_FailWrites(t *testing.T) {
	s := seedStore(t)
	s.FailWrites = true
	err := s.SaveComment(context.Background(), &model.CorrectionCommentModel{CommentKey: "c"})
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Expected ErrWriteFailed, got %v", err)
	}
}

func TestMemoryStore_SetAlive(t *testing.T) {
	s := seedStore(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.SetAlive(context.Background(), "A", at); err != nil {
		t.Fatalf("SetAlive: %v", err)
	}
	if got := s.LastActivity("A"); got == nil || !got.Equal(at) {
		t.Errorf("Expected last activity %v, got %v", at, got)
	}
}

func TestMemoryStore_ClientKeyUniquePerCorrector(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	save := func(key, corrector, client string) error {
		return s.SaveComment(ctx, &model.CorrectionCommentModel{CommentKey: key, CommentItemKey: "i1", CommentCorrectorKey: corrector, CommentClientKey: client})
	}
	if err := save("c1", "A", "temp1"); err != nil {
		t.Fatalf("SaveComment: %v", err)
	}
	if err := save("c1", "A", "temp1"); err != nil {
		t.Errorf("Expected update of the same row, got %v", err)
	}
	if err := save("c2", "A", "temp1"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	if err := save("c3", "B", "temp1"); err != nil {
		t.Errorf("Expected other corrector to reuse the client key, got %v", err)
	}
	if err := save("c4", "A", ""); err != nil {
		t.Errorf("Expected empty client keys not to collide, got %v", err)
	}
	if err := save("c5", "A", ""); err != nil {
		t.Errorf("Expected empty client keys not to collide, got %v", err)
	}

	err := s.SavePoints(ctx, &model.CorrectionPointsModel{PointsKey: "p1", PointsCorrectorKey: "A", PointsClientKey: "tempP"})
	if err != nil {
		t.Fatalf("SavePoints: %v", err)
	}
	err = s.SavePoints(ctx, &model.CorrectionPointsModel{PointsKey: "p2", PointsCorrectorKey: "A", PointsClientKey: "tempP"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for points, got %v", err)
	}
}
