package correction

import (
	"context"
	"strings"
	"testing"

	"longessay_backend/internals/features/correction/repository"
	"longessay_backend/internals/features/correction/service"
)

func TestSeedTaskFromYAML_DemoFile(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	n, err := SeedTaskFromYAML(ctx, store, "data_task_demo.yaml")
	if err != nil {
		t.Fatalf("SeedTaskFromYAML: %v", err)
	}
	if n == 0 {
		t.Fatalf("Expected rows imported")
	}

	settings, err := store.GetSettings(ctx, "demo")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.StitchThreshold() != 2 || settings.SettingsStitchWhenDecimals != 1 {
		t.Errorf("Unexpected settings %+v", settings)
	}

	crit, _ := store.ListRatingCriteria(ctx, "demo", "first")
	if len(crit) != 2 {
		t.Errorf("Expected 2 criteria for first corrector, got %d", len(crit))
	}
	crit, _ = store.ListRatingCriteria(ctx, "demo", "second")
	if len(crit) != 3 {
		t.Errorf("Expected 3 criteria for second corrector, got %d", len(crit))
	}

	items, _ := store.ListCorrectionItems(ctx, "demo", "second")
	if len(items) != 1 || items[0].ItemKey != "demo-1" {
		t.Errorf("Expected only demo-1 for second, got %+v", items)
	}
	pages, _ := store.ListPages(ctx, "demo-1")
	if len(pages) != 1 || pages[0].PageKey != "demo-1-p1" || pages[0].PageNumber != 1 {
		t.Errorf("Expected generated page key, got %+v", pages)
	}

	// the imported catalogue is readable through the service
	svc := service.New(store, nil, nil, nil)
	snap, err := svc.Snapshot(ctx, service.Viewer{UserKey: "u", TaskKey: "demo", CorrectorKey: "first"})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Items) != 2 || len(snap.Levels) != 3 || len(snap.Resources) != 2 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestParseTask_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no task key", "task: {title: x}", "task.key"},
		{"unknown corrector", "task: {key: t}\ncorrectors: [{key: A}]\nitems: [{key: i, correctors: [B]}]", "unknown corrector"},
		{"bad rule", "task: {key: t}\nsettings: {combination_rule: mode}", "combination_rule"},
		{"not yaml", "task: [", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTask([]byte(tt.raw))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTaskSeed_Defaults(t *testing.T) {
	ts, err := ParseTask([]byte("task: {key: t}\nitems: [{key: i}]"))
	if err != nil {
		t.Fatalf("ParseTask: %v", err)
	}
	store := repository.NewMemoryStore()
	for _, row := range ts.Rows() {
		if err := store.Put(context.Background(), row); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	st, _ := store.GetSettings(context.Background(), "t")
	if !st.SettingsMutualVisibility || st.SettingsCombinationRule != "average" {
		t.Errorf("Expected defaults, got %+v", st)
	}
	item, _ := store.GetCorrectionItem(context.Background(), "i")
	if item.ItemTitle != "i" || item.ItemPosition != 1 {
		t.Errorf("Expected title defaulted to key, got %+v", item)
	}
}

func TestTaskSeed_MimetypeFromPath(t *testing.T) {
	ts, err := ParseTask([]byte("task: {key: t}\nitems: [{key: i, pages: [{path: i/1.JPG}, {path: i/2.bin, mimetype: image/png}]}]"))
	if err != nil {
		t.Fatalf("ParseTask: %v", err)
	}
	store := repository.NewMemoryStore()
	for _, row := range ts.Rows() {
		if err := store.Put(context.Background(), row); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	for key, want := range map[string]string{"i-p1": "image/jpeg", "i-p2": "image/png"} {
		p, err := store.GetPage(context.Background(), key)
		if err != nil {
			t.Fatalf("GetPage %s: %v", key, err)
		}
		if p.PageMimetype != want {
			t.Errorf("page %s: expected %s, got %q", key, want, p.PageMimetype)
		}
	}
}
