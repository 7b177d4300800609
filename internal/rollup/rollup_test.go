package rollup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/types"
)

func stage(n int) *int { return &n }

func num(v float64) *float64 { return &v }

var testCategories = []types.Category{
	{ID: "c1", Name: catalog.GoalSetting, SortOrder: 1, Builtin: true},
	{ID: "c2", Name: catalog.Programming, SortOrder: 2, Builtin: true},
	{ID: "c3", Name: catalog.CoProduction, SortOrder: 3, Builtin: true},
	{ID: "c4", Name: catalog.Implementation, SortOrder: 4, Builtin: true},
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name string
		item types.ChecklistItem
		want bool
	}{
		{"flag only", types.ChecklistItem{IsCompleted: true}, true},
		{"detail only", types.ChecklistItem{Detail: &types.ItemDetail{}}, true},
		{"both", types.ChecklistItem{IsCompleted: true, Detail: &types.ItemDetail{}}, true},
		{"neither", types.ChecklistItem{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(tt.item); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsComplete_DetailSurvivesFlagReset(t *testing.T) {
	item := types.ChecklistItem{IsCompleted: true, Detail: &types.ItemDetail{ID: "d1"}}
	item.IsCompleted = false
	if !IsComplete(item) {
		t.Error("item with a detail must stay complete after the flag is cleared")
	}
}

func TestMatchesMethod(t *testing.T) {
	tests := []struct {
		name string
		item types.ChecklistItem
		key  string
		want bool
	}{
		{"structured key with unrelated title", types.ChecklistItem{MethodKey: "B", Title: "Random Title"}, "B", true},
		{"title key without structured key", types.ChecklistItem{Title: "(C) Focus Group Discussions"}, "C", true},
		{"title key does not match other key", types.ChecklistItem{Title: "(C) Focus Group Discussions"}, "A", false},
		{"both sources disagree, structured side", types.ChecklistItem{MethodKey: "A", Title: "(B) Surveys & Interviews"}, "A", true},
		{"both sources disagree, title side", types.ChecklistItem{MethodKey: "A", Title: "(B) Surveys & Interviews"}, "B", true},
		{"empty key", types.ChecklistItem{MethodKey: "A"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesMethod(tt.item, tt.key); got != tt.want {
				t.Errorf("MatchesMethod(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestTitleMethodKey(t *testing.T) {
	cases := map[string]string{
		"(D) Participatory Mapping": "D",
		"Community needs inventory": "",
		"(Z) Unknown":               "",
	}
	for title, want := range cases {
		if got := TitleMethodKey(title); got != want {
			t.Errorf("TitleMethodKey(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestRate(t *testing.T) {
	tests := []struct{ completed, total, want int }{
		{0, 0, 0},
		{1, 1, 100},
		{0, 1, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
	}
	for _, tt := range tests {
		if got := Rate(tt.completed, tt.total); got != tt.want {
			t.Errorf("Rate(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestAggregateByStage(t *testing.T) {
	items := []types.ChecklistItem{
		{ID: "i1", StageNumber: stage(1), IsCompleted: true},
		{ID: "i2", StageNumber: stage(2)},
		{ID: "i3", StageNumber: stage(3), Detail: &types.ItemDetail{ID: "d3"}},
		{ID: "i4", StageNumber: stage(4)},
		{ID: "i5", StageNumber: stage(5), IsCompleted: true},
		{ID: "i6", StageNumber: stage(6)},
		{ID: "unassigned", IsCompleted: true},
		{ID: "out-of-range", StageNumber: stage(9), IsCompleted: true},
	}

	got := AggregateByStage(items)

	var want []StageSummary
	for _, s := range catalog.Stages() {
		sum := StageSummary{Stage: s.Number, Name: s.Name, Total: 1}
		if s.Number%2 == 1 {
			sum.Completed = 1
			sum.CompletionRate = 100
		} else {
			sum.Pending = 1
		}
		want = append(want, sum)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AggregateByStage() mismatch (-want +got):\n%s", diff)
	}
	if n := Unassigned(items); n != 2 {
		t.Errorf("Unassigned() = %d, want 2", n)
	}
}

func TestAggregateByStage_Empty(t *testing.T) {
	got := AggregateByStage(nil)
	if len(got) != catalog.StageCount {
		t.Fatalf("len = %d, want %d", len(got), catalog.StageCount)
	}
	for _, s := range got {
		if s.Total != 0 || s.CompletionRate != 0 {
			t.Errorf("stage %d = %+v, want zero counters", s.Stage, s)
		}
	}
}

func TestAggregateByCategory(t *testing.T) {
	items := []types.ChecklistItem{
		{ID: "a", CategoryID: "c1", ItemType: types.ItemAnalog, IsCompleted: true},
		{ID: "b", CategoryID: "c1", ItemType: types.ItemDigital},
		{ID: "c", CategoryID: "c1", ItemType: types.ItemDigital, Detail: &types.ItemDetail{}},
		{ID: "d", CategoryID: "c2", ItemType: types.ItemAnalog},
		{ID: "orphan", CategoryID: "gone", ItemType: types.ItemAnalog, IsCompleted: true},
	}

	got := AggregateByCategory(items, testCategories[:3])

	want := []CategorySummary{
		{CategoryID: "c1", Name: catalog.GoalSetting, Total: 3, Completed: 2, Pending: 1, CompletionRate: 67, AnalogCount: 1, DigitalCount: 2},
		{CategoryID: "c2", Name: catalog.Programming, Total: 1, Pending: 1, AnalogCount: 1},
		{CategoryID: "c3", Name: catalog.CoProduction},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AggregateByCategory() mismatch (-want +got):\n%s", diff)
	}
}

func methodFixture() []types.ChecklistItem {
	return []types.ChecklistItem{
		{ID: "i1", CategoryID: "c1", StageNumber: stage(2), MethodKey: "B", Title: "Random Title",
			IsCompleted: true, Detail: &types.ItemDetail{CalculatedPI: num(0.5)}},
		{ID: "i2", CategoryID: "c1", StageNumber: stage(2), Title: "(B) Surveys & Interviews",
			Detail: &types.ItemDetail{CalculatedPI: num(0.25)}},
		{ID: "i3", CategoryID: "c2", StageNumber: stage(2), MethodKey: "A", Title: "(A) Charrettes"},
		{ID: "i4", CategoryID: "c1", StageNumber: stage(3), MethodKey: "B", Title: "(B) Surveys & Interviews", IsCompleted: true},
		{ID: "i5", CategoryID: "c1", StageNumber: stage(2), Title: "(B) Street survey", IsCompleted: true,
			Detail: &types.ItemDetail{}},
	}
}

func TestAggregateByMethod(t *testing.T) {
	index := catalog.BuildCategoryIndex(testCategories)
	got := AggregateByMethod(methodFixture(), 2, index)

	require.Len(t, got, catalog.MethodCount)

	want1B := MethodSummary{CategoryNumber: 1, MethodKey: "B", Code: "1B", Name: "Surveys & Interviews", Total: 3, Completed: 3, AvgPI: 37.5}
	if diff := cmp.Diff(want1B, got[1]); diff != "" {
		t.Errorf("1B mismatch (-want +got):\n%s", diff)
	}

	want2A := MethodSummary{CategoryNumber: 2, MethodKey: "A", Code: "2A", Name: "Charrettes", Total: 1}
	if diff := cmp.Diff(want2A, got[4]); diff != "" {
		t.Errorf("2A mismatch (-want +got):\n%s", diff)
	}

	// A charrette stored under PROGRAMMING is not a problem-tree analysis.
	if got[0].Total != 0 {
		t.Errorf("1A total = %d, want 0", got[0].Total)
	}
	if got[12].Code != "4E" {
		t.Errorf("last method code = %q, want 4E", got[12].Code)
	}
}

func TestAggregateByMethod_AvgPIRounding(t *testing.T) {
	items := []types.ChecklistItem{
		{ID: "a", CategoryID: "c1", StageNumber: stage(1), MethodKey: "A", IsCompleted: true, Detail: &types.ItemDetail{CalculatedPI: num(1.0 / 3.0)}},
		{ID: "b", CategoryID: "c1", StageNumber: stage(1), MethodKey: "A", IsCompleted: true, Detail: &types.ItemDetail{CalculatedPI: num(0.2)}},
	}
	got := AggregateByMethod(items, 1, catalog.BuildCategoryIndex(testCategories))
	assert.Equal(t, 26.67, got[0].AvgPI)
}

func TestAggregateByMethod_NilIndexSkipsCategoryCheck(t *testing.T) {
	got := AggregateByMethod(methodFixture(), 2, nil)
	if got[0].Total != 1 {
		t.Errorf("1A total = %d, want 1 without category scoping", got[0].Total)
	}
}

func TestInspect(t *testing.T) {
	items := []types.ChecklistItem{
		{ID: "ok", MethodKey: "A", Title: "(A) Charrettes"},
		{ID: "no-title-key", MethodKey: "B", Title: "Random Title"},
		{ID: "bad", MethodKey: "A", Title: "(C) Focus Group Discussions"},
	}

	want := []Inconsistency{{ItemID: "bad", Title: "(C) Focus Group Discussions", MethodKey: "A", TitleKey: "C"}}
	if diff := cmp.Diff(want, Inspect(items)); diff != "" {
		t.Errorf("Inspect() mismatch (-want +got):\n%s", diff)
	}
}

func TestMisfiled(t *testing.T) {
	index := catalog.BuildCategoryIndex(testCategories)
	items := []types.ChecklistItem{
		// Digital platform methods belong under IMPLEMENTATION.
		{ID: "web", CategoryID: "c3", ItemType: types.ItemDigital, StageNumber: stage(5), MethodKey: "D", Title: "(D) Mobile Applications"},
		{ID: "exhibit", CategoryID: "c2", StageNumber: stage(4), MethodKey: "A", Title: "(A) Public Exhibition"},
		{ID: "filed", CategoryID: "c4", ItemType: types.ItemDigital, StageNumber: stage(5), MethodKey: "D", Title: "(D) Mobile Applications"},
		{ID: "free-text", CategoryID: "c3", StageNumber: stage(2), MethodKey: "A", Title: "(A) Street survey"},
		{ID: "no-stage", CategoryID: "c1", Title: "(A) Public Exhibition"},
	}

	want := []MisfiledItem{
		{ItemID: "web", Title: "(D) Mobile Applications", Stage: 5, CategoryID: "c3", ParticipationCategory: 4, ExpectedCategory: catalog.Implementation},
		{ItemID: "exhibit", Title: "(A) Public Exhibition", Stage: 4, CategoryID: "c2", ParticipationCategory: 3, ExpectedCategory: catalog.CoProduction},
	}
	if diff := cmp.Diff(want, Misfiled(items, index)); diff != "" {
		t.Errorf("Misfiled() mismatch (-want +got):\n%s", diff)
	}

	// Both misfiled items are invisible to the stage's method rollup.
	got := AggregateByMethod(items, 5, index)
	var total int
	for _, m := range got {
		total += m.Total
	}
	assert.Equal(t, 1, total, "only the correctly filed item counts")

	assert.Empty(t, Misfiled(items, nil), "unresolved categories are not checked")
}

func TestAttach(t *testing.T) {
	items := []types.ChecklistItem{{ID: "i1"}, {ID: "i2"}}
	details := []types.ItemDetail{{ID: "d2", ChecklistItemID: "i2"}}

	got := Attach(items, details)

	if got[0].Detail != nil {
		t.Error("i1 should have no detail")
	}
	if got[1].Detail == nil || got[1].Detail.ID != "d2" {
		t.Errorf("i2 detail = %+v, want d2", got[1].Detail)
	}
	if items[1].Detail != nil {
		t.Error("Attach mutated its input")
	}
}
