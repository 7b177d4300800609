package rollup

import (
	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/types"
)

// StageMethodView is one method of a participation category as seen from a
// stage: whether any matching item is complete, and those items.
type StageMethodView struct {
	Key       string                `json:"key"`
	Name      string                `json:"name"`
	Code      string                `json:"code"`
	Title     string                `json:"title"`
	Completed bool                  `json:"completed"`
	Items     []types.ChecklistItem `json:"items"`
}

// StageCategoryView is a participation category within a stage.
type StageCategoryView struct {
	Number     int               `json:"number"`
	Title      string            `json:"title"`
	Subtitle   string            `json:"subtitle"`
	References string            `json:"references"`
	Methods    []StageMethodView `json:"methods"`
}

// StageView lists every participation category and method for one stage.
type StageView struct {
	Stage            int                 `json:"stage"`
	Name             string              `json:"name"`
	CompletedMethods int                 `json:"completed_methods"`
	Categories       []StageCategoryView `json:"categories"`
}

// ProjectStage builds the stage view. Methods are matched the same way as in
// AggregateByMethod; only completed items are listed. ok is false for an
// unknown stage.
func ProjectStage(items []types.ChecklistItem, stage int, index catalog.CategoryIndex) (StageView, bool) {
	st, ok := catalog.StageByNumber(stage)
	if !ok {
		return StageView{}, false
	}

	view := StageView{Stage: st.Number, Name: st.Name, Categories: []StageCategoryView{}}
	for _, pc := range catalog.ParticipationCategories() {
		cv := StageCategoryView{
			Number:     pc.Number,
			Title:      pc.Title,
			Subtitle:   pc.Subtitle,
			References: pc.References,
			Methods:    make([]StageMethodView, 0, len(pc.Methods)),
		}
		for _, m := range pc.Methods {
			mv := StageMethodView{
				Key:   m.Key,
				Name:  m.Name,
				Code:  catalog.MethodCode(pc.Number, m.Key),
				Title: catalog.MethodTitle(m),
				Items: []types.ChecklistItem{},
			}
			for _, it := range items {
				n, ok := stageOf(it)
				if !ok || n != stage || !IsComplete(it) {
					continue
				}
				if !inParticipationCategory(it, pc, index) || !MatchesMethod(it, m.Key) {
					continue
				}
				mv.Items = append(mv.Items, it)
			}
			mv.Completed = len(mv.Items) > 0
			if mv.Completed {
				view.CompletedMethods++
			}
			cv.Methods = append(cv.Methods, mv)
		}
		view.Categories = append(view.Categories, cv)
	}
	return view, true
}
