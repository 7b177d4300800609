package rollup

import (
	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/types"
)

// StageSummary is the progress of one lifecycle stage.
type StageSummary struct {
	Stage          int    `json:"stage"`
	Name           string `json:"name"`
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Pending        int    `json:"pending"`
	CompletionRate int    `json:"completion_rate"`
}

// CategorySummary is the progress of one checklist category.
type CategorySummary struct {
	CategoryID     string `json:"category_id"`
	Name           string `json:"name"`
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Pending        int    `json:"pending"`
	CompletionRate int    `json:"completion_rate"`
	AnalogCount    int    `json:"analog_count"`
	DigitalCount   int    `json:"digital_count"`
}

// MethodSummary is the progress of one engagement method within a stage.
// AvgPI is a percentage rounded to two decimals.
type MethodSummary struct {
	CategoryNumber int     `json:"category_number"`
	MethodKey      string  `json:"method_key"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	AvgPI          float64 `json:"avg_pi"`
}

// stageOf returns the item's stage number when it names a known stage.
func stageOf(item types.ChecklistItem) (int, bool) {
	if item.StageNumber == nil {
		return 0, false
	}
	n := *item.StageNumber
	if n < 1 || n > catalog.StageCount {
		return 0, false
	}
	return n, true
}

// Unassigned counts items that belong to no lifecycle stage.
func Unassigned(items []types.ChecklistItem) int {
	n := 0
	for _, it := range items {
		if _, ok := stageOf(it); !ok {
			n++
		}
	}
	return n
}

// AggregateByStage summarises items per lifecycle stage. The result always
// holds one entry per stage, in stage order. Unassigned items are skipped.
func AggregateByStage(items []types.ChecklistItem) []StageSummary {
	out := make([]StageSummary, catalog.StageCount)
	for i, s := range catalog.Stages() {
		out[i] = StageSummary{Stage: s.Number, Name: s.Name}
	}

	for _, it := range items {
		n, ok := stageOf(it)
		if !ok {
			continue
		}
		s := &out[n-1]
		s.Total++
		if IsComplete(it) {
			s.Completed++
		}
	}

	for i := range out {
		out[i].Pending = out[i].Total - out[i].Completed
		out[i].CompletionRate = Rate(out[i].Completed, out[i].Total)
	}
	return out
}

// AggregateByCategory summarises items per checklist category, in the order
// the categories are given.
func AggregateByCategory(items []types.ChecklistItem, categories []types.Category) []CategorySummary {
	out := make([]CategorySummary, len(categories))
	pos := make(map[string]int, len(categories))
	for i, c := range categories {
		out[i] = CategorySummary{CategoryID: c.ID, Name: c.Name}
		pos[c.ID] = i
	}

	for _, it := range items {
		i, ok := pos[it.CategoryID]
		if !ok {
			continue
		}
		s := &out[i]
		s.Total++
		if IsComplete(it) {
			s.Completed++
		}
		switch it.ItemType {
		case types.ItemAnalog:
			s.AnalogCount++
		case types.ItemDigital:
			s.DigitalCount++
		}
	}

	for i := range out {
		out[i].Pending = out[i].Total - out[i].Completed
		out[i].CompletionRate = Rate(out[i].Completed, out[i].Total)
	}
	return out
}

// inParticipationCategory reports whether item is stored under the checklist
// category of pc. Membership is not checked when the index cannot resolve
// that category.
func inParticipationCategory(item types.ChecklistItem, pc catalog.ParticipationCategory, index catalog.CategoryIndex) bool {
	id, ok := index.ID(pc.StorageCategory)
	if !ok {
		return true
	}
	return item.CategoryID == id
}

// AggregateByMethod summarises, for one stage, every engagement method in
// catalog order. An item counts for a method when it is in the stage, is
// stored under the method's participation category, and MatchesMethod holds.
// AvgPI averages the stored PI of completed items that carry one.
func AggregateByMethod(items []types.ChecklistItem, stage int, index catalog.CategoryIndex) []MethodSummary {
	out := make([]MethodSummary, 0, catalog.MethodCount)

	for _, pc := range catalog.ParticipationCategories() {
		for _, m := range pc.Methods {
			s := MethodSummary{
				CategoryNumber: pc.Number,
				MethodKey:      m.Key,
				Code:           catalog.MethodCode(pc.Number, m.Key),
				Name:           m.Name,
			}

			var piSum float64
			var piCount int
			for _, it := range items {
				n, ok := stageOf(it)
				if !ok || n != stage {
					continue
				}
				if !inParticipationCategory(it, pc, index) || !MatchesMethod(it, m.Key) {
					continue
				}
				s.Total++
				if !IsComplete(it) {
					continue
				}
				s.Completed++
				if it.Detail != nil && it.Detail.CalculatedPI != nil {
					piSum += pi.Percent(*it.Detail.CalculatedPI)
					piCount++
				}
			}
			if piCount > 0 {
				s.AvgPI = pi.Round(piSum/float64(piCount), 2)
			}
			out = append(out, s)
		}
	}
	return out
}

// Inconsistency describes an item whose structured method key disagrees
// with the key written in its title.
type Inconsistency struct {
	ItemID    string `json:"item_id"`
	Title     string `json:"title"`
	MethodKey string `json:"method_key"`
	TitleKey  string `json:"title_key"`
}

// Inspect finds items whose method_key and title marker name different
// methods. Such items match both methods.
func Inspect(items []types.ChecklistItem) []Inconsistency {
	var out []Inconsistency
	for _, it := range items {
		if it.MethodKey == "" {
			continue
		}
		tk := TitleMethodKey(it.Title)
		if tk == "" || tk == it.MethodKey {
			continue
		}
		out = append(out, Inconsistency{
			ItemID:    it.ID,
			Title:     it.Title,
			MethodKey: it.MethodKey,
			TitleKey:  tk,
		})
	}
	return out
}

// MisfiledItem is a method item stored under a checklist category other than
// the one its participation category files methods under.
type MisfiledItem struct {
	ItemID                string `json:"item_id"`
	Title                 string `json:"title"`
	Stage                 int    `json:"stage"`
	CategoryID            string `json:"category_id"`
	ParticipationCategory int    `json:"participation_category"`
	ExpectedCategory      string `json:"expected_category"`
}

// Misfiled finds stage items whose title names a catalog method but whose
// category is not that method's storage category. Method rollups skip these
// items. Items whose expected category is missing from index are not checked.
func Misfiled(items []types.ChecklistItem, index catalog.CategoryIndex) []MisfiledItem {
	type home struct {
		number   int
		category string
	}
	homes := make(map[string]home)
	for _, pc := range catalog.ParticipationCategories() {
		for _, m := range pc.Methods {
			homes[catalog.MethodTitle(m)] = home{number: pc.Number, category: pc.StorageCategory}
		}
	}

	var out []MisfiledItem
	for _, it := range items {
		if it.StageNumber == nil {
			continue
		}
		h, ok := homes[it.Title]
		if !ok {
			continue
		}
		id, ok := index.ID(h.category)
		if !ok || id == it.CategoryID {
			continue
		}
		out = append(out, MisfiledItem{
			ItemID:                it.ID,
			Title:                 it.Title,
			Stage:                 *it.StageNumber,
			CategoryID:            it.CategoryID,
			ParticipationCategory: h.number,
			ExpectedCategory:      h.category,
		})
	}
	return out
}
