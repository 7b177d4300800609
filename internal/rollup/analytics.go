package rollup

import (
	"fmt"

	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/types"
)

// labelLength is the number of runes of an item title kept in chart labels.
const labelLength = 20

// Bar is a completed/pending pair for a stacked bar chart.
type Bar struct {
	Name           string `json:"name"`
	Completed      int    `json:"completed"`
	Pending        int    `json:"pending"`
	CompletionRate int    `json:"completion_rate"`
}

// Overall is the project-wide completion split.
type Overall struct {
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Total          int `json:"total"`
	Unassigned     int `json:"unassigned"`
	CompletionRate int `json:"completion_rate"`
}

// ItemPIPoint is the PI of one item with recorded survey data. PIPercent is
// nil when the recorded counts sum to zero.
type ItemPIPoint struct {
	ItemID    string         `json:"item_id"`
	Title     string         `json:"title"`
	Label     string         `json:"label"`
	Category  string         `json:"category"`
	ItemType  types.ItemType `json:"item_type"`
	PIPercent *float64       `json:"pi_percent"`
}

// CategoryPIPoint is the mean item PI of one category.
type CategoryPIPoint struct {
	Category     string  `json:"category"`
	AveragePI    float64 `json:"average_pi"`
	ItemCount    int     `json:"item_count"`
	AnalogCount  int     `json:"analog_count"`
	DigitalCount int     `json:"digital_count"`
}

// StageMethods is the method breakdown of one stage.
type StageMethods struct {
	Stage            int             `json:"stage"`
	Name             string          `json:"name"`
	CompletedMethods int             `json:"completed_methods"`
	Methods          []MethodSummary `json:"methods"`
}

// AnalyticsSeries is the chart-ready view of a project.
type AnalyticsSeries struct {
	Stages            []Bar             `json:"stages"`
	Categories        []Bar             `json:"categories"`
	Overall           Overall           `json:"overall"`
	ItemPI            []ItemPIPoint     `json:"item_pi"`
	CategoryPI        []CategoryPIPoint `json:"category_pi"`
	Methods           []StageMethods    `json:"methods"`
	StageSummaries    []StageSummary    `json:"stage_summaries"`
	CategorySummaries []CategorySummary `json:"category_summaries"`
	Inconsistencies   []Inconsistency   `json:"inconsistencies"`
	Misfiled          []MisfiledItem    `json:"misfiled"`
}

// ProjectForAnalytics joins details onto items and derives every analytics
// view of a project. Nothing is cached; call it again after any change.
func ProjectForAnalytics(items []types.ChecklistItem, details []types.ItemDetail, categories []types.Category) AnalyticsSeries {
	items = Attach(items, details)
	index := catalog.BuildCategoryIndex(categories)

	series := AnalyticsSeries{
		Stages:          []Bar{},
		Categories:      []Bar{},
		ItemPI:          []ItemPIPoint{},
		CategoryPI:      []CategoryPIPoint{},
		Methods:         []StageMethods{},
		Inconsistencies: Inspect(items),
	}
	if series.Inconsistencies == nil {
		series.Inconsistencies = []Inconsistency{}
	}
	series.Misfiled = Misfiled(items, index)
	if series.Misfiled == nil {
		series.Misfiled = []MisfiledItem{}
	}

	series.StageSummaries = AggregateByStage(items)
	for _, s := range series.StageSummaries {
		series.Stages = append(series.Stages, Bar{
			Name:           stageLabel(s.Stage),
			Completed:      s.Completed,
			Pending:        s.Pending,
			CompletionRate: s.CompletionRate,
		})
	}

	series.CategorySummaries = AggregateByCategory(items, categories)
	for _, c := range series.CategorySummaries {
		series.Categories = append(series.Categories, Bar{
			Name:           c.Name,
			Completed:      c.Completed,
			Pending:        c.Pending,
			CompletionRate: c.CompletionRate,
		})
	}

	completed, total := Counts(items)
	series.Overall = Overall{
		Completed:      completed,
		Pending:        total - completed,
		Total:          total,
		Unassigned:     Unassigned(items),
		CompletionRate: Rate(completed, total),
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	for _, it := range items {
		if it.Detail == nil {
			continue
		}
		p := ItemPIPoint{
			ItemID:   it.ID,
			Title:    it.Title,
			Label:    truncate(it.Title, labelLength),
			Category: names[it.CategoryID],
			ItemType: it.ItemType,
		}
		if v, ok := pi.Compute(it.Detail.Counts()); ok {
			pct := pi.Round(pi.Percent(v), 2)
			p.PIPercent = &pct
		}
		series.ItemPI = append(series.ItemPI, p)
	}

	series.CategoryPI = categoryPI(items, categories)

	for _, s := range catalog.Stages() {
		methods := AggregateByMethod(items, s.Number, index)
		sm := StageMethods{Stage: s.Number, Name: s.Name, Methods: methods}
		for _, m := range methods {
			if m.Completed > 0 {
				sm.CompletedMethods++
			}
		}
		series.Methods = append(series.Methods, sm)
	}

	return series
}

// categoryPI averages item PI per category over items with a defined PI.
// Categories without such items are left out.
func categoryPI(items []types.ChecklistItem, categories []types.Category) []CategoryPIPoint {
	out := []CategoryPIPoint{}
	for _, c := range categories {
		p := CategoryPIPoint{Category: c.Name}
		var sum float64
		for _, it := range items {
			if it.CategoryID != c.ID || it.Detail == nil {
				continue
			}
			v, ok := pi.Compute(it.Detail.Counts())
			if !ok {
				continue
			}
			sum += pi.Percent(v)
			p.ItemCount++
			switch it.ItemType {
			case types.ItemAnalog:
				p.AnalogCount++
			case types.ItemDigital:
				p.DigitalCount++
			}
		}
		if p.ItemCount == 0 {
			continue
		}
		p.AveragePI = pi.Round(sum/float64(p.ItemCount), 2)
		out = append(out, p)
	}
	return out
}

func stageLabel(n int) string {
	return fmt.Sprintf("Stage %d", n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
