// Package rollup turns a project's checklist rows into progress summaries.
//
// Every function here is pure: it reads the rows it is given and never
// mutates them. Completion is always decided by IsComplete so that list
// views, aggregations, and reports agree.
package rollup

import (
	"math"
	"regexp"
	"strings"

	"github.com/hyperengineering/pindex/internal/types"
)

// IsComplete reports whether an item counts as done: either it was marked
// complete or survey data has been recorded for it.
func IsComplete(item types.ChecklistItem) bool {
	return item.IsCompleted || item.Detail != nil
}

// MatchesMethod reports whether item records the method with the given key.
// The structured method_key and the "(K)" marker in the title are both
// honoured; either one is enough.
func MatchesMethod(item types.ChecklistItem, key string) bool {
	if key == "" {
		return false
	}
	return item.MethodKey == key || strings.Contains(item.Title, "("+key+")")
}

var titleKeyPattern = regexp.MustCompile(`\(([A-E])\)`)

// TitleMethodKey extracts the method key embedded in a title such as
// "(C) Focus Group Discussions". It returns "" when there is none.
func TitleMethodKey(title string) string {
	m := titleKeyPattern.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}

// Counts tallies completed and total items.
func Counts(items []types.ChecklistItem) (completed, total int) {
	for _, it := range items {
		total++
		if IsComplete(it) {
			completed++
		}
	}
	return completed, total
}

// Rate returns completed/total as a whole percentage, 0 when total is 0.
func Rate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Attach returns copies of items with their details joined by item id.
// Items keep an already attached detail when details holds none for them.
func Attach(items []types.ChecklistItem, details []types.ItemDetail) []types.ChecklistItem {
	byItem := make(map[string]types.ItemDetail, len(details))
	for _, d := range details {
		byItem[d.ChecklistItemID] = d
	}

	out := make([]types.ChecklistItem, len(items))
	for i, it := range items {
		if d, ok := byItem[it.ID]; ok {
			d := d
			it.Detail = &d
		}
		out[i] = it
	}
	return out
}
