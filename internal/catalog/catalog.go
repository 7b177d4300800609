// Package catalog holds the fixed reference data of the participation
// framework: the six lifecycle stages, the four participation categories
// with their thirteen engagement methods, the builtin checklist categories,
// and the default checklist seeded into every new project.
package catalog

import (
	"fmt"

	"github.com/hyperengineering/pindex/internal/types"
)

// Builtin checklist category names, in display order.
const (
	GoalSetting    = "GOAL SETTING"
	Programming    = "PROGRAMMING"
	CoProduction   = "CO-PRODUCTION"
	Implementation = "IMPLEMENTATION"
)

// BuiltinCategories lists the checklist categories every database starts with.
var BuiltinCategories = []string{GoalSetting, Programming, CoProduction, Implementation}

// StageCount is the number of lifecycle stages.
const StageCount = 6

// MethodCount is the number of engagement methods across all participation
// categories.
const MethodCount = 13

// Stage is one step of the project lifecycle.
type Stage struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

var stages = [StageCount]Stage{
	{1, "INITIATION & USER REQUIREMENTS"},
	{2, "BRIEFING AND SITE SURVEY"},
	{3, "SCHEMATIC AND PRODUCT DESIGN"},
	{4, "PRODUCT INFORMATION AND WORKING DRAWINGS (Detail Design)"},
	{5, "ASSEMBLY, PRODUCTION AND CONSTRUCTION"},
	{6, "CONSUMPTION AND IMPLEMENTATION"},
}

// Stages returns the lifecycle stages in order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages[:])
	return out
}

// StageByNumber returns the stage numbered n (1-based).
func StageByNumber(n int) (Stage, bool) {
	if n < 1 || n > StageCount {
		return Stage{}, false
	}
	return stages[n-1], true
}

// Method is an engagement technique within a participation category.
type Method struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ParticipationCategory groups engagement methods. Items recorded for its
// methods are stored under the checklist category named StorageCategory.
// Method rollups only look under StorageCategory, so an item filed under
// another category is left out of them; rollup.Misfiled reports such items.
type ParticipationCategory struct {
	Number          int      `json:"number"`
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	References      string   `json:"references"`
	StorageCategory string   `json:"storage_category"`
	Methods         []Method `json:"methods"`
}

var participationCategories = []ParticipationCategory{
	{
		Number:          1,
		Title:           "PARTICIPATORY NEEDS ASSESSMENT AND PROGRAMMING",
		Subtitle:        "Emphasizes early and continuous engagement with actors to inform spatial decision-making",
		References:      "Arnstein, S. R.; Chambers, R.; Groat, L., & Wang, D.; Krueger, R. A., & Casey, M. A.; Kvale, S., & Brinkmann, S.; Sanoff, H.",
		StorageCategory: GoalSetting,
		Methods: []Method{
			{"A", "Problem-Tree Analysis"},
			{"B", "Surveys & Interviews"},
			{"C", "Focus Group Discussions"},
			{"D", "Participatory Mapping"},
		},
	},
	{
		Number:          2,
		Title:           "COLLABORATIVE DESIGN AND CO-CREATION WORKSHOPS",
		Subtitle:        "Redistribute power within the design process by creating conditions for meaningful participation",
		References:      "Hester, R. T.; Innes, J. E., & Booher, D. E.; Lennterz, B., & Lutzenhiser, A.; Sanders, E. B.-N, & Stappers, P. J.; Sanoff, H.; Till, J.",
		StorageCategory: Programming,
		Methods: []Method{
			{"A", "Charrettes"},
			{"B", "Scenario-Building Exercises"},
			{"C", "Model-Making Activities"},
		},
	},
	{
		Number:          3,
		Title:           "ITERATIVE FEEDBACK LOOPS AND SYSTEMATIC DOCUMENTATION",
		Subtitle:        "Recording community inputs, design decisions, and subsequent revisions, and clearly communicating how participant contributions influence the evolving project",
		References:      "Arnstein, S. R.; Callon, M.; Latour, B.; Sanoff, H.",
		StorageCategory: CoProduction,
		Methods: []Method{
			{"A", "Public Exhibition"},
		},
	},
	{
		Number:          4,
		Title:           "DIGITAL PARTICIPATORY PLATFORMS",
		Subtitle:        "Creates continuous and flexible engagement across time and space",
		References:      "Atzmanstorfer, K., et al.; Batty, M., et al.; Innes, J. E., & Booher, D. E.; Sanders, E. B.-N, & Stappers, P. J.",
		StorageCategory: Implementation,
		Methods: []Method{
			{"A", "Web-based Portals"},
			{"B", "Interactive Mapping Tools"},
			{"C", "Online Forums"},
			{"D", "Mobile Applications"},
			{"E", "Immersive Virtual Reality-Based Workshops"},
		},
	},
}

// ParticipationCategories returns the four participation categories in order.
// The returned slice and its method lists are copies.
func ParticipationCategories() []ParticipationCategory {
	out := make([]ParticipationCategory, len(participationCategories))
	for i, c := range participationCategories {
		c.Methods = append([]Method(nil), c.Methods...)
		out[i] = c
	}
	return out
}

// ParticipationCategoryByNumber returns the participation category numbered n.
func ParticipationCategoryByNumber(n int) (ParticipationCategory, bool) {
	for _, c := range participationCategories {
		if c.Number == n {
			c.Methods = append([]Method(nil), c.Methods...)
			return c, true
		}
	}
	return ParticipationCategory{}, false
}

// Method returns the method with the given key.
func (c ParticipationCategory) Method(key string) (Method, bool) {
	for _, m := range c.Methods {
		if m.Key == key {
			return m, true
		}
	}
	return Method{}, false
}

// ItemType is the item type recorded for this category's methods.
// Only the digital platforms category records digital items.
func (c ParticipationCategory) ItemType() types.ItemType {
	if c.Number == 4 {
		return types.ItemDigital
	}
	return types.ItemAnalog
}

// MethodKeys lists every key a method may carry.
var MethodKeys = []string{"A", "B", "C", "D", "E"}

// MethodTitle is the checklist title of a method item, e.g.
// "(B) Surveys & Interviews".
func MethodTitle(m Method) string {
	return fmt.Sprintf("(%s) %s", m.Key, m.Name)
}

// MethodCode is the short code of a method, e.g. "1B".
func MethodCode(categoryNumber int, key string) string {
	return fmt.Sprintf("%d%s", categoryNumber, key)
}

// CategoryIndex maps checklist category names to their ids.
type CategoryIndex map[string]string

// BuildCategoryIndex indexes the given categories by name. Build a fresh
// index for each request; category ids are not stable across databases.
func BuildCategoryIndex(categories []types.Category) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for _, c := range categories {
		idx[c.Name] = c.ID
	}
	return idx
}

// ID returns the id of the category with the given name.
func (idx CategoryIndex) ID(name string) (string, bool) {
	id, ok := idx[name]
	return id, ok
}
