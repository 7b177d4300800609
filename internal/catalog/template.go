package catalog

import "github.com/hyperengineering/pindex/internal/types"

// TemplateItem is one entry of the default checklist.
type TemplateItem struct {
	Category string
	ItemType types.ItemType
	Title    string
}

var defaultChecklist = map[string]map[types.ItemType][]string{
	GoalSetting: {
		types.ItemAnalog: {
			"Problem framing/situation analysis",
			"Community needs inventory",
			"Draft broad goals (visioning)",
			"Define measurable objectives & evaluation metrics",
			"Stakeholder validation & prioritization",
		},
		types.ItemDigital: {
			"Representative stakeholder identification & early inclusion",
			"Baseline geospatial & socio-economic data readiness",
			"Policy/decision-making alignment",
			"Privacy, legal & ethical constraints assessment",
		},
	},
	Programming: {
		types.ItemAnalog: {
			"Detailed needs & site analysis",
			"Generate alternative program scenarios",
			"Technical/financial constraints & feasibility",
			"Define roles, tasks & timelines",
		},
		types.ItemDigital: {
			"Technical readiness & interoperability planning",
			"Digital inclusion & capacity building plan",
			"Data governance setup (metadata, stewardship)",
			"Monitoring indicators (geospatial M&E)",
		},
	},
	CoProduction: {
		types.ItemAnalog: {
			"Design engagement plan",
			"Facilitated workshops / charrettes (iterative)",
			"Visualization & prototyping",
			"Consensus building, negotiation & conflict management",
			"Documenting inputs & feedback loops",
		},
		types.ItemDigital: {
			"Usability & user centered interface",
			"Incorporation of local knowledge into geodata",
			"Real, visible feedback loops",
			"Moderation, facilitation & technical support during sessions",
			"Transparency & legitimacy of data handling",
		},
	},
	Implementation: {
		types.ItemAnalog: {
			"Phase definition & scheduling",
			"Facilitated workshops / charrettes (iterative)",
			"Procurement & contracting aligned with community goals",
			"On-site supervision with community oversight",
			"Monitoring, evaluation & adaptive adjustments",
			"Handover, maintenance & sustainability arrangements",
		},
		types.ItemDigital: {
			"Integration of DPP outputs into formal decision",
			"Sustainability & funding for platforms",
			"Geospatial M&E & live updating",
			"Governance, accountability & open reporting",
		},
	},
}

// DefaultChecklist returns the items seeded into a new project, ordered by
// builtin category, then analog before digital.
func DefaultChecklist() []TemplateItem {
	var out []TemplateItem
	for _, cat := range BuiltinCategories {
		for _, it := range []types.ItemType{types.ItemAnalog, types.ItemDigital} {
			for _, title := range defaultChecklist[cat][it] {
				out = append(out, TemplateItem{Category: cat, ItemType: it, Title: title})
			}
		}
	}
	return out
}
