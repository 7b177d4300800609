package types

import (
	"encoding/json"
	"time"

	"github.com/hyperengineering/pindex/internal/pi"
)

// ItemType distinguishes in-person activities from digital ones.
type ItemType string

const (
	ItemAnalog  ItemType = "analog"
	ItemDigital ItemType = "digital"
)

// Project is the top-level unit a checklist belongs to.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category is a checklist category shared by all projects.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	Builtin   bool      `json:"builtin"`
	CreatedAt time.Time `json:"created_at"`
}

// ChecklistItem is one task within a project. StageNumber and MethodKey are
// set for items that record a participation method in a lifecycle stage.
type ChecklistItem struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	CategoryID  string      `json:"category_id"`
	ItemType    ItemType    `json:"item_type"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	IsCompleted bool        `json:"is_completed"`
	StageNumber *int        `json:"stage_number,omitempty"`
	MethodKey   string      `json:"method_key,omitempty"`
	Detail      *ItemDetail `json:"detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ItemDetail is the survey record attached to a checklist item.
// TotalParticipationN and CalculatedPI are derived from the five counts
// whenever the detail is saved.
type ItemDetail struct {
	ID                  string    `json:"id"`
	ChecklistItemID     string    `json:"checklist_item_id"`
	Activity            string    `json:"activity,omitempty"`
	Image1URL           string    `json:"image1_url,omitempty"`
	Image2URL           string    `json:"image2_url,omitempty"`
	Image3URL           string    `json:"image3_url,omitempty"`
	Image4URL           string    `json:"image4_url,omitempty"`
	AttendFA            *float64  `json:"attend_fa"`
	ConsultFC           *float64  `json:"consult_fc"`
	InvolveFI           *float64  `json:"involve_fi"`
	CollaborateFCOL     *float64  `json:"collaborate_fcol"`
	EmpowerFEMP         *float64  `json:"empower_femp"`
	TotalParticipationN *float64  `json:"total_participation_n"`
	CalculatedPI        *float64  `json:"calculated_pi"`
	Assumptions         string    `json:"assumptions,omitempty"`
	DataCollectedBy     string    `json:"data_collected_by,omitempty"`
	CollectionDate      string    `json:"collection_date,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Counts returns the participation counts recorded in the detail.
func (d ItemDetail) Counts() pi.Counts {
	return pi.Counts{
		Attend:      d.AttendFA,
		Consult:     d.ConsultFC,
		Involve:     d.InvolveFI,
		Collaborate: d.CollaborateFCOL,
		Empower:     d.EmpowerFEMP,
	}
}

// NewProject holds the caller-supplied fields of a project.
type NewProject struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// NewChecklistItem holds the fields of an item about to be created.
type NewChecklistItem struct {
	ProjectID   string
	CategoryID  string
	ItemType    ItemType
	Title       string
	Description string
	StageNumber *int
	MethodKey   string
}

// DetailInput is the editable part of an ItemDetail.
type DetailInput struct {
	Activity        string   `json:"activity,omitempty"`
	Image1URL       string   `json:"image1_url,omitempty"`
	Image2URL       string   `json:"image2_url,omitempty"`
	Image3URL       string   `json:"image3_url,omitempty"`
	Image4URL       string   `json:"image4_url,omitempty"`
	AttendFA        *float64 `json:"attend_fa"`
	ConsultFC       *float64 `json:"consult_fc"`
	InvolveFI       *float64 `json:"involve_fi"`
	CollaborateFCOL *float64 `json:"collaborate_fcol"`
	EmpowerFEMP     *float64 `json:"empower_femp"`
	Assumptions     string   `json:"assumptions,omitempty"`
	DataCollectedBy string   `json:"data_collected_by,omitempty"`
	CollectionDate  string   `json:"collection_date,omitempty"`
}

// Counts returns the participation counts of the input.
func (in DetailInput) Counts() pi.Counts {
	return pi.Counts{
		Attend:      in.AttendFA,
		Consult:     in.ConsultFC,
		Involve:     in.InvolveFI,
		Collaborate: in.CollaborateFCOL,
		Empower:     in.EmpowerFEMP,
	}
}

// CreateItemRequest represents a request to add a custom checklist item.
type CreateItemRequest struct {
	CategoryID  string   `json:"category_id"`
	ItemType    ItemType `json:"item_type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
}

// CreateCategoryRequest represents a request to add a custom category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// ProjectSummary is a project with its checklist progress.
type ProjectSummary struct {
	Project
	Completed      int `json:"completed"`
	Total          int `json:"total"`
	CompletionRate int `json:"completion_rate"`
}

// CategoryChecklist groups a project's items of one category by type.
type CategoryChecklist struct {
	Category Category        `json:"category"`
	Analog   []ChecklistItem `json:"analog"`
	Digital  []ChecklistItem `json:"digital"`
}

// MarshalJSON ensures nil slices in CategoryChecklist marshal as [] not null.
func (c CategoryChecklist) MarshalJSON() ([]byte, error) {
	if c.Analog == nil {
		c.Analog = []ChecklistItem{}
	}
	if c.Digital == nil {
		c.Digital = []ChecklistItem{}
	}
	type Alias CategoryChecklist
	return json.Marshal(Alias(c))
}

// StoreStats contains aggregate row counts.
type StoreStats struct {
	ProjectCount int64 `json:"project_count"`
	ItemCount    int64 `json:"item_count"`
	DetailCount  int64 `json:"detail_count"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Database     string `json:"database"`
	ProjectCount int64  `json:"project_count"`
}

// ExportResult describes where a report archive was written.
type ExportResult struct {
	ProjectID string     `json:"project_id"`
	Location  string     `json:"location"`
	SizeBytes int64      `json:"size_bytes"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RemoveCategoryResult reports the outcome of removing a category from a
// project. CategoryDeleted is true when the category row itself was deleted.
type RemoveCategoryResult struct {
	CategoryID      string `json:"category_id"`
	CategoryDeleted bool   `json:"category_deleted"`
}

// MethodItemResponse is the checklist item recording a method in a stage.
// Created reports whether the item was created by the request.
type MethodItemResponse struct {
	Item    ChecklistItem `json:"item"`
	Created bool          `json:"created"`
}
