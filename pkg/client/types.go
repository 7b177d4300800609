package client

import (
	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/rollup"
	"github.com/hyperengineering/pindex/internal/types"
)

// Wire types shared with the server.
type (
	Project              = types.Project
	ProjectSummary       = types.ProjectSummary
	NewProject           = types.NewProject
	Category             = types.Category
	ChecklistItem        = types.ChecklistItem
	CategoryChecklist    = types.CategoryChecklist
	CreateItemRequest    = types.CreateItemRequest
	ItemDetail           = types.ItemDetail
	DetailInput          = types.DetailInput
	MethodItemResponse   = types.MethodItemResponse
	RemoveCategoryResult = types.RemoveCategoryResult
	HealthResponse       = types.HealthResponse
	ExportResult         = types.ExportResult

	StageView       = rollup.StageView
	AnalyticsSeries = rollup.AnalyticsSeries
	Report          = report.Report
)

// FieldError is one invalid field reported by the server.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
