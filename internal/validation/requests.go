package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperengineering/pindex/internal/catalog"
	"github.com/hyperengineering/pindex/internal/pi"
	"github.com/hyperengineering/pindex/internal/types"
)

// Field limits for user supplied text.
const (
	MaxNameLength        = 200
	MaxTitleLength       = 300
	MaxDescriptionLength = 4000
	MaxNoteLength        = 4000
	MaxImageLength       = 2 << 20
)

// ValidateImageRef returns an error unless value is empty, an http(s) URL or
// an inline data:image/ URI.
func ValidateImageRef(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "data:image/") ||
		strings.HasPrefix(value, "http://") ||
		strings.HasPrefix(value, "https://") {
		return ValidateMaxLength(field, value, MaxImageLength)
	}
	return &ValidationError{
		Field:   field,
		Message: "must be an http(s) URL or a data:image/ URI",
	}
}

// ValidateDate returns an error unless value is empty or a YYYY-MM-DD date.
func ValidateDate(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return &ValidationError{
			Field:   field,
			Message: "must be a date in YYYY-MM-DD format",
		}
	}
	return nil
}

// ValidateStage returns an error if n is not one of the six design stages.
func ValidateStage(field string, n int) *ValidationError {
	if n < 1 || n > catalog.StageCount {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between 1 and %d", catalog.StageCount),
		}
	}
	return nil
}

// ValidateMethod returns an error if key is not a method of the given
// participation category.
func ValidateMethod(field string, category int, key string) *ValidationError {
	pc, ok := catalog.ParticipationCategoryByNumber(category)
	if !ok {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown participation category %d", category),
		}
	}
	if _, ok := pc.Method(key); !ok {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown method %q for participation category %d", key, category),
		}
	}
	return nil
}

// ValidateText applies the common checks for free text: valid UTF-8, no null
// bytes and a maximum length.
func ValidateText(c *Collector, field, value string, max int) {
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateNewProject checks a project create or update request.
func ValidateNewProject(p types.NewProject) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("name", p.Name))
	ValidateText(&c, "name", p.Name, MaxNameLength)
	ValidateText(&c, "description", p.Description, MaxDescriptionLength)
	c.Add(ValidateImageRef("image", p.Image))
	return c.Errors()
}

// ValidateCreateItem checks a request to add a custom checklist item.
func ValidateCreateItem(req types.CreateItemRequest) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("category_id", req.CategoryID))
	if req.CategoryID != "" {
		c.Add(ValidateULID("category_id", req.CategoryID))
	}
	c.Add(ValidateEnum("item_type", string(req.ItemType), []string{string(types.ItemAnalog), string(types.ItemDigital)}))
	c.Add(ValidateRequired("title", req.Title))
	ValidateText(&c, "title", req.Title, MaxTitleLength)
	ValidateText(&c, "description", req.Description, MaxDescriptionLength)
	return c.Errors()
}

// ValidateCategoryName checks a request to add a custom category.
func ValidateCategoryName(name string) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("name", name))
	ValidateText(&c, "name", name, MaxNameLength)
	return c.Errors()
}

// ValidateDetailInput checks a detail save request. Counts must be finite and
// non-negative; absent counts are allowed.
func ValidateDetailInput(in types.DetailInput) []ValidationError {
	var c Collector

	counts := []struct {
		field string
		value *float64
	}{
		{"attend_fa", in.AttendFA},
		{"consult_fc", in.ConsultFC},
		{"involve_fi", in.InvolveFI},
		{"collaborate_fcol", in.CollaborateFCOL},
		{"empower_femp", in.EmpowerFEMP},
	}
	for _, cnt := range counts {
		if err := pi.ValidateCount(cnt.value); err != nil {
			c.Add(&ValidationError{Field: cnt.field, Message: err.Error()})
		}
	}

	ValidateText(&c, "activity", in.Activity, MaxNoteLength)
	ValidateText(&c, "assumptions", in.Assumptions, MaxNoteLength)
	ValidateText(&c, "data_collected_by", in.DataCollectedBy, MaxNameLength)
	c.Add(ValidateDate("collection_date", in.CollectionDate))

	for i, img := range []string{in.Image1URL, in.Image2URL, in.Image3URL, in.Image4URL} {
		c.Add(ValidateImageRef(fmt.Sprintf("image%d_url", i+1), img))
	}
	return c.Errors()
}
