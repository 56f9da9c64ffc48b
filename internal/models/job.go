package models

import "strings"

// JobRecord is one extracted listing. Every field is nullable; a nil pointer
// is serialized as JSON null, never omitted.
type JobRecord struct {
	Title       *string `json:"title"`
	Company     *string `json:"company"`
	Location    *string `json:"location"`
	Salary      *string `json:"salary"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
}

// RecordFields lists the serialized keys in output order.
var RecordFields = []string{"title", "company", "location", "salary", "description", "url"}

// String returns a pointer to the trimmed value, or nil when it is empty.
func String(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// Value dereferences a nullable field, returning "" for nil.
func Value(field *string) string {
	if field == nil {
		return ""
	}
	return *field
}

// Set assigns a field by its serialized name. Unknown names are ignored.
func (r *JobRecord) Set(name string, value *string) {
	switch name {
	case "title":
		r.Title = value
	case "company":
		r.Company = value
	case "location":
		r.Location = value
	case "salary":
		r.Salary = value
	case "description":
		r.Description = value
	case "url":
		r.URL = value
	}
}

// Get returns a field by its serialized name.
func (r JobRecord) Get(name string) *string {
	switch name {
	case "title":
		return r.Title
	case "company":
		return r.Company
	case "location":
		return r.Location
	case "salary":
		return r.Salary
	case "description":
		return r.Description
	case "url":
		return r.URL
	default:
		return nil
	}
}

// Empty reports whether every field is null.
func (r JobRecord) Empty() bool {
	for _, name := range RecordFields {
		if r.Get(name) != nil {
			return false
		}
	}
	return true
}
