package constants

// Field is the canonical name of an extracted metadata field. The string value
// doubles as the key token searched for in document lines and as the column
// header of the reference workbook.
type Field string

const (
	FieldProject          Field = "Project"
	FieldMilestone        Field = "Milestone"
	FieldMaturity         Field = "Maturity"
	FieldVersion          Field = "Version"
	FieldSFACode          Field = "SFA CODE"
	FieldSerialDefinition Field = "Serial Definition"
	FieldSFAName          Field = "SFA Name"
	FieldApplicability    Field = "Applicability"
	FieldSFAType          Field = "SFA Type"
)

// NotFound is the sentinel value of a field whose heuristics all failed.
const NotFound = "Not found"

var allFields = []Field{
	FieldProject,
	FieldMilestone,
	FieldMaturity,
	FieldVersion,
	FieldSFACode,
	FieldSerialDefinition,
	FieldSFAName,
	FieldApplicability,
	FieldSFAType,
}

// AllFields returns every field in output order.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// ReferenceFields are the fields backed by a reference column.
var ReferenceFields = []Field{
	FieldProject,
	FieldMilestone,
	FieldMaturity,
	FieldSFACode,
	FieldSFAName,
	FieldApplicability,
	FieldSFAType,
}

// PassThroughFields are reported as extracted with a similarity of 100.
var PassThroughFields = []Field{
	FieldVersion,
	FieldSerialDefinition,
}

// AsStringSlice returns the field names as plain strings.
func AsStringSlice() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// IsNotFound reports whether v is empty or the sentinel.
func IsNotFound(v string) bool {
	return v == "" || v == NotFound
}
