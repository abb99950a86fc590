package fields

import (
	"reflect"
	"testing"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
)

type refMap map[constants.Field][]string

func (r refMap) Values(f constants.Field) []string { return r[f] }

func newExtractor(t *testing.T, ref fuzzy.Candidates) *Extractor {
	t.Helper()
	ex, err := NewExtractor(DefaultParams(), ref)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return ex
}

func numeric(t *testing.T, minDigits, maxDigits, cutoff, window int) Heuristic {
	t.Helper()
	h, err := Numeric(minDigits, maxDigits, cutoff, window)
	if err != nil {
		t.Fatalf("Numeric: %v", err)
	}
	return h
}

func TestExtractTitleBlock(t *testing.T) {
	lines := []string{
		"RENAULT SCHEMA ELECTRIQUE",
		"Project: X1310",
		"Maturity: V12",
		"SFA CODE = 1",
		"SFA Name : CIRCUIT DE DEMARRAGE",
		"Applicability: ALL",
		"SFA Type: fonct",
	}
	got := newExtractor(t, nil).Extract(lines, "")
	want := map[constants.Field]string{
		constants.FieldProject:          "X1310",
		constants.FieldMilestone:        constants.NotFound,
		constants.FieldMaturity:         "V12",
		constants.FieldVersion:          "V12",
		constants.FieldSFACode:          "1",
		constants.FieldSerialDefinition: "1",
		constants.FieldSFAName:          "CIRCUIT DE DEMARRAGE",
		constants.FieldApplicability:    "ALL",
		constants.FieldSFAType:          "fonct",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract() =\n%v\nwant\n%v", got, want)
	}
}

func TestProjectCodeLine(t *testing.T) {
	got := newExtractor(t, nil).Extract([]string{"SCHEMA", "X0042"}, "")
	if got[constants.FieldProject] != "X0042" {
		t.Fatalf("Project = %q, want X0042", got[constants.FieldProject])
	}
}

func TestSplitHeuristic(t *testing.T) {
	lines := []string{"Project (code) : X1310"}
	if _, ok := KeyValue("Project")(lines, ""); ok {
		t.Fatal("key:value should not match when text separates key and colon")
	}
	v, ok := Split("Project")(lines, "")
	if !ok || v != "X1310" {
		t.Fatalf("Split = %q, %v", v, ok)
	}
	v, ok = Split("Version")([]string{"VERSION ref = 3"}, "")
	if !ok || v != "3" {
		t.Fatalf("Split with '=' = %q, %v", v, ok)
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		cutoff int
		want   string
		ok     bool
	}{
		{"skips future year", []string{"Rev 2031 plan", "ref 202"}, 2030, "202", true},
		{"accepts cutoff year", []string{"2030"}, 2030, "2030", true},
		{"configurable cutoff", []string{"2025", "77"}, 2020, "77", true},
		{"single digit ignored", []string{"page 7"}, 2030, "", false},
		{"five digits ignored", []string{"12345"}, 2030, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := numeric(t, 2, 4, tt.cutoff, 12)(tt.lines, "")
			if v != tt.want || ok != tt.ok {
				t.Fatalf("Numeric = (%q, %v), want (%q, %v)", v, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNumericWindow(t *testing.T) {
	lines := []string{"a", "b", "c 42"}
	if _, ok := numeric(t, 2, 4, 2030, 2)(lines, ""); ok {
		t.Fatal("number outside the window must be ignored")
	}
}

func TestNumericRejectsBadBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
	}{
		{"min above max", 5, 4},
		{"zero min", 0, 4},
		{"negative max", 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Numeric(tt.min, tt.max, 2030, 12); err == nil {
				t.Fatalf("Numeric(%d, %d) accepted invalid bounds", tt.min, tt.max)
			}
		})
	}

	p := DefaultParams()
	p.MinDigits, p.MaxDigits = 5, 4
	if _, err := NewExtractor(p, nil); err == nil {
		t.Fatal("NewExtractor must surface invalid digit bounds")
	}
}

func TestHeaderVersion(t *testing.T) {
	h := HeaderVersion(15, 15)

	v, ok := h([]string{"TITLE", "Maturity: V12"}, "")
	if !ok || v != "V12" {
		t.Fatalf("per-line = %q, %v", v, ok)
	}

	v, ok = h([]string{"Maturity V", "12 draft"}, "")
	if !ok || v != "V12" {
		t.Fatalf("merged = %q, %v", v, ok)
	}

	lines := make([]string, 16)
	for i := range lines {
		lines[i] = "filler"
	}
	lines[15] = "V5"
	if v, ok := h(lines, ""); ok {
		t.Fatalf("token past the header window resolved to %q", v)
	}
}

func TestReferenceHeuristic(t *testing.T) {
	ref := refMap{constants.FieldMilestone: {"VPC", "PT1 Central Gateway"}}
	h := Reference(ref, constants.FieldMilestone, 50)
	v, ok := h([]string{"noise", "pt1 central_gateway v2"}, "")
	if !ok || v != "PT1 Central Gateway" {
		t.Fatalf("Reference = %q, %v", v, ok)
	}

	h = Reference(refMap{constants.FieldMilestone: {"ZZZZ"}}, constants.FieldMilestone, 50)
	if _, ok := h([]string{"abc"}, ""); ok {
		t.Fatal("low score must be rejected")
	}
	if _, ok := Reference(nil, constants.FieldMilestone, 50)([]string{"abc"}, ""); ok {
		t.Fatal("nil reference must not resolve")
	}
}

func TestMilestoneKeywordFallback(t *testing.T) {
	got := newExtractor(t, refMap{}).Extract([]string{"TITLE", "Central   Gateway ECU"}, "")
	if got[constants.FieldMilestone] != "Central Gateway ECU" {
		t.Fatalf("Milestone = %q", got[constants.FieldMilestone])
	}
}

func TestDerive(t *testing.T) {
	f := map[constants.Field]string{
		constants.FieldVersion:  constants.NotFound,
		constants.FieldMaturity: "v3",
		constants.FieldSFACode:  constants.NotFound,
	}
	Derive(f)
	if f[constants.FieldVersion] != "v3" {
		t.Fatalf("Version = %q", f[constants.FieldVersion])
	}
	if _, ok := f[constants.FieldSerialDefinition]; ok {
		t.Fatal("unresolved SFA code must not be copied")
	}

	f = map[constants.Field]string{
		constants.FieldVersion:  constants.NotFound,
		constants.FieldMaturity: "Draft",
	}
	Derive(f)
	if f[constants.FieldVersion] != constants.NotFound {
		t.Fatalf("Version = %q", f[constants.FieldVersion])
	}
}

func TestThresholds(t *testing.T) {
	th := newExtractor(t, nil).Thresholds()
	if th[constants.FieldProject] != 55 || th[constants.FieldSFACode] != 80 {
		t.Fatalf("unexpected thresholds %v", th)
	}
}

func TestLines(t *testing.T) {
	got := Lines([]string{"  a  b ", ""}, "x\n\n y ")
	want := []string{"a b", "x", "y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines = %#v", got)
	}
}
