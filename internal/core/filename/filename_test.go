package filename

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Meta
	}{
		{
			name: "starter schematic",
			path: "SCH_cmfb_1_CIRCUIT_DE_DEMARRAGE_Starter_V17.pdf",
			want: Meta{Platform: "cmfb", Code: "1", Label: "circuit de demarrage starter", Version: "V17"},
		},
		{
			name: "prefix with milestone and project folder",
			path: `D:\schemas\X1310\PT1\X1310_PT1_cmfa_34_ECLAIRAGE_v3.pdf`,
			want: Meta{
				Platform:  "cmfa",
				Code:      "34",
				Label:     "eclairage",
				Version:   "V3",
				Milestone: "PT1",
				Project:   "X1310",
			},
		},
		{
			name: "nothing recognizable",
			path: "notes.pdf",
			want: Meta{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.path); got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMilestone(t *testing.T) {
	tests := map[string]string{
		"x_pt2_y":         "PT2",
		"folder/RFQ_PIEA": "RFQ_PIEA",
		"rfq only":        "RFQ",
		"PTX":             "",
		"vpc":             "VPC",
	}
	for in, want := range tests {
		if got := Milestone(in); got != want {
			t.Errorf("Milestone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaturitySchema(t *testing.T) {
	tests := map[string]string{
		"Etat: DEFINITIF":      "Definitif (Serial version)",
		"hypothese de travail": "Hypotheses",
		"status In Work":       "In Work",
		"Etat : Définitif":     "Definitif (Serial version)",
		"HYPOTHÈSE":            "Hypotheses",
		"in_work":              "In Work",
		"nothing":              "",
	}
	for in, want := range tests {
		if got := MaturitySchema(in); got != want {
			t.Errorf("MaturitySchema(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyText(t *testing.T) {
	m := Parse("SCH_cmfb_1_CIRCUIT_V17.pdf")
	m.ApplyText("Projet X1310_B\nJalon PIEC\nÉtat Définitif")
	if m.Project != "X1310_B" || m.Milestone != "PIEC" || m.MaturitySchema != "Definitif (Serial version)" {
		t.Fatalf("ApplyText = %+v", m)
	}

	m = Parse("/data/X0042/PT1/SCH_cmfb_1_CIRCUIT_V17.pdf")
	m.ApplyText("X1310 VPC hypothese")
	if m.Project != "X0042" || m.Milestone != "PT1" || m.MaturitySchema != "Hypotheses" {
		t.Fatalf("path values must win over text: %+v", m)
	}

	var empty Meta
	empty.ApplyText("")
	if !empty.IsZero() {
		t.Fatalf("empty text changed meta: %+v", empty)
	}
}
