package libpath

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "dollar marker with backslashes",
			text: `ref: $LIB_FONCTIONS_SITE\05_RNTBCI\cmfb\starter.xlsx sheet1 end`,
			want: []string{"$LIB_FONCTIONS_SITE/05_RNTBCI/cmfb/starter.xlsx sheet1"},
		},
		{
			name: "S marker with leading digits across lines",
			text: "12 SLIB FONCTIONS-SITE/05_RNTBCI/\n   foo.xlsx   Sheet1",
			want: []string{"12 SLIB FONCTIONS-SITE/05_RNTBCI/ foo.xlsx Sheet1"},
		},
		{
			name: "five marker is a known gap",
			text: "5LIB_FONCTIONS_SITE/05_RNTBCI/foo/bar sheet1",
			want: []string{},
		},
		{
			name: "dedupe preserves first-seen order",
			text: "$LIB_FONCTIONS_SITE/a sheet1\n$LIB_FONCTIONS_SITE/b sheet1\n$LIB_FONCTIONS_SITE/a sheet1",
			want: []string{"$LIB_FONCTIONS_SITE/a sheet1", "$LIB_FONCTIONS_SITE/b sheet1"},
		},
		{
			name: "no terminator",
			text: "$LIB_FONCTIONS_SITE/a/b/c",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Extract() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCustomMarkers(t *testing.T) {
	p := DefaultPattern
	p.Markers = "$S5"
	e, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	got := e.Extract("5LIB_FONCTIONS_SITE/x sheet1")
	if len(got) != 1 || got[0] != "5LIB_FONCTIONS_SITE/x sheet1" {
		t.Fatalf("got %#v", got)
	}
}
