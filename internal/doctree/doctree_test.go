package doctree

import (
	"testing"
)

func sampleTree() *DocTree {
	sec := "一、引言"
	sub := "1 背景"
	return &DocTree{
		Title: "doc",
		Sections: []*Unit{
			{
				Title:      sec,
				Level:      LevelSection,
				Paragraphs: []string{"p0"},
				Children: []*Unit{
					{
						Title:       sub,
						Level:       LevelSubsection,
						Paragraphs:  []string{"p1", "p2"},
						ParentTitle: &sec,
						Children: []*Unit{
							{Title: "1.1 细节", Level: LevelSubsubsection, Paragraphs: []string{"p3"}, ParentTitle: &sub},
						},
					},
				},
			},
		},
	}
}

func TestFlatten_GroupsByContainingUnit(t *testing.T) {
	tree := sampleTree()
	got := tree.Sections[0].Flatten()
	want := []Paragraph{
		{Text: "p0", Group: "一、引言"},
		{Text: "p1", Group: "1 背景"},
		{Text: "p2", Group: "1 背景"},
		{Text: "p3", Group: "1.1 细节"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph[%d]: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if n := tree.ParagraphCount(); n != 4 {
		t.Errorf("expected 4 paragraphs in tree, got %d", n)
	}
}

func TestUnits_SubsectionGranularity(t *testing.T) {
	tree := sampleTree()
	units := tree.Units(BySubsection)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].Title != "一、引言" || len(units[0].Children) != 0 {
		t.Errorf("expected section's own paragraphs as first unit, got %+v", units[0])
	}
	if units[1].Title != "1 背景" {
		t.Errorf("expected subsection as second unit, got %q", units[1].Title)
	}
	if SameParent(units[0], units[1]) {
		t.Error("expected section unit and subsection to have different parents")
	}

	if got := tree.Units(BySection); len(got) != 1 {
		t.Errorf("expected 1 section unit, got %d", len(got))
	}
}

func TestSameParent(t *testing.T) {
	a, b := "A", "A"
	c := "C"
	tests := []struct {
		name string
		x, y *string
		want bool
	}{
		{"both absent", nil, nil, true},
		{"equal", &a, &b, true},
		{"different", &a, &c, false},
		{"one absent", &a, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SameParent(&Unit{ParentTitle: tt.x}, &Unit{ParentTitle: tt.y})
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestItemScore_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    ItemScore
		wantErr bool
	}{
		{"valid", ItemScore{Score: Float(4), Explanation: String("ok"), Status: StatusValid}, false},
		{"valid out of range", ItemScore{Score: Float(6), Explanation: String("ok"), Status: StatusValid}, true},
		{"valid missing explanation", ItemScore{Score: Float(3), Status: StatusValid}, true},
		{"failed zero", ItemScore{Score: Float(0), Status: StatusFailed}, false},
		{"failed nonzero", ItemScore{Score: Float(2), Status: StatusFailed}, true},
		{"skipped", ItemScore{Explanation: String("n/a"), Status: StatusSkipped}, false},
		{"skipped with score", ItemScore{Score: Float(3), Status: StatusSkipped}, true},
		{"unknown status", ItemScore{Status: "bogus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
