package doctree

import "strings"

// Level is the heading depth of a Unit.
type Level string

const (
	LevelSection       Level = "section"
	LevelSubsection    Level = "subsection"
	LevelSubsubsection Level = "subsubsection"
)

// DocTree is the root of a segmented document.
type DocTree struct {
	Title    string  // Document title (from filename)
	Sections []*Unit // Top-level sections in source order
}

// Unit is one node of the document hierarchy.
type Unit struct {
	Title       string   `json:"title"`
	Level       Level    `json:"level"`
	Paragraphs  []string `json:"paragraphs"`
	Children    []*Unit  `json:"children,omitempty"`
	ParentTitle *string  `json:"parent_title"`
}

// Paragraph is a flattened paragraph tagged with the title of the unit that
// directly contains it.
type Paragraph struct {
	Text  string
	Group string
}

// Flatten returns every paragraph of the subtree rooted at u in source order.
func (u *Unit) Flatten() []Paragraph {
	var out []Paragraph
	var walk func(n *Unit)
	walk = func(n *Unit) {
		for _, p := range n.Paragraphs {
			out = append(out, Paragraph{Text: p, Group: n.Title})
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(u)
	return out
}

// Empty reports whether the unit carries no paragraphs and no children.
func (u *Unit) Empty() bool {
	return len(u.Paragraphs) == 0 && len(u.Children) == 0
}

// SameParent compares parent titles; two absent parents are equal.
func SameParent(a, b *Unit) bool {
	if a.ParentTitle == nil || b.ParentTitle == nil {
		return a.ParentTitle == nil && b.ParentTitle == nil
	}
	return *a.ParentTitle == *b.ParentTitle
}

// Granularity selects which level of the hierarchy is evaluated as a unit.
type Granularity string

const (
	BySection    Granularity = "section"
	BySubsection Granularity = "subsection"
)

// Units returns the evaluable units of the tree at the given granularity.
//
// At subsection granularity every section contributes its own paragraphs as
// a unit (when it has any) followed by each of its subsections.
func (t *DocTree) Units(g Granularity) []*Unit {
	if g != BySubsection {
		return t.Sections
	}
	var out []*Unit
	for _, s := range t.Sections {
		if len(s.Paragraphs) > 0 {
			out = append(out, &Unit{
				Title:       s.Title,
				Level:       s.Level,
				Paragraphs:  s.Paragraphs,
				ParentTitle: s.ParentTitle,
			})
		}
		out = append(out, s.Children...)
	}
	return out
}

// ParagraphCount returns the number of paragraphs in the whole tree.
func (t *DocTree) ParagraphCount() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Flatten())
	}
	return n
}

// Render reconstructs line-oriented text from the tree: titles and
// paragraphs separated by blank lines.
func Render(sections []*Unit) string {
	var sb strings.Builder
	var walk func(n *Unit)
	walk = func(n *Unit) {
		if n.Title != "" {
			sb.WriteString(n.Title)
			sb.WriteString("\n\n")
		}
		for _, p := range n.Paragraphs {
			sb.WriteString(p)
			sb.WriteString("\n\n")
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, s := range sections {
		walk(s)
	}
	return sb.String()
}
