package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
)

// Title patterns, checked in this order against trimmed lines.
var (
	subsubsectionRe = regexp.MustCompile(`^[1-9]\d*\.[1-9]\d*\s`)
	subsectionRe    = regexp.MustCompile(`^[1-9]\d*\s`)
	sectionRe       = regexp.MustCompile(`^[零一二三四五六七八九十]+、`)
)

// TextParser segments plain text into sections, subsections and
// sub-subsections.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s := &segmenter{}
	for scanner.Scan() {
		s.line(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	s.flush()
	s.closeSection()

	return &doctree.DocTree{
		Title:    DocumentTitle(filename),
		Sections: s.sections,
	}, nil
}

// ClassifyLine reports the heading level of a trimmed line, or "" for body
// text.
func ClassifyLine(line string) doctree.Level {
	switch {
	case subsubsectionRe.MatchString(line):
		return doctree.LevelSubsubsection
	case subsectionRe.MatchString(line):
		return doctree.LevelSubsection
	case sectionRe.MatchString(line):
		return doctree.LevelSection
	}
	return ""
}

type segmenter struct {
	sections []*doctree.Unit

	section       *doctree.Unit
	subsection    *doctree.Unit
	subsubsection *doctree.Unit

	buf []string
}

func (s *segmenter) line(line string) {
	switch ClassifyLine(line) {
	case doctree.LevelSection:
		s.flush()
		s.closeSection()
		s.section = &doctree.Unit{Title: line, Level: doctree.LevelSection}
	case doctree.LevelSubsection:
		s.flush()
		s.openSubsection(line)
	case doctree.LevelSubsubsection:
		s.flush()
		if s.subsection == nil {
			s.openSubsection("")
		}
		s.subsubsection = &doctree.Unit{
			Title:       line,
			Level:       doctree.LevelSubsubsection,
			ParentTitle: titleOf(s.subsection),
		}
		s.subsection.Children = append(s.subsection.Children, s.subsubsection)
	default:
		if line == "" {
			s.flush()
			return
		}
		s.buf = append(s.buf, line)
	}
}

func (s *segmenter) openSubsection(title string) {
	s.ensureSection()
	s.subsection = &doctree.Unit{
		Title:       title,
		Level:       doctree.LevelSubsection,
		ParentTitle: titleOf(s.section),
	}
	s.section.Children = append(s.section.Children, s.subsection)
	s.subsubsection = nil
}

// ensureSection opens an untitled section for text that precedes any
// section heading.
func (s *segmenter) ensureSection() {
	if s.section == nil {
		s.section = &doctree.Unit{Level: doctree.LevelSection}
	}
}

// deepest returns the innermost open unit.
func (s *segmenter) deepest() *doctree.Unit {
	switch {
	case s.subsubsection != nil:
		return s.subsubsection
	case s.subsection != nil:
		return s.subsection
	}
	s.ensureSection()
	return s.section
}

func (s *segmenter) flush() {
	if len(s.buf) == 0 {
		return
	}
	u := s.deepest()
	u.Paragraphs = append(u.Paragraphs, strings.Join(s.buf, " "))
	s.buf = nil
}

func (s *segmenter) closeSection() {
	if s.section != nil && !prune(s.section) {
		s.sections = append(s.sections, s.section)
	}
	s.section, s.subsection, s.subsubsection = nil, nil, nil
}

// prune drops empty descendants and reports whether u itself is empty.
func prune(u *doctree.Unit) bool {
	kept := u.Children[:0]
	for _, c := range u.Children {
		if !prune(c) {
			kept = append(kept, c)
		}
	}
	u.Children = kept
	if len(u.Children) == 0 {
		u.Children = nil
	}
	return u.Empty()
}

func titleOf(u *doctree.Unit) *string {
	t := u.Title
	return &t
}
