// Package catalog holds the course catalog: courses, their areas and the course code vocabulary.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dtsmedt/PlanOfStudy/core"
)

// Areas with a fixed meaning in degree requirements.
const (
	AreaEthics     = 0
	AreaBreadthMax = 10
	AreaCognate    = 9999
)

var ErrCourseNotFound = core.NewNotFoundError("course not found")

type (
	Course struct {
		ID           int    `json:"course_id" db:"course_id"`
		SubjectCode  string `json:"subject_code" db:"subject_code"`
		CourseNumber string `json:"course_number" db:"course_number"`
		Title        string `json:"title" db:"title"`
		Credits      int    `json:"credits" db:"credits"`
		Areas        []int  `json:"areas" db:"-"`
	}

	Area struct {
		ID          int    `json:"pos_area" db:"area_id"`
		Description string `json:"area_description" db:"description"`
	}

	Repository interface {
		// ListCoursesByArea lists courses with their areas; a nil area lists the whole catalog.
		ListCoursesByArea(ctx context.Context, area *int) ([]Course, error)
		ListAreasForCourse(ctx context.Context, courseID int) ([]int, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		ListAreas(ctx context.Context) ([]Area, error)
	}
)

// Code builds the canonical "CS 5114" style course code.
// Returns "" when either part is blank; callers treat that as unusable.
func Code(subject, number string) string {
	s := strings.ToUpper(strings.TrimSpace(subject))
	n := strings.TrimSpace(number)
	if s == "" || n == "" {
		return ""
	}
	return s + " " + n
}

// NormalizeCode canonicalizes a free-form course code for comparison and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(core.CollapseSpaces(code))
}

func (c Course) Code() string {
	return Code(c.SubjectCode, c.CourseNumber)
}

func (c Course) HasArea(area int) bool {
	for _, a := range c.Areas {
		if a == area {
			return true
		}
	}
	return false
}

// Index looks courses up by canonical code.
type Index struct {
	byCode map[string]Course
	codes  []string
}

func NewIndex(courses []Course) *Index {
	idx := &Index{byCode: make(map[string]Course, len(courses))}
	for _, c := range courses {
		code := c.Code()
		if code == "" {
			continue
		}
		if _, ok := idx.byCode[code]; !ok {
			idx.codes = append(idx.codes, code)
		}
		idx.byCode[code] = c
	}
	sort.Strings(idx.codes)
	return idx
}

func (idx *Index) Lookup(code string) (Course, bool) {
	c, ok := idx.byCode[NormalizeCode(code)]
	return c, ok
}

// suggestCutoff is the minimum similarity ratio for a catalog code to be suggested.
const suggestCutoff = 0.75

// Suggest returns up to n catalog codes that look like `code`, best match first.
func (idx *Index) Suggest(code string, n int) []string {
	code = NormalizeCode(code)
	if code == "" || n <= 0 {
		return nil
	}

	type scored struct {
		code  string
		ratio float64
	}
	var matches []scored
	matcher := difflib.NewMatcher(nil, strings.Split(code, ""))
	for _, candidate := range idx.codes {
		matcher.SetSeq1(strings.Split(candidate, ""))
		if matcher.RealQuickRatio() < suggestCutoff || matcher.QuickRatio() < suggestCutoff {
			continue
		}
		if ratio := matcher.Ratio(); ratio >= suggestCutoff {
			matches = append(matches, scored{code: candidate, ratio: ratio})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.code)
	}
	return out
}

// CoursesByID indexes courses by id.
func CoursesByID(courses []Course) map[int]Course {
	out := make(map[int]Course, len(courses))
	for _, c := range courses {
		out[c.ID] = c
	}
	return out
}
