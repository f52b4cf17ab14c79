// Package reconcile compares a student's transcript with their plan of study and lists the
// changes that would bring the plan in line with what was actually taken.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

// PassGrade is the grade reported on every add; any passing grade qualifies.
const PassGrade = "A/B/C"

// suggestionCount bounds the close matches offered for an unknown course code.
const suggestionCount = 3

type (
	// Add is a passed transcript course missing from the plan. Year and Term are nil when
	// the transcript term could not be mapped; the caller must pick one before applying it.
	Add struct {
		Year        *int     `json:"year"`
		Term        *term.ID `json:"term_id"`
		Code        string   `json:"code"`
		Grade       string   `json:"grade"`
		CourseID    int      `json:"course_id"`
		Areas       []int    `json:"areas"`
		MissingTerm bool     `json:"missing_term,omitempty"`
	}

	// Remove is a planned course the transcript shows as not passed in the same term.
	Remove struct {
		PlannedCourseID int     `json:"planned_course_id"`
		Code            string  `json:"code"`
		Year            int     `json:"year"`
		Term            term.ID `json:"term_id"`
		Grade           string  `json:"grade"`
	}

	// Missing is a planned course absent from a term the transcript has other courses for.
	Missing struct {
		PlannedCourseID int     `json:"planned_course_id"`
		Code            string  `json:"code"`
		Year            int     `json:"year"`
		Term            term.ID `json:"term_id"`
	}

	// Ignore is a passed transcript course that is not in the catalog and cannot be planned.
	Ignore struct {
		Year        *int     `json:"year"`
		Term        *term.ID `json:"term_id"`
		Code        string   `json:"code"`
		Grade       string   `json:"grade"`
		Reason      string   `json:"reason"`
		Suggestions []string `json:"suggestions,omitempty"`
	}

	Result struct {
		ToAdd     []Add       `json:"to_add"`
		ToRemove  []Remove    `json:"to_remove"`
		ToMissing []Missing   `json:"to_missing"`
		ToIgnore  []Ignore    `json:"to_ignore"`
		Terms     []term.Term `json:"terms"`
	}
)

// NeedsArea reports whether the course maps to several areas and the caller must choose one.
func (a Add) NeedsArea() bool {
	return len(a.Areas) > 1
}

// Bucket is the slot of the add, ok is false for a missing term.
func (a Add) Bucket() (term.Bucket, bool) {
	if a.Year == nil || a.Term == nil {
		return term.Bucket{}, false
	}
	return term.Bucket{Year: *a.Year, Term: *a.Term}, true
}

type (
	attempt struct {
		code  string
		grade string
	}

	// bucketRows is what the transcript says about one bucket.
	bucketRows struct {
		all    []attempt
		codes  map[string]bool
		passed map[string]bool
	}

	ignoreKey struct {
		bucket term.Bucket
		code   string
	}
)

// Reconcile diffs the transcript against the plan. It never fails: rows it cannot place end up
// in the fallback set or in ToIgnore. The categories overlap when a code was attempted more than
// once in the same term.
func Reconcile(
	records []transcript.Record,
	planned []plan.PlannedCourse,
	ignored []plan.IgnoredCourse,
	courses []catalog.Course,
) Result {
	idx := catalog.NewIndex(courses)
	byID := catalog.CoursesByID(courses)

	ignoredKeys := make(map[ignoreKey]bool, len(ignored))
	for _, ic := range ignored {
		ignoredKeys[ignoreKey{bucket: ic.Bucket(), code: catalog.NormalizeCode(ic.CourseCode)}] = true
	}

	// planned side
	plannedCodes := map[term.Bucket]map[string][]plan.PlannedCourse{}
	plannedAnywhere := map[string]bool{}
	for _, pc := range planned {
		code := pc.Code()
		if code == "" {
			code = byID[pc.CourseID].Code()
		}
		if code == "" || pc.Year <= 0 || !pc.Term.Valid() {
			continue
		}
		plannedAnywhere[code] = true
		b := pc.Bucket()
		if plannedCodes[b] == nil {
			plannedCodes[b] = map[string][]plan.PlannedCourse{}
		}
		plannedCodes[b][code] = append(plannedCodes[b][code], pc)
	}

	// transcript side
	tx := map[term.Bucket]*bucketRows{}
	fallback := map[string]bool{}
	for _, r := range records {
		code := r.Code()
		if code == "" {
			continue
		}
		grade := r.NormalizedGrade()
		pass := transcript.PassingGrades[grade]

		buckets := term.Buckets(r.TermTaken)
		if len(buckets) == 0 {
			if pass {
				fallback[code] = true
			}
			continue
		}
		for _, b := range buckets {
			rows := tx[b]
			if rows == nil {
				rows = &bucketRows{codes: map[string]bool{}, passed: map[string]bool{}}
				tx[b] = rows
			}
			rows.all = append(rows.all, attempt{code: code, grade: grade})
			rows.codes[code] = true
			if pass {
				rows.passed[code] = true
			}
		}
	}

	var result Result
	var adds []Add

	for _, b := range sortedBuckets(tx) {
		rows := tx[b]
		inPlan := plannedCodes[b]

		for _, code := range sortedCodes(rows.passed) {
			if len(inPlan[code]) > 0 || ignoredKeys[ignoreKey{bucket: b, code: code}] {
				continue
			}
			year, id := b.Year, b.Term
			adds = append(adds, Add{Year: &year, Term: &id, Code: code, Grade: PassGrade})
		}

		type removeKey struct {
			id    int
			grade string
		}
		seen := map[removeKey]bool{}
		var removes []Remove
		for _, at := range rows.all {
			if transcript.PassingGrades[at.grade] {
				continue
			}
			for _, pc := range inPlan[at.code] {
				k := removeKey{id: pc.ID, grade: at.grade}
				if seen[k] {
					continue
				}
				seen[k] = true
				removes = append(removes, Remove{PlannedCourseID: pc.ID, Code: at.code, Year: b.Year, Term: b.Term, Grade: at.grade})
			}
		}
		sort.SliceStable(removes, func(i, j int) bool { return removes[i].Code < removes[j].Code })
		result.ToRemove = append(result.ToRemove, removes...)
	}

	for _, code := range sortedCodes(fallback) {
		if plannedAnywhere[code] {
			continue
		}
		adds = append(adds, Add{Code: code, Grade: PassGrade, MissingTerm: true})
	}

	// Only terms with transcript rows can show that a planned course was not taken.
	for _, b := range sortedPlannedBuckets(plannedCodes) {
		rows, ok := tx[b]
		if !ok {
			continue
		}
		for _, code := range sortedCodes(keys(plannedCodes[b])) {
			if rows.codes[code] {
				continue
			}
			for _, pc := range plannedCodes[b][code] {
				result.ToMissing = append(result.ToMissing, Missing{PlannedCourseID: pc.ID, Code: code, Year: b.Year, Term: b.Term})
			}
		}
	}

	for _, a := range adds {
		course, ok := idx.Lookup(a.Code)
		if !ok {
			result.ToIgnore = append(result.ToIgnore, Ignore{
				Year:        a.Year,
				Term:        a.Term,
				Code:        a.Code,
				Grade:       a.Grade,
				Reason:      fmt.Sprintf("%s is not in the plan of study course catalog", a.Code),
				Suggestions: idx.Suggest(a.Code, suggestionCount),
			})
			continue
		}
		a.CourseID = course.ID
		a.Areas = append([]int(nil), course.Areas...)
		sort.Ints(a.Areas)
		result.ToAdd = append(result.ToAdd, a)
	}

	result.Terms = term.All
	return result
}

func sortedBuckets(m map[term.Bucket]*bucketRows) []term.Bucket {
	out := make([]term.Bucket, 0, len(m))
	for b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func sortedPlannedBuckets(m map[term.Bucket]map[string][]plan.PlannedCourse) []term.Bucket {
	out := make([]term.Bucket, 0, len(m))
	for b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func keys(m map[string][]plan.PlannedCourse) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedCodes(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
