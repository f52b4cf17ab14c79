// Package requirement checks a plan of study against the degree requirements.
// Validate is pure: callers load the rows, transfers, committee and catalog and pass them in.
package requirement

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

// Designated course codes.
const (
	MSResearchCode       = "CS 5994"
	PhDResearchCode      = "CS 7994"
	SeminarCode          = "CS 5944"
	IndependentStudyCode = "CS 5974"

	csSubject = "CS"
)

// Repeatable codes may recur across terms, but only once per term.
var Repeatable = map[string]bool{
	SeminarCode:     true,
	MSResearchCode:  true,
	PhDResearchCode: true,
}

// Degree thresholds.
const (
	msMinTotalCredits  = 30
	phdMinTotalCredits = 90

	msMinResearchCredits  = 6
	msMaxResearchCredits  = 9
	phdMinResearchCredits = 30

	minSeminarCount = 2

	msMinNonResearchCourses = 7
	msMinNonResearchCredits = 21

	phdMinCourses        = 9
	phdMinPlannedCredits = 27

	msMinCS5or6  = 4
	phdMinCS5or6 = 6
	msMinCS6     = 1
	phdMinCS6    = 2

	msMaxCognates = 1
	max4000Level  = 2

	minBreadthAreas = 4

	msMinCommittee  = 2
	phdMinCommittee = 4
)

// Row field names reported in RowViolation.Fields.
const (
	FieldArea        = "area"
	FieldCourse      = "course"
	FieldTerm        = "term"
	FieldYear        = "year"
	FieldCreditHours = "creditHours"
)

type (
	// Row is one course line of a term group. A nil Area and a zero CourseID mean "not selected".
	Row struct {
		ID          string `json:"id"`
		Area        *int   `json:"area"`
		CourseID    int    `json:"course"`
		CreditHours int    `json:"creditHours"`
	}

	// TermGroup is the set of rows planned for one (term, year); zero values mean "not selected".
	TermGroup struct {
		Term term.ID `json:"termId"`
		Year int     `json:"year"`
		Rows []Row   `json:"rows"`
	}

	Input struct {
		Degree    plan.DegreeType
		Groups    []TermGroup
		Transfers []plan.TransferCourse
		Committee []plan.CommitteeMember
		Chair     string
		// Courses holds at least every course referenced by Groups, with their areas.
		Courses map[int]catalog.Course
	}

	// PlanViolation is a rule broken by the plan as a whole.
	PlanViolation struct {
		Message string `json:"message"`
	}

	// RowViolation lists what is wrong with a single row. Rows with violations are left out of every
	// aggregate rule.
	RowViolation struct {
		RowID    string   `json:"row_id"`
		Label    string   `json:"label"`
		Messages []string `json:"messages"`
		Fields   []string `json:"fields"`
	}

	// PlannedCourse is a row that passed the row checks, with its catalog data resolved.
	PlannedCourse struct {
		RowID        string  `json:"row_id"`
		CourseID     int     `json:"course_id"`
		SubjectCode  string  `json:"subject_code"`
		CourseNumber string  `json:"course_number"`
		Title        string  `json:"title"`
		Area         int     `json:"area"`
		Areas        []int   `json:"areas"`
		CreditHours  int     `json:"credit_hours"`
		Term         term.ID `json:"term_id"`
		Year         int     `json:"year"`
	}

	Flags struct {
		EthicsOK           bool `json:"ethicsOK"`
		BreadthOK          bool `json:"breadthOK"`
		CommitteeChairOK   bool `json:"committeeChairOK"`
		CommitteeMembersOK bool `json:"committeeMembersOK"`
		NoDuplicatesOK     bool `json:"noDuplicatesOK"`

		MSTotalCreditsOK  bool `json:"msTotalCreditsOK"`
		PhDTotalCreditsOK bool `json:"phdTotalCreditsOK"`

		Course4000LimitOK bool `json:"course4000LimitOK"`

		MSSeminarOK                bool `json:"msSeminarOK"`
		MSResearchRangeOK          bool `json:"msResearchRangeOK"`
		MSNonResearchCourseCountOK bool `json:"msNonResearchCourseCountOK"`
		MSNonResearchCreditsOK     bool `json:"msNonResearchCreditsOK"`
		MSCs5or6OK                 bool `json:"msCs5or6OK"`
		MSCs6OK                    bool `json:"msCs6OK"`
		MSCognateLimitOK           bool `json:"msCognateLimitOK"`

		PhDSeminarOK          bool `json:"phdSeminarOK"`
		PhDResearch30OK       bool `json:"phdResearch30OK"`
		PhDCourseCountOK      bool `json:"phdCourseCountOK"`
		PhDPlannedCredits27OK bool `json:"phdPlannedCredits27OK"`
		PhDCs5or6OK           bool `json:"phdCs5or6OK"`
		PhDCs6OK              bool `json:"phdCs6OK"`
		PhDCognateOK          bool `json:"phdCognateOK"`
	}

	Report struct {
		PlanViolations    []PlanViolation `json:"plan_violations"`
		RowViolations     []RowViolation  `json:"row_violations"`
		Flags             Flags           `json:"flags"`
		PlannedCredits    int             `json:"planned_credits"`
		TransferCredits   int             `json:"transfer_credits"`
		TotalWithTransfer int             `json:"total_with_transfer"`
		Planned           []PlannedCourse `json:"planned"`
	}
)

// Code is the canonical course code, "" when the course is not in the catalog.
func (pc PlannedCourse) Code() string {
	return catalog.Code(pc.SubjectCode, pc.CourseNumber)
}

// Cognate reports whether the course counts as a cognate, either by catalog area or by the selected area.
func (pc PlannedCourse) Cognate() bool {
	if pc.Area == catalog.AreaCognate {
		return true
	}
	for _, a := range pc.Areas {
		if a == catalog.AreaCognate {
			return true
		}
	}
	return false
}

// level is the leading digit of the course number, -1 when it has none.
func (pc PlannedCourse) level() int {
	n := strings.TrimSpace(pc.CourseNumber)
	if n == "" || n[0] < '0' || n[0] > '9' {
		return -1
	}
	return int(n[0] - '0')
}

func (pc PlannedCourse) isCS() bool {
	return strings.EqualFold(strings.TrimSpace(pc.SubjectCode), csSubject)
}

func allFlags() Flags {
	return Flags{
		EthicsOK: true, BreadthOK: true, CommitteeChairOK: true, CommitteeMembersOK: true, NoDuplicatesOK: true,
		MSTotalCreditsOK: true, PhDTotalCreditsOK: true, Course4000LimitOK: true,
		MSSeminarOK: true, MSResearchRangeOK: true, MSNonResearchCourseCountOK: true, MSNonResearchCreditsOK: true,
		MSCs5or6OK: true, MSCs6OK: true, MSCognateLimitOK: true,
		PhDSeminarOK: true, PhDResearch30OK: true, PhDCourseCountOK: true, PhDPlannedCredits27OK: true,
		PhDCs5or6OK: true, PhDCs6OK: true, PhDCognateOK: true,
	}
}

// Failed lists the json names of the flags that are false, in declaration order.
func (f Flags) Failed() []string {
	named := []struct {
		name string
		ok   bool
	}{
		{"ethicsOK", f.EthicsOK},
		{"breadthOK", f.BreadthOK},
		{"committeeChairOK", f.CommitteeChairOK},
		{"committeeMembersOK", f.CommitteeMembersOK},
		{"noDuplicatesOK", f.NoDuplicatesOK},
		{"msTotalCreditsOK", f.MSTotalCreditsOK},
		{"phdTotalCreditsOK", f.PhDTotalCreditsOK},
		{"course4000LimitOK", f.Course4000LimitOK},
		{"msSeminarOK", f.MSSeminarOK},
		{"msResearchRangeOK", f.MSResearchRangeOK},
		{"msNonResearchCourseCountOK", f.MSNonResearchCourseCountOK},
		{"msNonResearchCreditsOK", f.MSNonResearchCreditsOK},
		{"msCs5or6OK", f.MSCs5or6OK},
		{"msCs6OK", f.MSCs6OK},
		{"msCognateLimitOK", f.MSCognateLimitOK},
		{"phdSeminarOK", f.PhDSeminarOK},
		{"phdResearch30OK", f.PhDResearch30OK},
		{"phdCourseCountOK", f.PhDCourseCountOK},
		{"phdPlannedCredits27OK", f.PhDPlannedCredits27OK},
		{"phdCs5or6OK", f.PhDCs5or6OK},
		{"phdCs6OK", f.PhDCs6OK},
		{"phdCognateOK", f.PhDCognateOK},
	}
	var failed []string
	for _, n := range named {
		if !n.ok {
			failed = append(failed, n.name)
		}
	}
	return failed
}

// SubmitEligible reports whether the plan may be submitted for review.
func (r Report) SubmitEligible() bool {
	return len(r.RowViolations) == 0 && len(r.Flags.Failed()) == 0
}

// Messages flattens the plan-level violations.
func (r Report) Messages() []string {
	msgs := make([]string, 0, len(r.PlanViolations))
	for _, v := range r.PlanViolations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

type checker struct {
	in     Input
	report Report
}

func (c *checker) violate(format string, args ...interface{}) {
	c.report.PlanViolations = append(c.report.PlanViolations, PlanViolation{Message: fmt.Sprintf(format, args...)})
}

// Validate runs the row checks, then every aggregate rule of the input's degree, over the valid rows.
func Validate(in Input) Report {
	c := &checker{in: in, report: Report{Flags: allFlags()}}

	c.checkRows()
	c.checkTotals()
	switch in.Degree {
	case plan.DegreeMS, plan.DegreeMSA:
		c.checkMaster()
	case plan.DegreePhD:
		c.checkPhD()
	}
	c.checkBreadth()
	c.checkDuplicates()
	c.checkCommittee()

	return c.report
}

// EffectiveCreditHours is the catalog credit value when fixed, else the row's own value.
func EffectiveCreditHours(course catalog.Course, found bool, row Row) int {
	if found && course.Credits > 0 {
		return course.Credits
	}
	return row.CreditHours
}

func (c *checker) checkRows() {
	for _, g := range c.in.Groups {
		termName := "Term"
		if g.Term.Valid() {
			termName = g.Term.String()
		}
		for i, r := range g.Rows {
			var msgs, fields []string
			if r.Area == nil {
				msgs = append(msgs, "Area is required.")
				fields = append(fields, FieldArea)
			}
			if r.CourseID <= 0 {
				msgs = append(msgs, "Course is required.")
				fields = append(fields, FieldCourse)
			}
			if g.Term <= 0 {
				msgs = append(msgs, "Term is required (select on Add Term).")
				fields = append(fields, FieldTerm)
			}
			if g.Year <= 0 {
				msgs = append(msgs, "Year is required (select on Add Term).")
				fields = append(fields, FieldYear)
			}

			course, found := c.in.Courses[r.CourseID]
			hours := EffectiveCreditHours(course, found, r)
			if r.CourseID > 0 && hours <= 0 {
				msgs = append(msgs, "Credit hours must be greater than 0.")
				fields = append(fields, FieldCreditHours)
			}

			if len(msgs) > 0 {
				c.report.RowViolations = append(c.report.RowViolations, RowViolation{
					RowID:    r.ID,
					Label:    fmt.Sprintf("%s %d, Row %d", termName, g.Year, i+1),
					Messages: msgs,
					Fields:   fields,
				})
				continue
			}

			c.report.Planned = append(c.report.Planned, PlannedCourse{
				RowID:        r.ID,
				CourseID:     r.CourseID,
				SubjectCode:  course.SubjectCode,
				CourseNumber: course.CourseNumber,
				Title:        course.Title,
				Area:         *r.Area,
				Areas:        append([]int(nil), course.Areas...),
				CreditHours:  hours,
				Term:         g.Term,
				Year:         g.Year,
			})
		}
	}
}

func (c *checker) checkTotals() {
	for _, pc := range c.report.Planned {
		c.report.PlannedCredits += pc.CreditHours
	}
	for _, tc := range c.in.Transfers {
		c.report.TransferCredits += tc.CreditHours
	}
	c.report.TotalWithTransfer = c.report.PlannedCredits + c.report.TransferCredits

	deg := c.in.Degree
	switch deg {
	case plan.DegreeMS, plan.DegreeMSA:
		if c.report.TotalWithTransfer < msMinTotalCredits {
			c.report.Flags.MSTotalCreditsOK = false
			c.violate("%s students must have at least %d total credit hours (including transfer).", deg, msMinTotalCredits)
		}
	case plan.DegreePhD:
		if c.report.TotalWithTransfer < phdMinTotalCredits {
			c.report.Flags.PhDTotalCreditsOK = false
			c.violate("PhD students must have at least %d total credit hours (including transfer).", phdMinTotalCredits)
		}
	}
}

func (c *checker) creditsFor(code string) int {
	var total int
	for _, pc := range c.report.Planned {
		if pc.Code() == code {
			total += pc.CreditHours
		}
	}
	return total
}

func (c *checker) checkSeminar(flag *bool) {
	var count int
	for _, pc := range c.report.Planned {
		if pc.Code() == SeminarCode {
			count++
		}
	}
	if count < minSeminarCount {
		*flag = false
		c.violate("%s requires the graduate seminar (%s) to be taken twice. Currently %d.", c.in.Degree, SeminarCode, count)
	}
}

// levelCounts counts courses by level over `courses`.
type levelCounts struct {
	cs5or6, cs6, level4000, cognates int
}

func countLevels(courses []PlannedCourse) levelCounts {
	var lc levelCounts
	for _, pc := range courses {
		lvl := pc.level()
		if pc.isCS() && (lvl == 5 || lvl == 6) && pc.Code() != IndependentStudyCode {
			lc.cs5or6++
		}
		if pc.isCS() && lvl == 6 {
			lc.cs6++
		}
		if lvl == 4 {
			lc.level4000++
		}
		if pc.Cognate() {
			lc.cognates++
		}
	}
	return lc
}

// checkMaster applies the MS and MSA rules.
func (c *checker) checkMaster() {
	deg := c.in.Degree
	f := &c.report.Flags

	if deg == plan.DegreeMS {
		research := c.creditsFor(MSResearchCode)
		if research < msMinResearchCredits || research > msMaxResearchCredits {
			f.MSResearchRangeOK = false
		}
		if research < msMinResearchCredits {
			c.violate("MS requires at least %d research credits (%s). Currently %d.", msMinResearchCredits, MSResearchCode, research)
		}
		if research > msMaxResearchCredits {
			c.violate("MS allows at most %d research credits (%s). Currently %d.", msMaxResearchCredits, MSResearchCode, research)
		}
	}

	c.checkSeminar(&f.MSSeminarOK)

	hasEthics := false
	for _, pc := range c.report.Planned {
		for _, a := range pc.Areas {
			if a == catalog.AreaEthics {
				hasEthics = true
			}
		}
	}
	if !hasEthics {
		f.EthicsOK = false
		c.violate("%s requires at least one course from Area %d.", deg, catalog.AreaEthics)
	}

	var nonResearch []PlannedCourse
	var nonResearchCredits int
	for _, pc := range c.report.Planned {
		if pc.Code() == MSResearchCode {
			continue
		}
		nonResearch = append(nonResearch, pc)
		nonResearchCredits += pc.CreditHours
	}
	if len(nonResearch) < msMinNonResearchCourses {
		f.MSNonResearchCourseCountOK = false
		c.violate("%s requires at least %d courses (excluding %s). Currently %d.", deg, msMinNonResearchCourses, MSResearchCode, len(nonResearch))
	}
	if nonResearchCredits < msMinNonResearchCredits {
		f.MSNonResearchCreditsOK = false
		c.violate("%s requires at least %d credits from non-research courses. Currently %d.", deg, msMinNonResearchCredits, nonResearchCredits)
	}

	lc := countLevels(nonResearch)
	if lc.cs5or6 < msMinCS5or6 {
		f.MSCs5or6OK = false
		c.violate("%s requires at least %d CS courses at 5000/6000 level (excluding %s). Currently %d.", deg, msMinCS5or6, IndependentStudyCode, lc.cs5or6)
	}
	if lc.cs6 < msMinCS6 {
		f.MSCs6OK = false
		c.violate("%s requires at least %d CS course at 6000 level. Currently %d.", deg, msMinCS6, lc.cs6)
	}
	if lc.cognates > msMaxCognates {
		f.MSCognateLimitOK = false
		c.violate("%s allows at most %d cognate course. Currently %d.", deg, msMaxCognates, lc.cognates)
	}
	if lc.level4000 > max4000Level {
		f.Course4000LimitOK = false
		c.violate("%s allows at most %d courses at 4000 level. Currently %d.", deg, max4000Level, lc.level4000)
	}
}

func (c *checker) checkPhD() {
	f := &c.report.Flags

	c.checkSeminar(&f.PhDSeminarOK)

	research := c.creditsFor(PhDResearchCode)
	if research < phdMinResearchCredits {
		f.PhDResearch30OK = false
		c.violate("PhD requires at least %d research credits (%s). Currently %d.", phdMinResearchCredits, PhDResearchCode, research)
	}

	if n := len(c.report.Planned); n < phdMinCourses {
		f.PhDCourseCountOK = false
		c.violate("PhD requires at least %d planned courses. Currently %d.", phdMinCourses, n)
	}
	if c.report.PlannedCredits < phdMinPlannedCredits {
		f.PhDPlannedCredits27OK = false
		c.violate("PhD requires at least %d credits (%d courses). Currently %d credits.", phdMinPlannedCredits, phdMinCourses, c.report.PlannedCredits)
	}

	lc := countLevels(c.report.Planned)
	if lc.cs5or6 < phdMinCS5or6 {
		f.PhDCs5or6OK = false
		c.violate("PhD requires at least %d CS courses at the 5000 or 6000 level. Currently %d.", phdMinCS5or6, lc.cs5or6)
	}
	if lc.cs6 < phdMinCS6 {
		f.PhDCs6OK = false
		c.violate("PhD requires at least %d CS courses at the 6000 level. Currently %d.", phdMinCS6, lc.cs6)
	}
	if lc.cognates < 1 {
		f.PhDCognateOK = false
		c.violate("PhD requires at least 1 approved cognate course (cognates should be marked with area %d).", catalog.AreaCognate)
	}
	if lc.level4000 > max4000Level {
		f.Course4000LimitOK = false
		c.violate("PhD allows at most %d courses at 4000 level. Currently %d.", max4000Level, lc.level4000)
	}
}

// checkBreadth counts the distinct breadth areas the courses are mapped to.
// Messages are only reported when at least one course carries area data.
func (c *checker) checkBreadth() {
	covered := map[int]bool{}
	anyAreas := false
	for _, pc := range c.report.Planned {
		if len(pc.Areas) > 0 {
			anyAreas = true
		}
		for _, a := range pc.Areas {
			if a >= catalog.AreaEthics && a <= catalog.AreaBreadthMax {
				covered[a] = true
			}
		}
	}

	hasEthics := covered[catalog.AreaEthics]
	c.report.Flags.BreadthOK = hasEthics && len(covered) >= minBreadthAreas

	if !anyAreas {
		return
	}
	if !hasEthics {
		c.violate("Breadth requirement: at least one course must be from Area %d.", catalog.AreaEthics)
	}
	if len(covered) < minBreadthAreas {
		c.violate("Breadth requirement: at least %d unique POS areas (%d-%d) must be covered. Currently %d.",
			minBreadthAreas, catalog.AreaEthics, catalog.AreaBreadthMax, len(covered))
	}
}

func (c *checker) checkDuplicates() {
	seenGroups := map[term.Bucket]bool{}
	for _, g := range c.in.Groups {
		b := term.Bucket{Year: g.Year, Term: g.Term}
		if seenGroups[b] {
			c.report.Flags.NoDuplicatesOK = false
			c.violate("Duplicate term detected: %d %d. You cannot have the same term and year twice.", g.Term, g.Year)
		}
		seenGroups[b] = true
	}

	byCode := map[string][]term.Bucket{}
	var codes []string
	for _, pc := range c.report.Planned {
		code := pc.Code()
		if code == "" {
			code = "#" + strconv.Itoa(pc.CourseID)
		}
		if _, ok := byCode[code]; !ok {
			codes = append(codes, code)
		}
		byCode[code] = append(byCode[code], term.Bucket{Year: pc.Year, Term: pc.Term})
	}
	sort.Strings(codes)

	for _, code := range codes {
		buckets := byCode[code]
		if !Repeatable[code] {
			if len(buckets) > 1 {
				c.report.Flags.NoDuplicatesOK = false
				c.violate("Duplicate planned course: %s appears %d times.", code, len(buckets))
			}
			continue
		}
		seen := map[term.Bucket]bool{}
		for _, b := range buckets {
			if seen[b] {
				c.report.Flags.NoDuplicatesOK = false
				c.violate("Course %s appears more than once in term %d %d. Only one per term allowed.", code, b.Term, b.Year)
			}
			seen[b] = true
		}
	}
}

// MinCommittee is the committee size, chair included, required for a degree.
func MinCommittee(deg plan.DegreeType) int {
	if deg == plan.DegreePhD {
		return phdMinCommittee
	}
	return msMinCommittee
}

func (c *checker) checkCommittee() {
	hasChair := strings.TrimSpace(c.in.Chair) != ""
	count := 0
	for _, m := range c.in.Committee {
		if m.Complete() {
			count++
		}
	}
	if hasChair {
		count++
	}

	if !hasChair {
		c.report.Flags.CommitteeChairOK = false
		c.violate("A committee chair must be selected.")
	}
	if need := MinCommittee(c.in.Degree); count < need {
		c.report.Flags.CommitteeMembersOK = false
		c.violate("Committee must have at least %d members (including chair).", need)
	}
}

// GroupPlanned turns stored planned courses into term groups ordered by bucket, keeping row order.
func GroupPlanned(planned []plan.PlannedCourse) []TermGroup {
	index := map[term.Bucket]int{}
	var groups []TermGroup
	for _, pc := range planned {
		b := pc.Bucket()
		i, ok := index[b]
		if !ok {
			i = len(groups)
			index[b] = i
			groups = append(groups, TermGroup{Term: pc.Term, Year: pc.Year})
		}
		groups[i].Rows = append(groups[i].Rows, Row{
			ID:          strconv.Itoa(pc.ID),
			Area:        pc.Area,
			CourseID:    pc.CourseID,
			CreditHours: pc.CreditHours,
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return term.Bucket{Year: groups[i].Year, Term: groups[i].Term}.Less(term.Bucket{Year: groups[j].Year, Term: groups[j].Term})
	})
	return groups
}
