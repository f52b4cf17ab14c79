package plan

import (
	"strconv"
	"strings"
	"time"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

// DegreeType is the kind of plan (pos_type).
type DegreeType int

const (
	DegreeMS  DegreeType = 1
	DegreePhD DegreeType = 2
	DegreeMSA DegreeType = 3
)

var DegreeTypes = []DegreeType{DegreeMS, DegreePhD, DegreeMSA}

func (d DegreeType) String() string {
	switch d {
	case DegreeMS:
		return "MS"
	case DegreePhD:
		return "PhD"
	case DegreeMSA:
		return "MSA"
	default:
		return "Degree " + strconv.Itoa(int(d))
	}
}

func (d DegreeType) Valid() bool {
	return d == DegreeMS || d == DegreePhD || d == DegreeMSA
}

// ParseDegreeType accepts either the name (MS, PhD, MSA; any case) or the numeric id.
func ParseDegreeType(s string) (DegreeType, bool) {
	s = strings.TrimSpace(s)
	for _, d := range DegreeTypes {
		if strings.EqualFold(s, d.String()) || s == strconv.Itoa(int(d)) {
			return d, true
		}
	}
	return 0, false
}

// Status is the approval state of a plan.
type Status int

const (
	StatusSaved                  Status = 1
	StatusPendingGradCoordinator Status = 2
	StatusPendingFaculty         Status = 3
	StatusAwaitingKey            Status = 4
	StatusPendingGradSchool      Status = 5
	StatusApproved               Status = 6
	StatusRejected               Status = 99
)

var statusNames = map[Status]string{
	StatusSaved:                  "Saved",
	StatusPendingGradCoordinator: "Pending Grad Coordinator",
	StatusPendingFaculty:         "Pending Committee Chair",
	StatusAwaitingKey:            "Awaiting Key",
	StatusPendingGradSchool:      "Pending Grad School",
	StatusApproved:               "Approved",
	StatusRejected:               "Rejected",
}

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusSaved,
	StatusPendingGradCoordinator,
	StatusPendingFaculty,
	StatusAwaitingKey,
	StatusPendingGradSchool,
	StatusApproved,
	StatusRejected,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Status " + strconv.Itoa(int(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Editable reports whether a student may still change a plan in this status.
// Only saved plans are editable: plans under review (2-5), approved and rejected plans are read-only.
func (s Status) Editable() bool {
	switch s {
	case StatusPendingGradCoordinator, StatusPendingFaculty, StatusAwaitingKey, StatusPendingGradSchool,
		StatusApproved, StatusRejected:
		return false
	}
	return true
}

type (
	Plan struct {
		ID             int        `json:"pos_id"`
		StudentKey     string     `json:"pid"`
		Degree         DegreeType `json:"pos_type"`
		CommitteeChair string     `json:"committee_chair,omitempty"`
		Status         Status     `json:"current_status"`
		CreatedAt      time.Time  `json:"created_at"`
		UpdatedAt      time.Time  `json:"updated_at"`
	}

	Student struct {
		Key   string `json:"pid" db:"pid"`
		First string `json:"first" db:"first"`
		Last  string `json:"last" db:"last"`
	}

	PlannedCourse struct {
		ID          int     `json:"planned_course_id"`
		PlanID      int     `json:"plan_of_study"`
		CourseID    int     `json:"planned_course"`
		Area        *int    `json:"course_area"`
		CreditHours int     `json:"credit_hours"`
		Term        term.ID `json:"planned_term"`
		Year        int     `json:"term_year"`

		// labels joined from the catalog for display
		SubjectCode     string `json:"subject_code,omitempty"`
		CourseNumber    string `json:"course_number,omitempty"`
		Title           string `json:"title,omitempty"`
		AreaDescription string `json:"area_description,omitempty"`
	}

	TransferCourse struct {
		ID          int    `json:"transfer_id"`
		PlanID      int    `json:"plan_of_study"`
		Description string `json:"description"`
		CreditHours int    `json:"credit_hours"`
		Grade       string `json:"grade"`
	}

	CommitteeMember struct {
		ID          int    `json:"approval_id" db:"approval_id"`
		PlanID      int    `json:"pos_id" db:"pos_id"`
		First       string `json:"first" db:"first"`
		Last        string `json:"last" db:"last"`
		Department  string `json:"department" db:"department"`
		Role        string `json:"role" db:"role"`
		Institution string `json:"institution" db:"institution"`
	}

	IgnoredCourse struct {
		StudentKey string     `json:"pid" db:"pid"`
		Degree     DegreeType `json:"pos_type" db:"pos_type"`
		CourseCode string     `json:"course_code" db:"course_code"`
		Term       term.ID    `json:"planned_term" db:"planned_term"`
		Year       int        `json:"term_year" db:"term_year"`
	}

	HistoryEntry struct {
		ID        int       `json:"history_id"`
		PlanID    int       `json:"plan_of_study"`
		Status    Status    `json:"history_status"`
		Note      string    `json:"note"`
		ChangedBy string    `json:"changed_by"`
		CreatedAt time.Time `json:"created_at"`
	}
)

func (s Student) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.First) + " " + strings.TrimSpace(s.Last))
}

// Code is the canonical course code of the planned course, "" when labels were not joined.
func (pc PlannedCourse) Code() string {
	return catalog.Code(pc.SubjectCode, pc.CourseNumber)
}

func (pc PlannedCourse) Bucket() term.Bucket {
	return term.Bucket{Year: pc.Year, Term: pc.Term}
}

// Bucket is the (year, term) slot the ignore applies to.
func (ic IgnoredCourse) Bucket() term.Bucket {
	return term.Bucket{Year: ic.Year, Term: ic.Term}
}

// Blank reports whether every field of the member is empty.
func (m CommitteeMember) Blank() bool {
	return strings.TrimSpace(m.First) == "" &&
		strings.TrimSpace(m.Last) == "" &&
		strings.TrimSpace(m.Department) == "" &&
		strings.TrimSpace(m.Role) == "" &&
		strings.TrimSpace(m.Institution) == ""
}

// Complete reports whether every field of the member is set.
func (m CommitteeMember) Complete() bool {
	return len(m.MissingFields()) == 0
}

// MissingFields lists the json names of the blank fields.
func (m CommitteeMember) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(m.First) == "" {
		missing = append(missing, "first")
	}
	if strings.TrimSpace(m.Last) == "" {
		missing = append(missing, "last")
	}
	if strings.TrimSpace(m.Department) == "" {
		missing = append(missing, "department")
	}
	if strings.TrimSpace(m.Role) == "" {
		missing = append(missing, "role")
	}
	if strings.TrimSpace(m.Institution) == "" {
		missing = append(missing, "institution")
	}
	return missing
}

// Request payloads.
type (
	// NewPlannedCourse is an unresolved planned course: credits and area are resolved against the catalog.
	NewPlannedCourse struct {
		CourseID    int     `json:"planned_course" validate:"required,gt=0"`
		CreditHours *int    `json:"credit_hours"`
		Term        term.ID `json:"planned_term" validate:"required,termid"`
		Year        int     `json:"term_year" validate:"required,gt=0"`
		Area        *int    `json:"course_area"`
	}

	NewTransferCourse struct {
		Description string `json:"description" validate:"notblank"`
		CreditHours int    `json:"credit_hours" validate:"gte=0"`
		Grade       string `json:"grade" validate:"transfergrade"`
	}

	MoveCourse struct {
		Term term.ID `json:"planned_term" validate:"required,termid"`
		Year int     `json:"term_year" validate:"required,gt=0"`
	}
)
