package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/action"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/requirement"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// paramID reads a positive integer path param; anything else is a 404.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryArea reads the optional `area` filter. Area 0 (ethics) is a valid filter.
func queryArea(ctx echo.Context) (*int, error) {
	raw := strings.TrimSpace(ctx.QueryParam("area"))
	if raw == "" {
		return nil, nil
	}
	area, err := strconv.Atoi(raw)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "area", Error: "area must be an integer"})
	}
	return &area, nil
}

// Requests & Responses

type (
	EnsurePlanRequest struct {
		StudentKey string `json:"pid"`
		Degree     string `json:"pos_type"`
	}

	ChairRequest struct {
		CommitteeChair string `json:"committee_chair"`
	}

	// Replace bodies are wrapped: path params are bound before the body and only into structs.
	PlannedCoursesRequest struct {
		Rows []plan.NewPlannedCourse `json:"rows"`
	}

	TransfersRequest struct {
		Rows []plan.NewTransferCourse `json:"rows"`
	}

	CommitteeRequest struct {
		Members []plan.CommitteeMember `json:"members"`
	}

	NoteRequest struct {
		Note string `json:"note"`
	}

	StatusRequest struct {
		Status plan.Status `json:"status"`
		Note   string      `json:"note"`
	}

	// DraftRequest is an unsaved plan sent for validation.
	DraftRequest struct {
		Degree    plan.DegreeType         `json:"pos_type"`
		Groups    []requirement.TermGroup `json:"groups"`
		Transfers []plan.TransferCourse   `json:"transfers"`
		Committee []plan.CommitteeMember  `json:"committee"`
		Chair     string                  `json:"committee_chair"`
	}

	ActionsRequest struct {
		Actions []action.Action `json:"actions"`
	}

	ImportRequest struct {
		Rows []transcript.Record `json:"rows"`
	}

	StatusResponse struct {
		ID   plan.Status `json:"status_id"`
		Name string      `json:"status"`
	}

	DegreeResponse struct {
		ID   plan.DegreeType `json:"pos_type"`
		Name string          `json:"name"`
	}

	SubmitResponse struct {
		Plan   plan.Plan          `json:"plan"`
		Report requirement.Report `json:"report"`
	}

	OutcomesResponse struct {
		Outcomes []action.Outcome `json:"outcomes"`
	}
)

func (r DraftRequest) input() requirement.Input {
	return requirement.Input{
		Degree:    r.Degree,
		Groups:    r.Groups,
		Transfers: r.Transfers,
		Committee: r.Committee,
		Chair:     r.Chair,
	}
}

func statusResponses(statuses []plan.Status) []StatusResponse {
	out := make([]StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusResponse{ID: s, Name: s.String()})
	}
	return out
}
