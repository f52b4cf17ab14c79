// Package approval runs the plan of study review workflow.
package approval

import (
	"strings"

	"github.com/dtsmedt/PlanOfStudy/core/plan"
)

// Role is a bit field of reviewer roles.
type Role int

const (
	RoleChair           Role = 1
	RoleGradCoordinator Role = 8
)

func (r Role) Has(role Role) bool {
	return r&role == role
}

// Actor is whoever performs a workflow step: the student owning the plan or a reviewer.
type Actor struct {
	Key   string `json:"pid"`
	Name  string `json:"name"`
	Roles Role   `json:"roles"`
}

// IsOwner reports whether the actor is the student the plan belongs to.
func (a Actor) IsOwner(p plan.Plan) bool {
	return a.Key != "" && strings.EqualFold(a.Key, p.StudentKey)
}

// ChairsPlan reports whether the actor is the faculty chairing the plan's committee.
func (a Actor) ChairsPlan(p plan.Plan) bool {
	return a.Roles.Has(RoleChair) && a.Key != "" && strings.EqualFold(a.Key, p.CommitteeChair)
}

func (a Actor) IsGradCoordinator() bool {
	return a.Roles.Has(RoleGradCoordinator)
}

// Signer is who may take a transition.
type Signer int

const (
	SignerStudent Signer = iota + 1
	SignerGradCoordinator
	SignerChair
)

func (s Signer) String() string {
	switch s {
	case SignerStudent:
		return "student"
	case SignerGradCoordinator:
		return "graduate coordinator"
	case SignerChair:
		return "committee chair"
	default:
		return "unknown"
	}
}

type Transition struct {
	From   plan.Status
	To     plan.Status
	Signer Signer
}

// Rejects reports whether the transition sends the plan back as rejected.
func (t Transition) Rejects() bool {
	return t.To == plan.StatusRejected
}

// Transitions is the whole workflow. Rejected is terminal.
var Transitions = []Transition{
	{From: plan.StatusSaved, To: plan.StatusPendingGradCoordinator, Signer: SignerStudent},

	{From: plan.StatusPendingGradCoordinator, To: plan.StatusPendingFaculty, Signer: SignerGradCoordinator},
	{From: plan.StatusPendingGradCoordinator, To: plan.StatusRejected, Signer: SignerGradCoordinator},

	{From: plan.StatusPendingFaculty, To: plan.StatusAwaitingKey, Signer: SignerChair},
	{From: plan.StatusPendingFaculty, To: plan.StatusRejected, Signer: SignerChair},

	{From: plan.StatusAwaitingKey, To: plan.StatusPendingGradSchool, Signer: SignerGradCoordinator},
	{From: plan.StatusAwaitingKey, To: plan.StatusRejected, Signer: SignerGradCoordinator},

	{From: plan.StatusPendingGradSchool, To: plan.StatusApproved, Signer: SignerGradCoordinator},
	{From: plan.StatusPendingGradSchool, To: plan.StatusRejected, Signer: SignerGradCoordinator},
}

// Find returns the transition between two statuses.
func Find(from, to plan.Status) (Transition, bool) {
	for _, t := range Transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Can reports whether `a` may take transition `t` on plan `p`.
func (a Actor) Can(t Transition, p plan.Plan) bool {
	if p.Status != t.From {
		return false
	}
	switch t.Signer {
	case SignerStudent:
		return a.IsOwner(p)
	case SignerGradCoordinator:
		return a.IsGradCoordinator()
	case SignerChair:
		return a.ChairsPlan(p)
	}
	return false
}

// Next lists the statuses `a` may move plan `p` to.
func Next(a Actor, p plan.Plan) []plan.Status {
	var out []plan.Status
	for _, t := range Transitions {
		if a.Can(t, p) {
			out = append(out, t.To)
		}
	}
	return out
}

// VisibleStatuses lists the statuses a reviewer works with, in workflow order.
func VisibleStatuses(roles Role) []plan.Status {
	chair := roles.Has(RoleChair)
	gc := roles.Has(RoleGradCoordinator)

	var out []plan.Status
	for _, s := range plan.Statuses {
		switch s {
		case plan.StatusPendingFaculty:
			if chair {
				out = append(out, s)
			}
		case plan.StatusPendingGradCoordinator, plan.StatusAwaitingKey, plan.StatusPendingGradSchool:
			if gc {
				out = append(out, s)
			}
		case plan.StatusApproved, plan.StatusRejected:
			if chair || gc {
				out = append(out, s)
			}
		}
	}
	return out
}

// PendingStatuses lists the statuses waiting on a reviewer.
func PendingStatuses(roles Role) []plan.Status {
	var out []plan.Status
	for _, s := range VisibleStatuses(roles) {
		if s != plan.StatusApproved && s != plan.StatusRejected {
			out = append(out, s)
		}
	}
	return out
}
