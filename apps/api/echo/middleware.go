package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
)

// Identity is established upstream (SSO proxy); the API trusts these headers.
const (
	headerUserPid   = "X-User-Pid"
	headerUserName  = "X-User-Name"
	headerUserRoles = "X-User-Roles"

	contextActorKey  = "actor"
	contextObjectKey = "object"
)

var errPlanNotFoundInCtx = errors.New("plan object not found in echo.Context")

// actorMiddleware reads the caller identity headers into the context. Anonymous calls go through;
// handlers that need an identity use requireActor.
func actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		actor := approval.Actor{
			Key:  strings.TrimSpace(req.Header.Get(headerUserPid)),
			Name: strings.TrimSpace(req.Header.Get(headerUserName)),
		}
		if raw := strings.TrimSpace(req.Header.Get(headerUserRoles)); raw != "" {
			roles, err := strconv.Atoi(raw)
			if err != nil || roles < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+headerUserRoles+" header")
			}
			actor.Roles = approval.Role(roles)
		}
		ctx.Set(contextActorKey, actor)
		return next(ctx)
	}
}

func contextActor(ctx echo.Context) approval.Actor {
	actor, _ := ctx.Get(contextActorKey).(approval.Actor)
	return actor
}

func requireActor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if contextActor(ctx).Key == "" {
			return errMissingActor
		}
		return next(ctx)
	}
}

// roleMiddleware lets through actors holding any of `roles`.
func roleMiddleware(roles ...approval.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor := contextActor(ctx)
			for _, role := range roles {
				if actor.Roles.Has(role) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// canAccessPlan: the student owning it, the grad coordinator, or the faculty chairing it.
func canAccessPlan(actor approval.Actor, p plan.Plan) bool {
	return actor.IsOwner(p) || actor.IsGradCoordinator() || actor.ChairsPlan(p)
}

// canAccessStudent: the student themselves or any reviewer.
func canAccessStudent(actor approval.Actor, pid string) bool {
	return strings.EqualFold(actor.Key, strings.TrimSpace(pid)) ||
		actor.Roles.Has(approval.RoleChair) || actor.IsGradCoordinator()
}

// planMiddleware loads the plan named by the `:id` path param into the context.
// Plans the actor may not see are reported as not found.
func planMiddleware(svc *plan.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil || id <= 0 {
				return errHttpNotFound
			}
			p, err := svc.GetPlanByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == plan.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding plan by ID")
			}
			if !canAccessPlan(contextActor(ctx), p) {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, p)
			return next(ctx)
		}
	}
}

func contextPlan(ctx echo.Context) (plan.Plan, error) {
	p, ok := ctx.Get(contextObjectKey).(plan.Plan)
	if !ok {
		return plan.Plan{}, errors.Wrap(errPlanNotFoundInCtx, "retrieving object from context")
	}
	return p, nil
}

// ownerOrGradCoordinator guards writes that only the student or the grad coordinator may make.
func ownerOrGradCoordinator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := contextPlan(ctx)
		if err != nil {
			return err
		}
		actor := contextActor(ctx)
		if !actor.IsOwner(p) && !actor.IsGradCoordinator() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
