package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
)

type groupApi struct {
	svc      group.ServiceInterface
	asgmtSvc assignment.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerGroupAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc group.ServiceInterface,
	asgmtSvc assignment.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := groupApi{
		svc:      svc,
		asgmtSvc: asgmtSvc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	gg := g.Group("/groups", jwt)
	gg.GET("", api.query)
	gg.POST("", api.create, teacherMiddleware())

	// detail endpoints; :id is the group id or slug
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.rename)
	gg.DELETE("/:id", api.destroy)
	gg.GET("/:id/assignments", api.queryAssignments)
	gg.POST("/:id/participants", api.addParticipant)
	gg.DELETE("/:id/participants", api.removeParticipant)
}

// GroupDetail is a group along with its assignments.
type GroupDetail struct {
	group.Group
	Assignments []assignment.Assignment `json:"assignments"`
}

// Handlers

func (api *groupApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grps, err := api.svc.QueryForUser(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, grps)
}

func (api *groupApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grp, asgmts, err := api.asgmtSvc.QueryForGroup(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving group")
	}
	return ctx.JSON(http.StatusOK, GroupDetail{Group: grp, Assignments: asgmts})
}

func (api *groupApi) rename(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Rename(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "renaming group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) queryAssignments(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	_, asgmts, err := api.asgmtSvc.QueryForGroup(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying group assignments")
	}
	return ctx.JSON(http.StatusOK, asgmts)
}

func (api *groupApi) addParticipant(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.NewParticipant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParticipant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.AddParticipant(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding participant")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) removeParticipant(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.RemoveParticipant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RemoveParticipant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.RemoveParticipant(ctx.Request().Context(), actor, ctx.Param("id"), data.UserID)
	if err != nil {
		return errors.Wrap(err, "removing participant")
	}
	return ctx.JSON(http.StatusOK, grp)
}
