package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/user"
)

type chatApi struct {
	svc      chat.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc chat.ServiceInterface, usrSvc user.ServiceInterface, validate *validator.Validate) {
	api := chatApi{svc: svc, usrSvc: usrSvc, validate: validate}

	cg := g.Group("/chats", jwt)
	cg.GET("", api.query)
	cg.POST("", api.start)
}

// Handlers

func (api *chatApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	chats, err := api.svc.QueryForUser(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying chats")
	}
	return ctx.JSON(http.StatusOK, chats)
}

// start returns the existing chat with the participant, or 201 with a new one.
func (api *chatApi) start(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data chat.NewChat
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChat")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, created, err := api.svc.GetOrCreate(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "starting chat")
	}
	if created {
		return ctx.JSON(http.StatusCreated, c)
	}
	return ctx.JSON(http.StatusOK, c)
}
