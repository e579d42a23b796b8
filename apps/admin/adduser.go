package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser creates a user, or resets the password and role of the existing one with the same username.
func (cli *commandLine) addUser(ctx context.Context, uname, email, role, pwd string) (user.User, error) {
	nu := user.NewUser{
		Username: uname,
		Email:    email,
		Password: pwd,
		Role:     role,
	}

	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	switch {
	case err == nil:
		nu.Username = usr.Username
		nu.Email = core.CleanString(nu.Email, true /* lower */)
		nu.Role = strings.ToUpper(core.CleanString(nu.Role))
		if err := cli.validate.Struct(nu); err != nil {
			return user.User{}, err
		}
		if err := cli.usrSvc.CheckUniqueness(ctx, "", nu.Email, usr); err != nil {
			return user.User{}, err
		}
		usr.Email = nu.Email
		usr.Role = nu.Role
		return cli.usrSvc.SetPassword(ctx, usr, pwd)
	case errors.Cause(err) != user.ErrNotFound:
		return user.User{}, err
	}

	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return user.User{}, err
	}
	return cli.usrSvc.Create(ctx, nu)
}
