package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/user"
)

// addUser updates or creates an active user.User. Existing users keep their role unless isAdmin is set.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) (user.User, error) {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	exists := true
	usr, err := cli.usrRepo.GetByUsernameOrEmail(ctx, uname)
	if errors.Cause(err) == user.ErrNotFound {
		usr, err = cli.usrRepo.GetByUsernameOrEmail(ctx, email)
	}
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
		exists = false
		usr = user.User{
			Username:  uname,
			Email:     email,
			Role:      user.RoleTeacher,
			CreatedAt: now,
		}
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
		if usr.Name == "" {
			usr.Name = email
		}
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if exists {
		return cli.usrRepo.Update(ctx, usr)
	}
	return cli.usrRepo.Create(ctx, usr)
}
