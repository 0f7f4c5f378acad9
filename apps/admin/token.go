package main

import (
	"fmt"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/user"
)

// token mints a signed JWT for local development and manual API testing.
func (cli *commandLine) token(id, name string, roles, children []string) error {
	usr := user.User{
		ID:       id,
		Name:     name,
		Roles:    roles,
		Children: children,
	}
	ss, err := echoapi.GenerateToken(cli.conf, echoapi.GetUserClaims(cli.conf, usr))
	if err != nil {
		return err
	}
	fmt.Println(ss)
	return nil
}
