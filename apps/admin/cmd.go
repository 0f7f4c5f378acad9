package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/trezcool/darasa/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sql.DB
	conf   *core.Config
	logger core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate GOOSE_COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  prune [-retention DURATION] - evict stored notifications past the retention window")
	fmt.Println("  seed - insert reference rows for local development")
	fmt.Println("  token -user ID -roles ROLES [-name NAME] [-children IDS] - mint a dev JWT")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	pruneCmd := flag.NewFlagSet("prune", flag.ExitOnError)
	pruneRetention := pruneCmd.Duration("retention", 0, "Override the configured retention window.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenUser := tokenCmd.String("user", "", "The user id the token identifies.")
	tokenName := tokenCmd.String("name", "", "The user's display name.")
	tokenRoles := tokenCmd.String("roles", "", "Comma-separated roles, e.g. 'parent:' or 'admin:'.")
	tokenChildren := tokenCmd.String("children", "", "Comma-separated student ids (parents only).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "prune":
		if err := pruneCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.prune(*pruneRetention)
	case "seed":
		return cli.seed()
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" || *tokenRoles == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenUser, *tokenName, splitList(*tokenRoles), splitList(*tokenChildren))
	default:
		cli.printUsage()
		return errHelp
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
