package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	echoapi "github.com/gradewise/gradewise/apps/api/echo"
	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
)

const cmdTimeout = time.Minute

var (
	out io.Writer = os.Stdout // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	db     *sql.DB
	papers paper.Repository
	jobs   grading.Repository
	logger core.Logger
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(out, "Usage:")
	_, _ = fmt.Fprintln(out, "  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	_, _ = fmt.Fprintln(out, "  purge [-older-than DURATION] - delete finished grading jobs older than DURATION (default: grading retention)")
	_, _ = fmt.Fprintln(out, "  stats - print paper and grading job counts")
	_, _ = fmt.Fprintln(out, "  token -id ID [-role ROLE] [-email EMAIL] [-ttl DURATION] - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("purge", flag.ContinueOnError)
	purgeCmd.SetOutput(out)
	purgeOlderThan := purgeCmd.Duration("older-than", cli.conf.Grading.Retention, "Age past which completed and failed jobs are deleted.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(out)
	tokenID := tokenCmd.String("id", "", "Subject of the token. (Required)")
	tokenRole := tokenCmd.String("role", core.RoleFaculty, "One of FACULTY, ADMIN, STUDENT.")
	tokenEmail := tokenCmd.String("email", "", "Email of the subject.")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "Validity of the token.")

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *purgeOlderThan <= 0 {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(ctx, *purgeOlderThan)
	case "stats":
		return cli.stats(ctx)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		id := core.Identity{ID: core.CleanString(*tokenID), Role: strings.ToUpper(*tokenRole), Email: *tokenEmail}
		if id.ID == "" || !validRole(id.Role) || *tokenTTL <= 0 {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(id, *tokenTTL)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) purge(ctx context.Context, olderThan time.Duration) error {
	reaper, err := grading.NewReaper(cli.jobs, olderThan, cli.conf.Grading.ReapSchedule, cli.logger)
	if err != nil {
		return err
	}
	n, err := reaper.Reap(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%d grading job(s) deleted\n", n)
	return nil
}

func (cli *commandLine) stats(ctx context.Context) error {
	papers, err := cli.papers.Count(ctx)
	if err != nil {
		return err
	}
	jobs, err := cli.jobs.Count(ctx)
	if err != nil {
		return err
	}
	active, err := cli.jobs.ListActive(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "papers: %d\ngrading jobs: %d (%d grading)\n", papers, jobs, len(active))
	return nil
}

func (cli *commandLine) token(id core.Identity, ttl time.Duration) error {
	token, err := echoapi.GenerateToken([]byte(cli.conf.SecretKey), cli.conf.AppName, id, ttl)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, token)
	return nil
}

func validRole(role string) bool {
	for _, r := range core.AllRoles {
		if role == r {
			return true
		}
	}
	return false
}
