package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/gradewise/gradewise/apps/api/echo"
	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	inmemdb "github.com/gradewise/gradewise/storage/database/inmem"
	testutil "github.com/gradewise/gradewise/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	out = buf

	return &commandLine{
		conf: &core.Config{AppName: "GradeWise", SecretKey: "secret", Grading: core.GradingConfig{
			Retention:    24 * time.Hour,
			ReapSchedule: "@every 5m",
		}},
		papers: inmemdb.NewPaperRepository(db),
		jobs:   inmemdb.NewGradingRepository(db),
		logger: core.NopLogger{},
	}, buf
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRun(t *testing.T, cli *commandLine, tt cliTest) {
	args := append([]string{"admin"}, tt.args...)
	if err := cli.run(args); err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if errors.Cause(err).Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() expected an error")
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { checkRun(t, cli, tt) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { checkRun(t, cli, tt) })
	}
}

func Test_commandLine_purge(t *testing.T) {
	cli, buf := setup(t)
	ctx := context.Background()
	now := time.Now()

	old := testutil.CreateJob(t, cli.jobs, "paper_1", grading.StatusCompleted, 100, now.Add(-72*time.Hour))
	week := testutil.CreateJob(t, cli.jobs, "paper_1", grading.StatusFailed, 10, now.Add(-30*time.Hour))
	recent := testutil.CreateJob(t, cli.jobs, "paper_1", grading.StatusCompleted, 100, now.Add(-time.Hour))
	active := testutil.CreateJob(t, cli.jobs, "paper_1", grading.StatusGrading, 10)

	tests := []cliTest{
		{name: "bad duration", args: []string{"purge", "-older-than", "lol"}, wantErr: errHelp},
		{name: "negative duration", args: []string{"purge", "-older-than", "-1h"}, wantErr: errHelp},
		{name: "explicit window", args: []string{"purge", "-older-than", "48h"}, extra: []string{old.ID}},
		{name: "default retention", args: []string{"purge"}, extra: []string{week.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			checkRun(t, cli, tt)

			if gone, ok := tt.extra.([]string); ok {
				assert.Equal(t, fmt.Sprintf("%d grading job(s) deleted\n", len(gone)), buf.String())
				for _, id := range gone {
					_, err := cli.jobs.Get(ctx, id)
					assert.Equal(t, grading.ErrNotFound, err)
				}
			}
		})
	}

	for _, id := range []string{recent.ID, active.ID} {
		_, err := cli.jobs.Get(ctx, id)
		assert.NoError(t, err)
	}
}

func Test_commandLine_stats(t *testing.T) {
	cli, buf := setup(t)

	p := testutil.CreatePaper(t, cli.papers, "T", "C")
	testutil.CreateJob(t, cli.jobs, p.ID, grading.StatusGrading, 10)
	testutil.CreateJob(t, cli.jobs, p.ID, grading.StatusCompleted, 100, time.Now())

	checkRun(t, cli, cliTest{args: []string{"stats"}})
	assert.Equal(t, "papers: 1\ngrading jobs: 2 (1 grading)\n", buf.String())
}

func Test_commandLine_token(t *testing.T) {
	cli, buf := setup(t)

	tests := []cliTest{
		{name: "no id", args: []string{"token"}, wantErr: errHelp},
		{name: "blank id", args: []string{"token", "-id", "  "}, wantErr: errHelp},
		{name: "unknown role", args: []string{"token", "-id", "u1", "-role", "janitor"}, wantErr: errHelp},
		{name: "bad ttl", args: []string{"token", "-id", "u1", "-ttl", "-1h"}, wantErr: errHelp},
		{
			name:  "faculty by default",
			args:  []string{"token", "-id", "u1", "-email", "f@gradewise.test"},
			extra: core.Identity{ID: "u1", Role: core.RoleFaculty, Email: "f@gradewise.test"},
		},
		{
			name:  "lowercase role",
			args:  []string{"token", "-id", "u2", "-role", "admin", "-ttl", "1h"},
			extra: core.Identity{ID: "u2", Role: core.RoleAdmin},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			checkRun(t, cli, tt)

			if want, ok := tt.extra.(core.Identity); ok {
				claims, err := echoapi.ParseToken([]byte(cli.conf.SecretKey), strings.TrimSpace(buf.String()))
				require.NoError(t, err)
				assert.Equal(t, want, claims.Identity())
				assert.Equal(t, cli.conf.AppName, claims.Issuer)
			}
		})
	}
}
