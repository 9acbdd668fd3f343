package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	logsvc "github.com/trezcool/gradebook/services/logger"
	testutil "github.com/trezcool/gradebook/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()

	conf := &core.Config{
		TestMode: true,
		Database: core.DatabaseConfig{Engine: shared.EngineMemory},
		Import:   core.ImportConfig{LockBackend: shared.LockMemory},
	}
	logger := logsvc.NewMemoryLogger()
	svcs, err := shared.NewServices(context.Background(), conf, logger, logger)
	require.NoError(t, err)

	// sql.Open does not connect: the migration runner is mocked
	db, err := sql.Open("postgres", "postgres://localhost/gradebook_test?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var out bytes.Buffer
	return &commandLine{db: db, svcs: svcs, out: &out}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origRunFunc := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRunFunc })

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
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
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
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "add_student_email", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		noDB := &commandLine{svcs: cli.svcs, out: cli.out}
		assert.Equal(t, errNoDatabase, noDB.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_students(t *testing.T) {
	cli, out := setup(t)
	scope := testutil.Scope()

	tests := []cliTest{
		{
			name:       "missing flags",
			args:       []string{"students", "add", "--school", scope.SchoolID, "--class", scope.ClassID, "--admission-number", "ADM-1"},
			wantErrStr: `required flag(s) "name" not set`,
		},
		{
			name: "add",
			args: []string{"students", "add", "--school", scope.SchoolID, "--class", scope.ClassID, "--admission-number", " ADM-1 ", "--name", "Ada"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	var printed results.Student
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	stored, err := cli.svcs.Roster.FindStudent(context.Background(), scope.SchoolID, scope.ClassID, "ADM-1")
	require.NoError(t, err)
	assert.Equal(t, printed, stored)
	assert.Equal(t, "Ada", stored.Name)
}

func Test_commandLine_importAndRecompute(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	scope := testutil.Scope()

	_, err := cli.svcs.Grading.Create(ctx, grading.NewScale{
		SchoolID: scope.SchoolID, Name: "Standard", IsDefault: true, Bands: testutil.Bands(),
	})
	require.NoError(t, err)
	_, err = cli.svcs.Instances.Create(ctx, instance.NewInstance{
		Scope:      scope,
		Name:       "First term",
		Subjects:   []string{"Mathematics", "English"},
		ExamConfig: results.DefaultExamConfig(),
	})
	require.NoError(t, err)
	testutil.CreateStudents(t, cli.svcs.Roster, scope, "ADM-1", "ADM-2")

	sheet := testutil.NewSheet([]string{"Mathematics", "English"}, nil, nil).Add(
		testutil.StudentRow{
			ID:     "ADM-1", Name: "Ada", Attendance: "58/60",
			Scores: map[string][4]string{"Mathematics": {"10", "10", "20", "50"}, "English": {"5", "5", "10", "40"}},
		},
		testutil.StudentRow{
			ID:     "ADM-2", Name: "Bola", Attendance: "55",
			Scores: map[string][4]string{"Mathematics": {"5", "5", "10", "40"}, "English": {"10", "10", "20", "50"}},
		},
	)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jss1.csv")
	require.NoError(t, os.WriteFile(csvPath, sheet.CSV(t), 0o600))
	xlsxPath := filepath.Join(dir, "jss1.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, sheet.XLSX(t), 0o600))

	scopeArgs := func(classID string) []string {
		return []string{"--school", scope.SchoolID, "--class", classID, "--session", scope.SessionID, "--term", scope.TermID}
	}

	failures := []cliTest{
		{name: "file required", args: append([]string{"import"}, scopeArgs(scope.ClassID)...), wantErrStr: `required flag(s) "file" not set`},
		{name: "no active instance", args: append(append([]string{"import"}, scopeArgs("jss2")...), "--file", csvPath), wantErr: errNoActiveInstance},
	}
	for _, tt := range failures {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	for _, path := range []string{csvPath, xlsxPath} {
		t.Run("import "+filepath.Ext(path), func(t *testing.T) {
			out.Reset()
			args := append(append([]string{"admin", "import"}, scopeArgs(scope.ClassID)...), "--file", path, "--days-open", "60")
			require.NoError(t, cli.run(args))

			var summary results.ImportSummary
			require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
			assert.Equal(t, 2, summary.ImportedCount)
			assert.Equal(t, 1, summary.SkippedCount)
			assert.Empty(t, summary.Errors)

			res, err := cli.svcs.Results.Query(ctx, scope)
			require.NoError(t, err)
			require.Len(t, res, 2)
			assert.Equal(t, 1, res[0].OverallPosition)
			assert.Equal(t, 1, res[1].OverallPosition)
			assert.Equal(t, results.Attendance{DaysPresent: 55, DaysSchoolOpen: 60}, res[1].Attendance)
		})
	}

	t.Run("recompute", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run(append([]string{"admin", "recompute"}, scopeArgs(scope.ClassID)...)))

		var records []results.StudentResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &records))
		assert.Len(t, records, 2)
	})
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)

	t.Run("no secret key", func(t *testing.T) {
		cliTest{wantErr: errNoSecretKey}.check(t, cli.run([]string{"admin", "token", "--school", "school-1"}))
	})

	cli.svcs.Conf.SecretKey = "test-secret"
	tests := []cliTest{
		{name: "school required", args: []string{"token"}, wantErrStr: `required flag(s) "school" not set`},
		{name: "bad ttl", args: []string{"token", "--school", "school-1", "--ttl=-1h"}, wantErrStr: "invalid ttl: -1h0m0s"},
		{name: "ok", args: []string{"token", "--school", " school-1 ", "--subject", "bursar"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "school-1", claims.SchoolID)
	assert.Equal(t, "bursar", claims.Subject)
}
