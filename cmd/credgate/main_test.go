package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credgate "github.com/MrEthical07/credgate"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// cli runs one command against the sqlite database at dsn.
func cli(t *testing.T, dsn, stdin string, args ...string) cliResult {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args,
		"--store", "sqlite",
		"--dsn", dsn,
		"--session-secret", testSecret,
		"--argon2-memory", "8192",
		"--argon2-time", "1",
	))

	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// issuedCode finds the last code the log notifier wrote.
func issuedCode(t *testing.T, stderr string) string {
	t.Helper()
	var code string
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		var line map[string]any
		if json.Unmarshal(sc.Bytes(), &line) != nil {
			continue
		}
		if line["msg"] == "challenge code issued" {
			code, _ = line["code"].(string)
		}
	}
	require.Len(t, code, 6, "no challenge code in output:\n%s", stderr)
	return code
}

func TestRootHelpListsCommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	for _, name := range []string{"migrate", "register", "login", "whoami", "profile", "verify", "reset", "report"} {
		assert.Contains(t, buf.String(), name)
	}
}

func TestFullCredentialLifecycle(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "credgate.db")
	const email = "ann@example.com"

	res := cli(t, dsn, "", "migrate")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Migrations completed")

	res = cli(t, dsn, "", "register", "--name", "Ann", "--email", email, "--password", "first-password")
	require.NoError(t, res.err, res.stderr)
	var p profileView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &p))
	assert.Equal(t, email, p.Email)
	assert.False(t, p.AccountVerified)

	res = cli(t, dsn, "", "verify", "send", "--email", email)
	require.NoError(t, res.err, res.stderr)
	verifyCode := issuedCode(t, res.stderr)

	res = cli(t, dsn, "", "verify", "confirm", "--email", email, "--code", verifyCode)
	require.NoError(t, res.err, res.stderr)

	res = cli(t, dsn, "", "profile", "--email", email)
	require.NoError(t, res.err, res.stderr)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &p))
	assert.True(t, p.AccountVerified)

	res = cli(t, dsn, "", "reset", "send", "--email", email)
	require.NoError(t, res.err, res.stderr)
	resetCode := issuedCode(t, res.stderr)

	res = cli(t, dsn, "", "reset", "check", "--email", email, "--code", resetCode)
	require.NoError(t, res.err, res.stderr)

	// New password on stdin instead of a flag.
	res = cli(t, dsn, "second-password\n", "reset", "complete", "--email", email, "--code", resetCode)
	require.NoError(t, res.err, res.stderr)

	res = cli(t, dsn, "", "reset", "check", "--email", email, "--code", resetCode)
	require.ErrorIs(t, res.err, credgate.ErrChallengeMissing)

	res = cli(t, dsn, "", "login", "--email", email, "--password", "first-password")
	require.ErrorIs(t, res.err, credgate.ErrCredentialsInvalid)

	res = cli(t, dsn, "", "login", "--email", email, "--password", "second-password")
	require.NoError(t, res.err, res.stderr)
	token := strings.TrimSpace(res.stdout)
	require.NotEmpty(t, token)

	res = cli(t, dsn, "", "whoami", token)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, email, strings.TrimSpace(res.stdout))
}

func TestWhoamiRejectsTamperedToken(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "credgate.db")
	res := cli(t, dsn, "", "whoami", "not.a.token")
	assert.ErrorIs(t, res.err, credgate.ErrTokenMalformed)
}

func TestMissingSessionSecret(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"profile", "--email", "a@example.com", "--store", "memory"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session secret is required")
}

func TestRegisterRequiresName(t *testing.T) {
	dir := t.TempDir()
	res := cli(t, filepath.Join(dir, "credgate.db"), "",
		"register", "--email", "cy@example.com", "--password", "some-password")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `required flag(s) "name" not set`)
	assert.NotErrorIs(t, res.err, credgate.ErrInvalidRequest)
}

func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	textfile := filepath.Join(dir, "credgate.prom")

	res := cli(t, filepath.Join(dir, "credgate.db"), "",
		"register", "--name", "Bo", "--email", "bo@example.com", "--password", "some-password", "--metrics-textfile", textfile)
	require.NoError(t, res.err, res.stderr)

	raw, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "credgate_account_created_total 1")
}

func TestReportShowsSettings(t *testing.T) {
	res := cli(t, filepath.Join(t.TempDir(), "credgate.db"), "", "report", "--mask-unknown-user")
	require.NoError(t, res.err, res.stderr)

	var report credgate.SecurityReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.True(t, report.MaskUnknownUser)
	assert.Equal(t, uint32(8192), report.Argon2.Memory)
}
