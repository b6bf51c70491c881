package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simharness/simharness/internal/version"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, buf.String(), "simharness")
}

func TestVersionCommandShort(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, version.Version+"\n", buf.String())
}

func TestDoctorWithExampleConfig(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	configPath, err := filepath.Abs(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.FileExists(t, configPath)

	cmd.SetArgs([]string{"doctor", "--config", configPath})

	err = cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Config OK")
}

const validPlanYAML = `caller_key: alice_key
steps:
  - endpoint: key
    method: create_key
    params:
      - type: ed25519
        value: alice_key
  - endpoint: execute
    method: program_create
    params:
      - type: string
        value: counter.wasm
  - endpoint: execute
    method: inc
    max_units: 10000
    params:
      - type: id
        value: step_1
      - type: u64
        value: 5
`

func writePlanFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validPlanYAML), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", writePlanFile(t)})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "Plan OK. 3 steps.")
}

func TestValidateCommandReportsIssues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	bad := "caller_key: alice_key\nsteps:\n  - endpoint: readonly\n    method: value\n    params:\n      - type: u64\n        value: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", path})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, buf.String(), "step 0")
}

func TestRunCommandLocal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine needs a POSIX shell")
	}
	dir := t.TempDir()
	engine := filepath.Join(dir, "engine.sh")
	fake := "#!/bin/sh\n" +
		"while read -r line; do\n" +
		"  echo '{\"id\":0,\"error\":null,\"result\":{\"id\":\"tx9\",\"msg\":\"ok\",\"timestamp\":3,\"response\":\"BQAAAAAAAAA=\"}}'\n" +
		"done\n"
	require.NoError(t, os.WriteFile(engine, []byte(fake), 0o755))

	configPath := filepath.Join(dir, "config.yaml")
	cfgYAML := "engine:\n  path: " + engine + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfgYAML), 0o644))

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", writePlanFile(t), "--config", configPath, "--run-id", "cli-1"})

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "[step 0] key/create_key")
	require.Contains(t, buf.String(), "tx tx9")
	require.Contains(t, buf.String(), "[done] 3 steps")
}
