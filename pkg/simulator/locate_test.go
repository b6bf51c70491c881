package simulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateExplicitPath(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "engine")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := Locate(bin)
	require.NoError(t, err)
	require.Equal(t, bin, got)
}

func TestLocateFromEnv(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "engine")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv(EnginePathEnv, bin)

	got, err := Locate("")
	require.NoError(t, err)
	require.Equal(t, bin, got)
}

func TestLocateUnconfigured(t *testing.T) {
	t.Setenv(EnginePathEnv, "")
	_, err := Locate("")
	require.Error(t, err)
	require.Contains(t, err.Error(), EnginePathEnv)
}

func TestLocateMissingBinary(t *testing.T) {
	_, err := Locate(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "build the engine")
}

func TestLocateRejectsDirectory(t *testing.T) {
	_, err := Locate(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "directory")
}

func TestMustLocatePanics(t *testing.T) {
	t.Setenv(EnginePathEnv, "")
	require.Panics(t, func() { MustLocate("") })
}
