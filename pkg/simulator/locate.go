package simulator

import (
	"fmt"
	"os"
)

// EnginePathEnv names the environment variable consulted when no engine
// path is given explicitly.
const EnginePathEnv = "SIMHARNESS_ENGINE_PATH"

// Locate resolves the engine binary. An explicit non-empty path wins,
// otherwise the SIMHARNESS_ENGINE_PATH environment variable is consulted.
// The resolved path must exist and be a regular file.
func Locate(path string) (string, error) {
	resolved := path
	if resolved == "" {
		resolved = os.Getenv(EnginePathEnv)
	}
	if resolved == "" {
		return "", fmt.Errorf(
			"no engine binary configured: set %s or pass an explicit path",
			EnginePathEnv,
		)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf(
			"engine binary not found at %q: %w\nbuild the engine and point %s at it",
			resolved, err, EnginePathEnv,
		)
	}
	if info.IsDir() {
		return "", fmt.Errorf("engine path %q is a directory", resolved)
	}
	return resolved, nil
}

// MustLocate is Locate that prints guidance and panics when the engine
// cannot be found. Intended for test harness setup where a missing engine
// is unrecoverable.
func MustLocate(path string) string {
	resolved, err := Locate(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		panic("simulator: engine binary unavailable")
	}
	return resolved
}
