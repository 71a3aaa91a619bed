// Package providers - Utility functions.
package providers

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibraryEnv overrides the default onnxruntime shared library location.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the onnxruntime shared library.
//
// An explicit path wins, then SharedLibraryEnv, then the platform default under
// ./third_party.
//
// Arguments:
//   - explicit: A configured path, may be empty.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error if the platform has no known default.
func GetSharedLibPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(SharedLibraryEnv); env != "" {
		return env, nil
	}
	return defaultSharedLibPath(runtime.GOOS, runtime.GOARCH)
}

func defaultSharedLibPath(goos, goarch string) (string, error) {
	dir := "third_party"
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return filepath.Join(dir, "onnxruntime.dll"), nil
		}
	case "darwin":
		return filepath.Join(dir, "libonnxruntime.dylib"), nil
	case "linux":
		if goarch == "arm64" {
			return filepath.Join(dir, "onnxruntime_arm64.so"), nil
		}
		return filepath.Join(dir, "onnxruntime.so"), nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", goos, goarch)
}
