//go:build integration

package integration

import (
	"os/exec"
	"testing"
)

// toolrouterBinary returns the path of an installed toolrouter binary, or
// skips the test.
func toolrouterBinary(t *testing.T) string {
	t.Helper()

	path, err := exec.LookPath("toolrouter")
	if err != nil {
		t.Skip("toolrouter binary not installed (go install ./cmd/toolrouter)")
	}

	return path
}
